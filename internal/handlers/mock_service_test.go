package handlers

import (
	"context"
	"net/http"
	"sync"

	"aquarium_dashboard/internal/dashboard"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/service"
)

type mockDashboard struct {
	mu       sync.Mutex
	snap     dashboard.Snapshot
	refresh  error
	saveErr  error
	predErr  error
	pred     models.Prediction
	alerts   []models.Alert
	timeline models.Timeline
	view     models.View
	saved    *models.TankProfile
}

func (m *mockDashboard) Snapshot() dashboard.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockDashboard) RefreshCycle(context.Context) error { return m.refresh }

func (m *mockDashboard) SetTimeline(_ context.Context, tl models.Timeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeline = tl
	m.snap.Timeline = tl
	return nil
}

func (m *mockDashboard) SetView(_ context.Context, v models.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = v
	m.snap.View = v
	return nil
}

func (m *mockDashboard) SaveSettings(_ context.Context, p models.TankProfile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &p
	m.snap.Profile = &p
	return nil
}

func (m *mockDashboard) Predict(_ context.Context, q float64) (models.Prediction, error) {
	if m.predErr != nil {
		return models.Prediction{}, m.predErr
	}
	p := m.pred
	p.QuantityG = q
	return p, nil
}

func (m *mockDashboard) Alerts() []models.Alert { return m.alerts }

type mockFeeding struct {
	mu        sync.Mutex
	createErr error
	editErr   error
	openErr   error
	commitErr error
	created   []feeding.CreateInput
	edited    []feeding.EditInput
	token     string
	committed []string
	cancelled int
}

func (m *mockFeeding) Create(_ context.Context, in feeding.CreateInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, in)
	return nil
}

func (m *mockFeeding) Edit(_ context.Context, in feeding.EditInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.edited = append(m.edited, in)
	return nil
}

func (m *mockFeeding) OpenDelete(string) (string, error) {
	if m.openErr != nil {
		return "", m.openErr
	}
	return m.token, nil
}

func (m *mockFeeding) CommitDelete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = append(m.committed, token)
	return nil
}

func (m *mockFeeding) CancelDelete() {
	m.mu.Lock()
	m.cancelled++
	m.mu.Unlock()
}

type mockStream struct {
	served int
}

func (m *mockStream) ServeWS(w http.ResponseWriter, _ *http.Request) {
	m.served++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newMockServices() (*service.Service, *mockDashboard, *mockFeeding) {
	d := &mockDashboard{
		snap: dashboard.Snapshot{
			TankID:   "tank-1",
			View:     models.ViewMonitoring,
			Timeline: models.TimelineDay,
		},
	}
	f := &mockFeeding{token: "tok-1"}
	return &service.Service{Dashboard: d, Feeding: f, Stream: &mockStream{}}, d, f
}
