package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/gateway"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/scheduler/schedulertest"
	"aquarium_dashboard/internal/store"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

func tempFor(tl models.Timeline) float64 {
	switch tl {
	case models.TimelineWeek:
		return 27
	case models.TimelineMonth:
		return 28
	}
	return 25
}

func windowFor(tl models.Timeline) models.ReadingWindow {
	return models.ReadingWindow{
		Timeline: tl,
		Items: []models.Reading{
			{Timestamp: epoch.Add(-time.Hour), Temperature: tempFor(tl), PH: 7, Ammonia: 0.1, WaterLevel: 95},
			{Timestamp: epoch, Temperature: tempFor(tl), PH: 7.1, Ammonia: 0.1, WaterLevel: 95},
		},
	}
}

// gate blocks a stubbed call until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) block() {
	close(g.entered)
	<-g.release
}

func (g *gate) wait(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("stubbed call was never entered")
	}
}

type stubGateway struct {
	mu sync.Mutex

	profile     models.TankProfile
	profileErr  error
	readingsErr error
	feedingErr  error
	saveErr     error
	predictErr  error
	events      []models.FeedingEvent
	prediction  float64

	// hooks run outside the lock before the stubbed call reads its result.
	readingsHook func(call int, tl models.Timeline)
	profileHook  func(call int)
	feedingHook  func(call int)

	profileCalls  int
	readingsCalls int
	feedingCalls  int
	saveCalls     int
	predictCalls  int
	timelines     []models.Timeline
	lastPredict   gateway.PredictionRequest
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		profile: models.TankProfile{
			TankID:                "t1",
			VolumeLiters:          floatPtr(100),
			AppropriateWaterLevel: floatPtr(90),
			FishCounts:            models.FishCounts{Small: 2, Medium: 1},
		},
		prediction: 0.12,
	}
}

func (s *stubGateway) FetchTankProfile(ctx context.Context, tankID string) (models.TankProfile, error) {
	s.mu.Lock()
	s.profileCalls++
	call, hook := s.profileCalls, s.profileHook
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileErr != nil {
		return models.TankProfile{}, s.profileErr
	}
	return s.profile, nil
}

func (s *stubGateway) FetchReadings(ctx context.Context, deviceID string, tl models.Timeline) (models.ReadingWindow, error) {
	s.mu.Lock()
	s.readingsCalls++
	call := s.readingsCalls
	s.timelines = append(s.timelines, tl)
	hook, err := s.readingsHook, s.readingsErr
	s.mu.Unlock()

	if hook != nil {
		hook(call, tl)
	}
	if err != nil {
		return models.ReadingWindow{}, err
	}
	return windowFor(tl), nil
}

func (s *stubGateway) FetchFeedingEvents(ctx context.Context, tankID, deviceID string) ([]models.FeedingEvent, error) {
	s.mu.Lock()
	s.feedingCalls++
	call, hook := s.feedingCalls, s.feedingHook
	s.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedingErr != nil {
		return nil, s.feedingErr
	}
	return append([]models.FeedingEvent(nil), s.events...), nil
}

func (s *stubGateway) FetchAmmoniaPrediction(ctx context.Context, in gateway.PredictionRequest) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictCalls++
	s.lastPredict = in
	if s.predictErr != nil {
		return 0, s.predictErr
	}
	return s.prediction, nil
}

func (s *stubGateway) SaveTankProfile(ctx context.Context, p models.TankProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.profile = p
	return nil
}

func (s *stubGateway) CreateFeedingEvent(ctx context.Context, in gateway.FeedingCreate) (models.FeedingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := in.FeedTime.UTC().Format(time.RFC3339)
	ev := models.FeedingEvent{
		TankID:            in.TankID,
		Timestamp:         ts,
		FeedTimeScheduled: in.FeedTime,
		QuantityGrams:     in.QuantityG,
		Status:            models.FeedingPending,
	}
	s.events = append(s.events, ev)
	return ev, nil
}

func (s *stubGateway) UpdateFeedingEvent(ctx context.Context, in gateway.FeedingUpdate) error {
	return nil
}

func (s *stubGateway) DeleteFeedingEvent(ctx context.Context, tankID, timestamp string) error {
	return nil
}

func (s *stubGateway) set(fn func(s *stubGateway)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *stubGateway) counts() (profile, readings, feeding int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileCalls, s.readingsCalls, s.feedingCalls
}

var errDown = apperr.HTTP("stub", 503, "down")

// recordingSink remembers every render call.
type recordingSink struct {
	mu           sync.Mutex
	series       map[string][]models.Point
	seriesCalls  int
	disposed     []string
	placeholders map[string]bool
	alerts       [][]models.Alert
	feedings     int
	predictions  []models.Prediction
	notices      []models.Notice
}

func newRecordingSink() *recordingSink {
	return &recordingSink{series: map[string][]models.Point{}, placeholders: map[string]bool{}}
}

func (r *recordingSink) RenderSeries(channel string, points []models.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series[channel] = points
	r.seriesCalls++
}

func (r *recordingSink) DisposeSeries(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = append(r.disposed, channel)
}

func (r *recordingSink) ShowPlaceholder(channel string, show bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeholders[channel] = show
}

func (r *recordingSink) RenderAlerts(alerts []models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alerts)
}

func (r *recordingSink) RenderFeedingTables(pending, history []models.FeedingRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedings++
}

func (r *recordingSink) RenderPrediction(p models.Prediction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, p)
}

func (r *recordingSink) Notify(n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingSink) snapshot(fn func(r *recordingSink)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

type fixture struct {
	ctrl  *Controller
	gw    *stubGateway
	sink  *recordingSink
	store *store.Store
	clock *schedulertest.Clock
}

func newFixture(t *testing.T, view models.View, tune ...func(*Options)) *fixture {
	t.Helper()
	return buildFixture(t, view, false, tune...)
}

// newFeedingFixture wires a real feeding manager to the controller.
func newFeedingFixture(t *testing.T) *fixture {
	t.Helper()
	return buildFixture(t, models.ViewFeeding, true)
}

func buildFixture(t *testing.T, view models.View, withManager bool, tune ...func(*Options)) *fixture {
	gw := newStubGateway()
	sink := newRecordingSink()
	st := store.New(models.TimelineDay, view, 0)
	clk := schedulertest.New(epoch)
	opts := Options{
		TankID:          "t1",
		DeviceID:        "dev-1",
		RefreshInterval: time.Minute,
		RetryDelay:      time.Minute,
		InitRetryDelay:  5 * time.Second,
		Clock:           clk,
	}
	for _, fn := range tune {
		fn(&opts)
	}
	var fm *feeding.Manager
	if withManager {
		fm = feeding.NewManager("t1", gw, st, nil, sink, time.UTC, clk, nil)
	}
	ctrl := NewController(gw, st, sink, fm, opts, nil)
	t.Cleanup(ctrl.Teardown)
	return &fixture{ctrl: ctrl, gw: gw, sink: sink, store: st, clock: clk}
}
