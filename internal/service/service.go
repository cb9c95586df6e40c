package service

import (
	"context"
	"net/http"

	"aquarium_dashboard/internal/dashboard"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/render"
)

// Dashboard exposes the monitoring page: snapshot, refresh, timeline and
// view selection, tank settings and the prediction panel.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	RefreshCycle(ctx context.Context) error
	SetTimeline(ctx context.Context, tl models.Timeline) error
	SetView(ctx context.Context, v models.View) error
	SaveSettings(ctx context.Context, p models.TankProfile) error
	Predict(ctx context.Context, quantity float64) (models.Prediction, error)
	Alerts() []models.Alert
}

// Feeding exposes the feeding lifecycle operations.
type Feeding interface {
	Create(ctx context.Context, in feeding.CreateInput) error
	Edit(ctx context.Context, in feeding.EditInput) error
	OpenDelete(timestamp string) (string, error)
	CommitDelete(ctx context.Context, token string) error
	CancelDelete()
}

// Stream serves the live render stream over WebSocket.
type Stream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

var (
	_ Dashboard = (*dashboard.Controller)(nil)
	_ Feeding   = (*feeding.Manager)(nil)
	_ Stream    = (*render.Hub)(nil)
)

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Dashboard
	Feeding
	Stream
}

func NewService(ctrl *dashboard.Controller, hub *render.Hub) *Service {
	return &Service{
		Dashboard: ctrl,
		Feeding:   ctrl.Feeding(),
		Stream:    hub,
	}
}
