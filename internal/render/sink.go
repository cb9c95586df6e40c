// Package render is the boundary to whatever draws the dashboard. The core
// hands over view models only and never builds presentation markup.
package render

import (
	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/models"
)

// Sink receives derived view models and chart series.
type Sink interface {
	RenderSeries(channel string, points []models.Point)
	// DisposeSeries releases the renderer of a channel.
	DisposeSeries(channel string)
	ShowPlaceholder(channel string, show bool)
	RenderAlerts(alerts []models.Alert)
	RenderFeedingTables(pending, history []models.FeedingRow)
	RenderPrediction(p models.Prediction)
	Notify(n models.Notice)
}

// Multi fans every call out to each sink in order.
type Multi []Sink

func (m Multi) RenderSeries(channel string, points []models.Point) {
	for _, s := range m {
		s.RenderSeries(channel, points)
	}
}

func (m Multi) DisposeSeries(channel string) {
	for _, s := range m {
		s.DisposeSeries(channel)
	}
}

func (m Multi) ShowPlaceholder(channel string, show bool) {
	for _, s := range m {
		s.ShowPlaceholder(channel, show)
	}
}

func (m Multi) RenderAlerts(alerts []models.Alert) {
	for _, s := range m {
		s.RenderAlerts(alerts)
	}
}

func (m Multi) RenderFeedingTables(pending, history []models.FeedingRow) {
	for _, s := range m {
		s.RenderFeedingTables(pending, history)
	}
}

func (m Multi) RenderPrediction(p models.Prediction) {
	for _, s := range m {
		s.RenderPrediction(p)
	}
}

func (m Multi) Notify(n models.Notice) {
	for _, s := range m {
		s.Notify(n)
	}
}

// LogSink writes every render call to the structured log.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) RenderSeries(channel string, points []models.Point) {
	s.log.Debugw("render_series", "channel", channel, "points", len(points))
}

func (s *LogSink) DisposeSeries(channel string) {
	s.log.Debugw("render_dispose", "channel", channel)
}

func (s *LogSink) ShowPlaceholder(channel string, show bool) {
	s.log.Debugw("render_placeholder", "channel", channel, "show", show)
}

func (s *LogSink) RenderAlerts(alerts []models.Alert) {
	worst := models.SeveritySuccess
	for _, a := range alerts {
		if a.Severity == models.SeverityDanger || (a.Severity == models.SeverityCaution && worst != models.SeverityDanger) {
			worst = a.Severity
		}
	}
	s.log.Infow("render_alerts", "count", len(alerts), "worst", worst)
}

func (s *LogSink) RenderFeedingTables(pending, history []models.FeedingRow) {
	s.log.Debugw("render_feedings", "pending", len(pending), "history", len(history))
}

func (s *LogSink) RenderPrediction(p models.Prediction) {
	s.log.Infow("render_prediction", "ammonia_ppm", p.AmmoniaPPM, "quantity_g", p.QuantityG)
}

func (s *LogSink) Notify(n models.Notice) {
	if n.Level == "error" {
		s.log.Warnw("notice", "scope", n.Scope, "message", n.Message)
		return
	}
	s.log.Infow("notice", "scope", n.Scope, "message", n.Message)
}
