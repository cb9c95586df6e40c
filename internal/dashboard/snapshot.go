package dashboard

import (
	"time"

	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/models"
)

// Snapshot is the read-only view model of the whole dashboard.
type Snapshot struct {
	TankID        string                    `json:"tank_id"`
	View          models.View               `json:"view"`
	Timeline      models.Timeline           `json:"timeline"`
	TickLayout    string                    `json:"tick_layout"`
	Initialized   bool                      `json:"initialized"`
	Profile       *models.TankProfile       `json:"profile"`
	Series        map[string][]models.Point `json:"series"`
	RangeStart    *time.Time                `json:"range_start,omitempty"`
	RangeEnd      *time.Time                `json:"range_end,omitempty"`
	Alerts        []models.Alert            `json:"alerts"`
	Pending       []models.FeedingRow       `json:"pending"`
	History       []models.FeedingRow       `json:"history"`
	Prediction    *models.Prediction        `json:"prediction,omitempty"`
	Defaults      models.FeedDefaults       `json:"feed_defaults"`
	Placeholders  map[string]bool           `json:"placeholders"`
	Busy          map[feeding.Control]bool  `json:"busy"`
	PendingDelete string                    `json:"pending_delete,omitempty"`
	Fetching      map[string]string         `json:"fetching"`
}

// Snapshot assembles the current view model from the store.
func (c *Controller) Snapshot() Snapshot {
	tl := c.store.Timeline()
	s := Snapshot{
		TankID:      c.opts.TankID,
		View:        c.store.View(),
		Timeline:    tl,
		TickLayout:  tl.TickLayout(),
		Initialized: c.Initialized(),
		Series:      make(map[string][]models.Point, len(models.SeriesChannels)),
		Alerts:      c.Alerts(),
		Pending:     models.Rows(c.store.Pending()),
		History:     models.Rows(c.store.History()),
		Defaults:    c.store.Defaults(),
		Busy:        map[feeding.Control]bool{},
		Fetching: map[string]string{
			ResourceProfile: c.profilePoller.Phase().String(),
			ResourceSensor:  c.sensorPoller.Phase().String(),
			ResourceFeeding: c.feedingPoller.Phase().String(),
		},
	}

	if p, ok := c.store.Profile(); ok {
		s.Profile = &p
	}
	if w, ok := c.store.Window(); ok {
		for _, ch := range models.SeriesChannels {
			s.Series[ch] = w.Series(ch)
		}
		if !w.RangeStart.IsZero() {
			s.RangeStart = &w.RangeStart
		}
		if !w.RangeEnd.IsZero() {
			s.RangeEnd = &w.RangeEnd
		}
	}
	if p, ok := c.store.Prediction(); ok {
		s.Prediction = &p
	}
	if c.feeding != nil {
		s.Busy = c.feeding.Busy()
		s.PendingDelete, _ = c.feeding.PendingDelete()
	}

	c.renderMu.Lock()
	s.Placeholders = make(map[string]bool, len(c.placeholders))
	for ch, show := range c.placeholders {
		s.Placeholders[ch] = show
	}
	c.renderMu.Unlock()
	return s
}
