// Package store is the View State Store: the single source of truth read by
// rendering and alerting. Mutation happens only through the Apply* result
// handlers, and every handler is a no-op once the store is closed.
package store

import (
	"sort"
	"sync"

	"aquarium_dashboard/internal/models"
)

const DefaultHistoryLimit = 20

type Store struct {
	mu           sync.RWMutex
	historyLimit int
	closed       bool

	timeline   models.Timeline
	view       models.View
	profile    *models.TankProfile
	window     *models.ReadingWindow
	pending    []models.FeedingEvent
	history    []models.FeedingEvent
	prediction *models.Prediction
	defaults   models.FeedDefaults
}

func New(timeline models.Timeline, view models.View, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		timeline:     timeline,
		view:         view,
		historyLimit: historyLimit,
		pending:      []models.FeedingEvent{},
		history:      []models.FeedingEvent{},
	}
}

// ---- read accessors ----

func (s *Store) Timeline() models.Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeline
}

func (s *Store) View() models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Profile returns the last successfully fetched profile.
func (s *Store) Profile() (models.TankProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.TankProfile{}, false
	}
	return *s.profile, true
}

// Window returns the reading window of the current timeline, if fetched.
func (s *Store) Window() (models.ReadingWindow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil {
		return models.ReadingWindow{}, false
	}
	w := *s.window
	w.Items = append([]models.Reading(nil), s.window.Items...)
	return w, true
}

// LatestReading is the most recent reading of the current window or nil.
func (s *Store) LatestReading() *models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil {
		return nil
	}
	r, ok := s.window.Latest()
	if !ok {
		return nil
	}
	return &r
}

func (s *Store) Pending() []models.FeedingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FeedingEvent{}, s.pending...)
}

func (s *Store) History() []models.FeedingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.FeedingEvent{}, s.history...)
}

// FindPending looks a pending event up by its identity timestamp.
func (s *Store) FindPending(timestamp string) (models.FeedingEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.pending {
		if ev.Timestamp == timestamp {
			return ev, true
		}
	}
	return models.FeedingEvent{}, false
}

func (s *Store) Prediction() (models.Prediction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prediction == nil {
		return models.Prediction{}, false
	}
	return *s.prediction, true
}

func (s *Store) Defaults() models.FeedDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ---- result handlers ----

// ApplyProfile replaces the profile wholesale.
func (s *Store) ApplyProfile(p models.TankProfile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.profile = &p
	return true
}

// ApplyReadings replaces the window. A window fetched for a timeline that is
// no longer selected is dropped and false is returned.
func (s *Store) ApplyReadings(w models.ReadingWindow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || w.Timeline != s.timeline {
		return false
	}
	w.Items = append([]models.Reading(nil), w.Items...)
	sort.SliceStable(w.Items, func(i, j int) bool { return w.Items[i].Timestamp.Before(w.Items[j].Timestamp) })
	s.window = &w
	return true
}

// SetTimeline selects a timeline. A change invalidates the current window.
func (s *Store) SetTimeline(tl models.Timeline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || tl == s.timeline {
		return false
	}
	s.timeline = tl
	s.window = nil
	return true
}

func (s *Store) SetView(v models.View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || v == s.view {
		return false
	}
	s.view = v
	return true
}

// ApplyFeedingEvents splits a fresh event list into pending events (soonest
// first) and history (most recent first, capped).
func (s *Store) ApplyFeedingEvents(events []models.FeedingEvent) bool {
	pending := make([]models.FeedingEvent, 0, len(events))
	history := make([]models.FeedingEvent, 0, len(events))
	for _, ev := range events {
		if ev.Status == models.FeedingPending {
			pending = append(pending, ev)
		} else {
			history = append(history, ev)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].FeedTimeScheduled.Before(pending[j].FeedTimeScheduled)
	})
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].FeedTimeScheduled.After(history[j].FeedTimeScheduled)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if len(history) > s.historyLimit {
		history = history[:s.historyLimit]
	}
	s.pending = pending
	s.history = history
	return true
}

func (s *Store) ApplyPrediction(p models.Prediction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.prediction = &p
	return true
}

// ClearPrediction drops a prediction that no longer matches its inputs.
func (s *Store) ClearPrediction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prediction = nil
}

func (s *Store) SetDefaults(d models.FeedDefaults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.defaults = d
}

// Close marks the store irrelevant: late results are ignored from now on.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
