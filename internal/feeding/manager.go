// Package feeding is the Feeding Lifecycle Manager: create, edit and
// two-phase delete of scheduled feeds. Nothing is inserted optimistically;
// the tables change only after a successful mutation is followed by a resync.
package feeding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/gateway"
	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/prefs"
	"aquarium_dashboard/internal/scheduler"
	"aquarium_dashboard/internal/store"

	"github.com/google/uuid"
)

const (
	MaxQuantityG = 10.0
	noticeScope  = "feeding"
)

var (
	// ErrControlBusy is returned while the same control's previous call is
	// still running.
	ErrControlBusy = errors.New("control is busy")
	// ErrNotConfirmed is returned by CommitDelete without a matching open
	// confirmation; no request is sent.
	ErrNotConfirmed = errors.New("delete was not confirmed")
)

// Control identifies an operator control that is disabled during its call.
type Control string

const (
	ControlCreate Control = "create"
	ControlEdit   Control = "edit"
	ControlDelete Control = "delete"
)

// Gateway is the subset of the remote gateway the manager writes through.
type Gateway interface {
	CreateFeedingEvent(ctx context.Context, in gateway.FeedingCreate) (models.FeedingEvent, error)
	UpdateFeedingEvent(ctx context.Context, in gateway.FeedingUpdate) error
	DeleteFeedingEvent(ctx context.Context, tankID, timestamp string) error
}

// Notifier surfaces operator-facing messages.
type Notifier interface {
	Notify(n models.Notice)
}

// ResyncFunc re-fetches the feeding tables after a mutation.
type ResyncFunc func(ctx context.Context) error

type CreateInput struct {
	FeedTime  string  `json:"feed_time"`
	QuantityG float64 `json:"quantity_g"`
}

// EditInput addresses the event by its original Timestamp.
type EditInput struct {
	Timestamp string  `json:"timestamp"`
	FeedTime  string  `json:"feed_time"`
	QuantityG float64 `json:"quantity_g"`
}

type confirmation struct {
	token     string
	timestamp string
}

type Manager struct {
	tankID   string
	gw       Gateway
	store    *store.Store
	prefs    prefs.Store
	notifier Notifier
	loc      *time.Location
	clock    scheduler.Clock
	log      *logger.Logger

	mu      sync.Mutex
	resync  ResyncFunc
	busy    map[Control]bool
	pending *confirmation
}

func NewManager(tankID string, gw Gateway, st *store.Store, ps prefs.Store, notifier Notifier, loc *time.Location, clock scheduler.Clock, log *logger.Logger) *Manager {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = scheduler.System
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		tankID:   tankID,
		gw:       gw,
		store:    st,
		prefs:    ps,
		notifier: notifier,
		loc:      loc,
		clock:    clock,
		log:      log,
		busy:     make(map[Control]bool),
	}
}

// SetResync wires the feeding-events refresh; the poller that owns it is
// created after the manager.
func (m *Manager) SetResync(fn ResyncFunc) {
	m.mu.Lock()
	m.resync = fn
	m.mu.Unlock()
}

// Busy reports which controls are currently disabled.
func (m *Manager) Busy() map[Control]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Control]bool, len(m.busy))
	for c, b := range m.busy {
		if b {
			out[c] = true
		}
	}
	return out
}

func (m *Manager) begin(c Control) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy[c] {
		return ErrControlBusy
	}
	m.busy[c] = true
	return nil
}

func (m *Manager) end(c Control) {
	m.mu.Lock()
	delete(m.busy, c)
	m.mu.Unlock()
}

// LoadDefaults restores the last-used feed form values.
func (m *Manager) LoadDefaults(ctx context.Context) models.FeedDefaults {
	if m.prefs == nil {
		return models.FeedDefaults{}
	}
	d, err := prefs.LoadFeedDefaults(ctx, m.prefs, m.tankID)
	if err != nil {
		m.log.Warnw("feed_defaults_load_failed", "tank_id", m.tankID, "err", err)
		return models.FeedDefaults{}
	}
	m.store.SetDefaults(d)
	return d
}

func validate(feedTime string, quantity float64, loc *time.Location) (time.Time, error) {
	if quantity <= 0 || quantity > MaxQuantityG {
		return time.Time{}, apperr.Validation(fmt.Sprintf("quantity must be greater than 0 and at most %.0f grams", MaxQuantityG))
	}
	if feedTime == "" {
		return time.Time{}, apperr.Validation("feed time is required")
	}
	t, err := models.ParseTime(feedTime, loc)
	if err != nil {
		return time.Time{}, apperr.Validation(err.Error())
	}
	return t, nil
}

// Create schedules a new pending feed.
func (m *Manager) Create(ctx context.Context, in CreateInput) error {
	at, err := validate(in.FeedTime, in.QuantityG, m.loc)
	if err != nil {
		return err
	}
	if err := m.begin(ControlCreate); err != nil {
		return err
	}
	defer m.end(ControlCreate)

	ev, err := m.gw.CreateFeedingEvent(ctx, gateway.FeedingCreate{TankID: m.tankID, FeedTime: at, QuantityG: in.QuantityG})
	if err != nil {
		return m.fail("create", err)
	}
	m.log.Infow("feeding_created", "tank_id", m.tankID, "timestamp", ev.Timestamp, "quantity_g", in.QuantityG)
	m.rememberDefaults(ctx, in.FeedTime, in.QuantityG)
	m.resyncAfter(ctx, "create")
	return nil
}

// Edit moves and/or updates a pending event. The event keeps the identity it
// was created with for the request; new_timestamp carries the move.
func (m *Manager) Edit(ctx context.Context, in EditInput) error {
	at, err := validate(in.FeedTime, in.QuantityG, m.loc)
	if err != nil {
		return err
	}
	ev, ok := m.store.FindPending(in.Timestamp)
	if !ok {
		return apperr.Validation("only pending feeding events can be edited")
	}
	if err := m.begin(ControlEdit); err != nil {
		return err
	}
	defer m.end(ControlEdit)

	upd := gateway.FeedingUpdate{TankID: m.tankID, Timestamp: ev.Timestamp, QuantityG: in.QuantityG}
	if !at.Equal(ev.FeedTimeScheduled) {
		upd.NewFeedTime = &at
	}
	if err := m.gw.UpdateFeedingEvent(ctx, upd); err != nil {
		return m.fail("edit", err)
	}
	m.log.Infow("feeding_updated", "tank_id", m.tankID, "timestamp", ev.Timestamp, "moved", upd.NewFeedTime != nil, "quantity_g", in.QuantityG)
	m.rememberDefaults(ctx, in.FeedTime, in.QuantityG)
	m.resyncAfter(ctx, "edit")
	return nil
}

// OpenDelete is the first phase of a delete: it returns the token that
// CommitDelete must present. Opening again replaces the previous one.
func (m *Manager) OpenDelete(timestamp string) (string, error) {
	if _, ok := m.store.FindPending(timestamp); !ok {
		return "", apperr.Validation("only pending feeding events can be deleted")
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.pending = &confirmation{token: token, timestamp: timestamp}
	m.mu.Unlock()
	return token, nil
}

// CancelDelete closes an open confirmation.
func (m *Manager) CancelDelete() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

// PendingDelete returns the timestamp awaiting confirmation, if any.
func (m *Manager) PendingDelete() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return "", false
	}
	return m.pending.timestamp, true
}

// CommitDelete issues the DELETE for the confirmed event.
func (m *Manager) CommitDelete(ctx context.Context, token string) error {
	m.mu.Lock()
	conf := m.pending
	if conf == nil || conf.token != token {
		m.mu.Unlock()
		return ErrNotConfirmed
	}
	m.pending = nil
	m.mu.Unlock()

	if err := m.begin(ControlDelete); err != nil {
		return err
	}
	defer m.end(ControlDelete)

	if err := m.gw.DeleteFeedingEvent(ctx, m.tankID, conf.timestamp); err != nil {
		return m.fail("delete", err)
	}
	m.log.Infow("feeding_deleted", "tank_id", m.tankID, "timestamp", conf.timestamp)
	m.resyncAfter(ctx, "delete")
	return nil
}

// fail surfaces a mutation error verbatim. Nothing is retried.
func (m *Manager) fail(action string, err error) error {
	logArgs := append([]interface{}{"action", action, "tank_id", m.tankID}, apperr.LogFields(err)...)
	m.log.Errorw("feeding_mutation_failed", logArgs...)
	if m.notifier != nil {
		m.notifier.Notify(models.Notice{Level: "error", Scope: noticeScope, Message: err.Error(), At: m.clock.Now().UTC()})
	}
	return err
}

func (m *Manager) rememberDefaults(ctx context.Context, feedTime string, quantity float64) {
	d := models.FeedDefaults{FeedTime: feedTime, QuantityG: quantity}
	m.store.SetDefaults(d)
	if m.prefs == nil {
		return
	}
	if err := prefs.SaveFeedDefaults(ctx, m.prefs, m.tankID, d); err != nil {
		m.log.Warnw("feed_defaults_save_failed", "tank_id", m.tankID, "err", err)
	}
}

// resyncAfter refetches the tables and returns once they are applied, so the
// caller observes its own mutation.
func (m *Manager) resyncAfter(ctx context.Context, action string) {
	m.mu.Lock()
	fn := m.resync
	m.mu.Unlock()
	if fn == nil {
		return
	}
	if err := fn(ctx); err != nil {
		m.log.Warnw("feeding_resync_failed", "action", action, "err", err)
	}
}
