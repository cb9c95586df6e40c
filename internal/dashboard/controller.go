// Package dashboard owns the DashboardState: one controller holds the store,
// the pollers, the chart table and every timer, and is the only writer of
// the render sink.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"aquarium_dashboard/internal/alerts"
	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/gateway"
	"aquarium_dashboard/internal/logger"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/render"
	"aquarium_dashboard/internal/scheduler"
	"aquarium_dashboard/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Resource names used for pollers and logs.
const (
	ResourceProfile = "tank_profile"
	ResourceSensor  = "sensor_data"
	ResourceFeeding = "feeding_events"
)

var ErrTornDown = errors.New("dashboard torn down")

// Gateway is what the controller reads through.
type Gateway interface {
	FetchTankProfile(ctx context.Context, tankID string) (models.TankProfile, error)
	FetchReadings(ctx context.Context, deviceID string, tl models.Timeline) (models.ReadingWindow, error)
	FetchFeedingEvents(ctx context.Context, tankID, deviceID string) ([]models.FeedingEvent, error)
	FetchAmmoniaPrediction(ctx context.Context, in gateway.PredictionRequest) (float64, error)
	SaveTankProfile(ctx context.Context, p models.TankProfile) error
}

// Options carries identifiers and timings.
type Options struct {
	TankID          string
	DeviceID        string
	RefreshInterval time.Duration
	RetryDelay      time.Duration
	InitRetryDelay  time.Duration
	Clock           scheduler.Clock
}

type Controller struct {
	opts    Options
	gw      Gateway
	store   *store.Store
	sink    render.Sink
	feeding *feeding.Manager
	tasks   *scheduler.TaskSet
	clock   scheduler.Clock
	log     *logger.Logger
	ctx     context.Context

	profilePoller *scheduler.Poller
	sensorPoller  *scheduler.Poller
	feedingPoller *scheduler.Poller

	mu          sync.Mutex
	started     bool
	initialized bool
	tornDown    bool
	initTask    *scheduler.Task
	interval    *scheduler.Task

	renderMu     sync.Mutex
	charts       map[string]string // channel -> live renderer handle
	placeholders map[string]bool
}

func NewController(gw Gateway, st *store.Store, sink render.Sink, fm *feeding.Manager, opts Options, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.System
	}
	c := &Controller{
		opts:         opts,
		gw:           gw,
		store:        st,
		sink:         sink,
		feeding:      fm,
		tasks:        scheduler.NewTaskSet(opts.Clock, log),
		clock:        opts.Clock,
		log:          log,
		ctx:          context.Background(),
		charts:       make(map[string]string),
		placeholders: make(map[string]bool),
	}
	c.profilePoller = scheduler.NewPoller(c.ctx, ResourceProfile, c.tasks, opts.RetryDelay, c.fetchProfile, log)
	c.sensorPoller = scheduler.NewPoller(c.ctx, ResourceSensor, c.tasks, opts.RetryDelay, c.fetchSensor, log)
	c.feedingPoller = scheduler.NewPoller(c.ctx, ResourceFeeding, c.tasks, opts.RetryDelay, c.fetchFeeding, log)
	if fm != nil {
		fm.SetResync(func(ctx context.Context) error {
			return restartAndWait(ctx, c.feedingPoller)
		})
	}
	return c
}

// restartAndWait refetches with the latest inputs and returns once the
// resulting state has been applied, even when another fetch was in flight.
func restartAndWait(ctx context.Context, p *scheduler.Poller) error {
	if err := p.Restart(ctx); err != nil {
		return err
	}
	return p.Wait(ctx)
}

func ignoreInFlight(err error) error {
	if errors.Is(err, scheduler.ErrInFlight) {
		return nil
	}
	return err
}

// ---- fetch handlers (one per poller) ----

func (c *Controller) fetchProfile(ctx context.Context) error {
	p, err := c.gw.FetchTankProfile(ctx, c.opts.TankID)
	if err != nil {
		if !c.store.Closed() {
			c.showPlaceholder(models.ChannelProfile, true)
		}
		return err
	}
	if c.store.ApplyProfile(p) {
		c.showPlaceholder(models.ChannelProfile, false)
		c.renderAlerts()
	}
	return nil
}

func (c *Controller) fetchSensor(ctx context.Context) error {
	tl := c.store.Timeline()
	w, err := c.gw.FetchReadings(ctx, c.opts.DeviceID, tl)
	if err != nil {
		if !c.store.Closed() {
			for _, ch := range models.SeriesChannels {
				c.showPlaceholder(ch, true)
			}
		}
		return err
	}
	w.Timeline = tl
	if !c.store.ApplyReadings(w) {
		c.log.Debugw("stale_readings_dropped", "timeline", tl, "items", len(w.Items))
		return nil
	}
	c.renderSeries()
	c.renderAlerts()
	return nil
}

func (c *Controller) fetchFeeding(ctx context.Context) error {
	events, err := c.gw.FetchFeedingEvents(ctx, c.opts.TankID, c.opts.DeviceID)
	if err != nil {
		return err
	}
	if c.store.ApplyFeedingEvents(events) {
		c.renderFeeding()
	}
	return nil
}

// ---- lifecycle ----

// Start restores preferences and runs the initial fetch. The auto-refresh
// interval is armed only once initialization succeeds.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.tornDown {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if c.feeding != nil {
		c.feeding.LoadDefaults(ctx)
	}
	c.initialize()
}

func (c *Controller) initialize() {
	ctx := c.ctx
	view := c.store.View()

	var failed bool
	switch view {
	case models.ViewFeeding:
		failed = c.feedingPoller.Run(ctx) != nil
	default:
		profErr, sensErr := c.fetchMonitoring(ctx)
		failed = profErr != nil && sensErr != nil
		if !failed {
			c.refreshPrediction(ctx)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	if failed {
		// the whole init is retried; per-resource retries would double up
		c.profilePoller.CancelRetry()
		c.sensorPoller.CancelRetry()
		c.feedingPoller.CancelRetry()
		c.initTask = c.tasks.After("init_retry", c.opts.InitRetryDelay, c.initialize)
		c.log.Warnw("init_failed", "view", view, "retry_in", c.opts.InitRetryDelay)
		return
	}
	c.initialized = true
	c.interval = c.tasks.Every("refresh", c.opts.RefreshInterval, func() {
		if err := c.RefreshCycle(c.ctx); err != nil && !errors.Is(err, ErrTornDown) {
			c.log.Debugw("refresh_cycle_degraded", "err", err)
		}
	})
	c.log.Infow("dashboard_initialized", "view", view, "timeline", c.store.Timeline())
}

// fetchMonitoring runs the profile and sensor fetches concurrently; each
// failure is independent of the other.
func (c *Controller) fetchMonitoring(ctx context.Context) (profErr, sensErr error) {
	var g errgroup.Group
	g.Go(func() error {
		profErr = ignoreInFlight(c.profilePoller.Run(ctx))
		return nil
	})
	g.Go(func() error {
		sensErr = ignoreInFlight(c.sensorPoller.Run(ctx))
		return nil
	})
	_ = g.Wait()
	return profErr, sensErr
}

// RefreshCycle runs the cycle of the active view once.
func (c *Controller) RefreshCycle(ctx context.Context) error {
	if c.store.Closed() {
		return ErrTornDown
	}
	if c.store.View() == models.ViewFeeding {
		return ignoreInFlight(c.feedingPoller.Run(ctx))
	}
	profErr, sensErr := c.fetchMonitoring(ctx)
	c.refreshPrediction(ctx)
	return errors.Join(profErr, sensErr)
}

// Initialized reports whether the initial fetch has succeeded.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Teardown cancels every timer, marks in-flight results irrelevant and
// releases all chart renderers.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.mu.Unlock()

	c.tasks.CancelAll()
	c.profilePoller.Close()
	c.sensorPoller.Close()
	c.feedingPoller.Close()
	c.store.Close()

	c.renderMu.Lock()
	for ch := range c.charts {
		c.sink.DisposeSeries(ch)
		delete(c.charts, ch)
	}
	c.renderMu.Unlock()
	c.log.Infow("dashboard_torn_down")
}

// ---- operator actions ----

// SetTimeline switches the reading period. A change clears the charts and
// triggers exactly one new sensor fetch; a response for the previous
// timeline that is still in flight is discarded.
func (c *Controller) SetTimeline(ctx context.Context, tl models.Timeline) error {
	if c.store.Closed() {
		return ErrTornDown
	}
	if !c.store.SetTimeline(tl) {
		return nil
	}
	c.log.Infow("timeline_changed", "timeline", tl)
	c.clearSeries()
	c.renderAlerts()
	return ignoreInFlight(c.sensorPoller.Restart(ctx))
}

// SetView switches between the monitoring and feeding pages and runs the
// new page's cycle immediately.
func (c *Controller) SetView(ctx context.Context, v models.View) error {
	if c.store.Closed() {
		return ErrTornDown
	}
	if !c.store.SetView(v) {
		return nil
	}
	c.log.Infow("view_changed", "view", v)
	if !c.Initialized() {
		return nil
	}
	return c.RefreshCycle(ctx)
}

// SaveSettings replaces the tank profile on the backend and re-derives the
// panels that depend on it.
func (c *Controller) SaveSettings(ctx context.Context, p models.TankProfile) error {
	if c.store.Closed() {
		return ErrTornDown
	}
	if err := validateProfile(p); err != nil {
		return err
	}
	p.TankID = c.opts.TankID
	if err := c.gw.SaveTankProfile(ctx, p); err != nil {
		logArgs := append([]interface{}{"tank_id", c.opts.TankID}, apperr.LogFields(err)...)
		c.log.Errorw("settings_save_failed", logArgs...)
		c.sink.Notify(models.Notice{Level: "error", Scope: "settings", Message: err.Error(), At: c.clock.Now().UTC()})
		return err
	}
	c.log.Infow("settings_saved", "tank_id", c.opts.TankID)
	c.sink.Notify(models.Notice{Level: "info", Scope: "settings", Message: "settings saved", At: c.clock.Now().UTC()})

	if err := restartAndWait(ctx, c.profilePoller); err != nil {
		// the saved values are authoritative until the next successful fetch
		if c.store.ApplyProfile(p) {
			c.renderAlerts()
		}
	}
	c.store.ClearPrediction()
	c.refreshPrediction(ctx)
	return nil
}

func validateProfile(p models.TankProfile) error {
	switch {
	case p.VolumeLiters != nil && *p.VolumeLiters <= 0:
		return apperr.Validation("tank volume must be greater than 0 liters")
	case p.AppropriateWaterLevel != nil && *p.AppropriateWaterLevel < 0:
		return apperr.Validation("appropriate water level must not be negative")
	case p.FishCounts.Small < 0, p.FishCounts.Medium < 0, p.FishCounts.Large < 0, p.FishCounts.ExtraLarge < 0:
		return apperr.Validation("fish counts must not be negative")
	}
	return nil
}

// Predict asks the model for the ammonia level a feed of quantity grams
// would produce in the current tank.
func (c *Controller) Predict(ctx context.Context, quantity float64) (models.Prediction, error) {
	if quantity <= 0 || quantity > feeding.MaxQuantityG {
		return models.Prediction{}, apperr.Validation("quantity must be greater than 0 and at most 10 grams")
	}
	profile, ok := c.store.Profile()
	if !ok || profile.VolumeLiters == nil {
		return models.Prediction{}, apperr.Validation("tank volume is unknown; save the tank settings first")
	}

	v, err := c.gw.FetchAmmoniaPrediction(ctx, gateway.PredictionRequest{
		TankVolumeLiters: *profile.VolumeLiters,
		FishSmall:        profile.FishCounts.Small,
		FishMedium:       profile.FishCounts.Medium,
		FishLarge:        profile.FishCounts.Large,
		FishXLarge:       profile.FishCounts.ExtraLarge,
		FeedQuantityG:    quantity,
	})
	if err != nil {
		logArgs := append([]interface{}{"quantity_g", quantity}, apperr.LogFields(err)...)
		c.log.Warnw("prediction_failed", logArgs...)
		if !c.store.Closed() {
			c.showPlaceholder(models.ChannelPrediction, true)
		}
		return models.Prediction{}, err
	}

	pred := models.Prediction{AmmoniaPPM: v, QuantityG: quantity, RequestedAt: c.clock.Now().UTC()}
	if c.store.ApplyPrediction(pred) {
		c.showPlaceholder(models.ChannelPrediction, false)
		c.sink.RenderPrediction(pred)
	}
	return pred, nil
}

// refreshPrediction re-runs the prediction for the last-used quantity when
// the inputs are known.
func (c *Controller) refreshPrediction(ctx context.Context) {
	qty := c.store.Defaults().QuantityG
	profile, ok := c.store.Profile()
	if qty <= 0 || !ok || profile.VolumeLiters == nil {
		return
	}
	_, _ = c.Predict(ctx, qty)
}

// Alerts derives the current alert list.
func (c *Controller) Alerts() []models.Alert {
	var profile *models.TankProfile
	if p, ok := c.store.Profile(); ok {
		profile = &p
	}
	return alerts.Derive(c.store.LatestReading(), profile)
}

// Feeding exposes the lifecycle manager.
func (c *Controller) Feeding() *feeding.Manager { return c.feeding }

// ---- rendering ----

func (c *Controller) showPlaceholder(channel string, show bool) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.placeholders[channel] = show
	c.sink.ShowPlaceholder(channel, show)
}

// renderSeries re-renders every channel from the current window. A channel's
// previous renderer is disposed first.
func (c *Controller) renderSeries() {
	w, ok := c.store.Window()
	if !ok {
		return
	}
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.store.Closed() {
		return
	}
	for _, ch := range models.SeriesChannels {
		if _, live := c.charts[ch]; live {
			c.sink.DisposeSeries(ch)
		}
		empty := len(w.Items) == 0
		c.placeholders[ch] = empty
		c.sink.ShowPlaceholder(ch, empty)
		c.sink.RenderSeries(ch, w.Series(ch))
		c.charts[ch] = uuid.NewString()
	}
}

// clearSeries disposes every chart and shows placeholders until new data
// arrives.
func (c *Controller) clearSeries() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	for _, ch := range models.SeriesChannels {
		if _, live := c.charts[ch]; live {
			c.sink.DisposeSeries(ch)
			delete(c.charts, ch)
		}
		c.placeholders[ch] = true
		c.sink.ShowPlaceholder(ch, true)
	}
}

// renderAlerts re-derives the alert panel from the current state. Deriving
// under renderMu keeps the last frame sent in line with the last state applied.
func (c *Controller) renderAlerts() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.store.Closed() {
		return
	}
	c.sink.RenderAlerts(c.Alerts())
}

func (c *Controller) renderFeeding() {
	c.sink.RenderFeedingTables(models.Rows(c.store.Pending()), models.Rows(c.store.History()))
}
