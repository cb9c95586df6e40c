package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/logger"
)

var (
	// ErrInFlight is returned when a trigger arrives while a fetch of the
	// same resource is running; the trigger is dropped.
	ErrInFlight = errors.New("fetch already in flight")
	ErrClosed   = errors.New("poller closed")
)

// Phase is the fetch lifecycle of one resource.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseRetryScheduled
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseRetryScheduled:
		return "retry_scheduled"
	default:
		return "idle"
	}
}

// FetchFunc fetches and applies one resource.
type FetchFunc func(ctx context.Context) error

// Poller serializes fetches of one resource. At most one fetch is in flight;
// a failed fetch arms a single retry which any new trigger supersedes.
type Poller struct {
	name       string
	ctx        context.Context
	fetch      FetchFunc
	tasks      *TaskSet
	retryDelay time.Duration
	log        *logger.Logger

	mu      sync.Mutex
	phase   Phase
	retry   *Task
	rerun   bool
	closed  bool
	lastErr error
	idle    chan struct{} // closed when the current fetch loop ends
}

// NewPoller binds fetch to a resource name. ctx is the lifetime context used
// for retries; it is usually the controller's.
func NewPoller(ctx context.Context, name string, tasks *TaskSet, retryDelay time.Duration, fetch FetchFunc, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{
		name:       name,
		ctx:        ctx,
		fetch:      fetch,
		tasks:      tasks,
		retryDelay: retryDelay,
		log:        log,
	}
}

func (p *Poller) Name() string { return p.name }

// Run triggers a fetch. While one is in flight it returns ErrInFlight
// without calling fetch.
func (p *Poller) Run(ctx context.Context) error {
	return p.run(ctx, false)
}

// Restart is Run for triggers whose inputs changed (a new timeline, a
// mutation to resync). When a fetch is in flight it queues exactly one
// follow-up fetch instead of dropping the trigger.
func (p *Poller) Restart(ctx context.Context) error {
	return p.run(ctx, true)
}

func (p *Poller) run(ctx context.Context, restart bool) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.phase == PhaseFetching {
		if restart {
			p.rerun = true
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		return ErrInFlight
	}
	p.cancelRetryLocked()
	p.phase = PhaseFetching
	p.idle = make(chan struct{})
	p.mu.Unlock()

	for {
		err := p.fetch(ctx)

		p.mu.Lock()
		if p.rerun && !p.closed {
			p.rerun = false
			p.mu.Unlock()
			continue
		}
		p.rerun = false
		p.lastErr = err
		close(p.idle)
		p.idle = nil
		switch {
		case p.closed:
			p.phase = PhaseIdle
		case err != nil:
			p.phase = PhaseRetryScheduled
			p.retry = p.tasks.After(p.name+"_retry", p.retryDelay, p.retryNow)
			logArgs := append([]interface{}{"resource", p.name, "retry_in", p.retryDelay}, apperr.LogFields(err)...)
			p.log.Warnw("fetch_failed", logArgs...)
		default:
			p.phase = PhaseIdle
		}
		p.mu.Unlock()
		return err
	}
}

// Wait blocks until the fetch in flight, including a follow-up queued by
// Restart, has completed. It returns the outcome of the last completed fetch.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	idle, lastErr := p.idle, p.lastErr
	p.mu.Unlock()
	if idle == nil {
		return lastErr
	}
	select {
	case <-idle:
		return p.LastErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) retryNow() {
	if err := p.Run(p.ctx); err != nil && !errors.Is(err, ErrInFlight) && !errors.Is(err, ErrClosed) {
		p.log.Debugw("retry_failed", "resource", p.name)
	}
}

// CancelRetry drops a pending retry, if any.
func (p *Poller) CancelRetry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelRetryLocked()
}

func (p *Poller) cancelRetryLocked() {
	if p.retry != nil {
		p.retry.Cancel()
		p.retry = nil
	}
	if p.phase == PhaseRetryScheduled {
		p.phase = PhaseIdle
	}
}

// Close stops the poller; a fetch in flight finishes but its outcome arms
// nothing.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.rerun = false
	p.cancelRetryLocked()
}

func (p *Poller) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// LastErr is the outcome of the most recent completed fetch.
func (p *Poller) LastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
