// Package scheduler owns every timer of the dashboard: the auto-refresh
// interval, per-resource retries and the init retry. All of them are
// cancellable handles collected in a TaskSet so teardown can stop them at once.
package scheduler

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so scheduling can be driven manually in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// System is the wall clock.
var System Clock = systemClock{}
