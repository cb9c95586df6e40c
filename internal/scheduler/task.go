package scheduler

import (
	"sync"
	"time"

	"aquarium_dashboard/internal/logger"

	"github.com/google/uuid"
)

// Task is a cancellable scheduled callback.
type Task struct {
	ID   string
	Name string

	mu        sync.Mutex
	timer     Timer
	cancelled bool
	set       *TaskSet
}

// Cancel stops the task. Cancelling twice is harmless.
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	if t.set != nil {
		t.set.forget(t)
	}
}

// Cancelled reports whether the task was cancelled (or its set closed).
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// TaskSet tracks live tasks. After CancelAll the set is closed and new
// tasks are born cancelled.
type TaskSet struct {
	clock Clock
	log   *logger.Logger

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
}

func NewTaskSet(clock Clock, log *logger.Logger) *TaskSet {
	if clock == nil {
		clock = System
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TaskSet{clock: clock, log: log, tasks: make(map[string]*Task)}
}

// Clock returns the clock the set schedules on.
func (s *TaskSet) Clock() Clock { return s.clock }

// After runs fn once after d.
func (s *TaskSet) After(name string, d time.Duration, fn func()) *Task {
	t := s.register(name)
	if t.Cancelled() {
		return t
	}
	t.mu.Lock()
	t.timer = s.clock.AfterFunc(d, func() {
		if t.Cancelled() {
			return
		}
		s.forget(t)
		fn()
	})
	t.mu.Unlock()
	return t
}

// Every runs fn every d until the task is cancelled. The next run is armed
// after fn returns, so runs never overlap.
func (s *TaskSet) Every(name string, d time.Duration, fn func()) *Task {
	t := s.register(name)
	if t.Cancelled() {
		return t
	}
	var arm func()
	arm = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.cancelled {
			return
		}
		t.timer = s.clock.AfterFunc(d, func() {
			if t.Cancelled() {
				return
			}
			fn()
			arm()
		})
	}
	arm()
	return t
}

// CancelAll stops every live task and closes the set.
func (s *TaskSet) CancelAll() {
	s.mu.Lock()
	s.closed = true
	live := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		live = append(live, t)
	}
	s.tasks = make(map[string]*Task)
	s.mu.Unlock()

	for _, t := range live {
		t.Cancel()
	}
	s.log.Debugw("tasks_cancelled", "count", len(live))
}

// Len reports the number of live tasks.
func (s *TaskSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *TaskSet) register(name string) *Task {
	t := &Task{ID: uuid.NewString(), Name: name, set: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		t.cancelled = true
		return t
	}
	s.tasks[t.ID] = t
	return t
}

func (s *TaskSet) forget(t *Task) {
	s.mu.Lock()
	delete(s.tasks, t.ID)
	s.mu.Unlock()
}
