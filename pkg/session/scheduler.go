package session

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Scheduler runs the most recently armed task once no new task has been
// armed for the configured delay.
type Scheduler struct {
	debounced func(func())

	mu      sync.Mutex
	pending func()
}

// NewScheduler creates a scheduler with the given quiet period.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{debounced: debounce.New(delay)}
}

// Arm replaces the pending task and restarts the delay.
func (s *Scheduler) Arm(task func()) {
	s.mu.Lock()
	s.pending = task
	s.mu.Unlock()
	s.debounced(s.fire)
}

// Cancel drops the pending task, if any.
func (s *Scheduler) Cancel() {
	s.take()
}

// Flush runs the pending task synchronously and reports whether there was one.
func (s *Scheduler) Flush() bool {
	task := s.take()
	if task == nil {
		return false
	}
	task()
	return true
}

// Pending reports whether a task is waiting for the delay to elapse.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Scheduler) take() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := s.pending
	s.pending = nil
	return task
}

func (s *Scheduler) fire() {
	if task := s.take(); task != nil {
		task()
	}
}
