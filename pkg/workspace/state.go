package workspace

import "sync"

// State is the page-level application state shared by the flows.
type State struct {
	mu             sync.RWMutex
	chatOpen       bool
	dailyCompleted bool
	hasReports     bool
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

func (s *State) ChatOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatOpen
}

func (s *State) SetChatOpen(open bool) {
	s.mu.Lock()
	s.chatOpen = open
	s.mu.Unlock()
}

func (s *State) DailyCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dailyCompleted
}

func (s *State) SetDailyCompleted(done bool) {
	s.mu.Lock()
	s.dailyCompleted = done
	s.mu.Unlock()
}

func (s *State) HasReports() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasReports
}

func (s *State) SetHasReports(has bool) {
	s.mu.Lock()
	s.hasReports = has
	s.mu.Unlock()
}
