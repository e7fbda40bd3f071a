// Package history keeps a bounded record of recent agent executions.
package history

import (
	"sync"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
)

// DefaultCapacity is the number of executions retained when none is given
const DefaultCapacity = 100

// Entry is one finished execution
type Entry struct {
	RunID      model.RunID
	AgentType  model.AgentType
	Mode       model.RunMode
	Status     model.RunStatus
	GroupID    model.GroupID
	GroupSize  int
	Message    string
	Duration   time.Duration
	RecordedAt time.Time
}

// Store is a fixed-capacity ring buffer of entries, safe for concurrent use
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	last    map[model.AgentType]Entry
	now     func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithCapacity sets how many entries are retained
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.entries = make([]Entry, n)
		}
	}
}

// WithClock replaces the clock stamping RecordedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		entries: make([]Entry, DefaultCapacity),
		last:    make(map[model.AgentType]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends an entry, evicting the oldest one when full
func (s *Store) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	s.last[e.AgentType] = e
}

// Len returns the number of retained entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.entries)
	}
	return s.next
}

// Cap returns the capacity
func (s *Store) Cap() int {
	return len(s.entries)
}

// List returns retained entries newest first. Empty agentType returns all agents.
func (s *Store) List(agentType model.AgentType) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.entries)
	}

	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.entries)) % len(s.entries)
		e := s.entries[idx]
		if agentType != "" && e.AgentType != agentType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Last returns the most recent entry of the agent type. The last status survives
// eviction from the ring.
func (s *Store) Last(agentType model.AgentType) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.last[agentType]
	return e, ok
}
