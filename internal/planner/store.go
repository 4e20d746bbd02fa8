package planner

import (
	"sort"
	"sync"
)

// Store keeps built plans in memory for later retrieval. Plans are
// treated as read-only once stored.
type Store struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewStore creates an empty plan store.
func NewStore() *Store {
	return &Store{plans: make(map[string]*Plan)}
}

// Put stores a plan, replacing any previous plan with the same ID.
func (s *Store) Put(p *Plan) {
	if p == nil || p.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// Get returns the plan with the given ID.
func (s *Store) Get(id string) (*Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	return p, ok
}

// List returns all plans, newest first.
func (s *Store) List() []*Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len reports how many plans are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plans)
}
