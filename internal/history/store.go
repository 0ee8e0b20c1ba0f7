// Package history keeps the per-tenant conversation context fed back to the
// assistant. The store is process-wide and deliberately volatile: a restart
// or an explicit clear is the only way entries leave besides the bound.
package history

import "sync"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one conversation entry.
type Turn struct {
	Role    string
	Content string
}

// Store is a bounded per-tenant turn buffer. Capacity is counted in
// question/answer pairs; once a tenant exceeds it the oldest entries are
// evicted front-first.
type Store struct {
	mu       sync.Mutex
	maxPairs int
	turns    map[string][]Turn
}

// NewStore creates a store retaining at most maxPairs question/answer pairs
// per tenant.
func NewStore(maxPairs int) *Store {
	return &Store{
		maxPairs: maxPairs,
		turns:    make(map[string][]Turn),
	}
}

// Turns returns the tenant's turns, oldest first. The returned slice is a
// copy; appends elsewhere cannot mutate it.
func (s *Store) Turns(tenantID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns[tenantID]...)
}

// Append adds one turn and enforces the bound.
func (s *Store) Append(tenantID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[tenantID], turn)
	if max := s.maxPairs * 2; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	s.turns[tenantID] = turns
}

// Clear drops the tenant's history.
func (s *Store) Clear(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, tenantID)
}
