package model

import (
	"context"
	"sync"

	"ticketdesk/internal/shared"
)

// MemoryStore keeps tickets in a mutex-guarded slice of slots.
// A nil slot is a tombstone.
type MemoryStore struct {
	mu    sync.Mutex
	slots []*Ticket
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create implements Store. It never fails.
func (s *MemoryStore) Create(_ context.Context, title string) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Ticket{ID: int64(len(s.slots)), Title: title}
	s.slots = append(s.slots, &t)
	return t, nil
}

// List implements Store. It never fails.
func (s *MemoryStore) List(_ context.Context) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Ticket, 0, len(s.slots))
	for _, t := range s.slots {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id int64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= int64(len(s.slots)) || s.slots[id] == nil {
		return Ticket{}, &shared.ResourceNotFoundError{ID: id}
	}
	t := *s.slots[id]
	s.slots[id] = nil
	return t, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Slots: len(s.slots)}
	for _, t := range s.slots {
		if t != nil {
			st.Live++
		}
	}
	st.Tombstones = st.Slots - st.Live
	return st, nil
}
