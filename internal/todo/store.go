// Package todo holds the process-wide list of submitted todo items.
package todo

import "sync"

// Store is an ordered, append-only list of todo items. Insertion order is
// display order; duplicates are allowed and there is no size limit.
//
// A Store is created once at start-up and shared by reference with every
// handler. The zero value is ready to use.
type Store struct {
	mu    sync.Mutex
	items []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds item to the end of the list and returns a copy of the whole
// list, including item. The lock covers only the append and the copy.
func (s *Store) Append(item string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	return s.snapshotLocked()
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

func (s *Store) snapshotLocked() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
