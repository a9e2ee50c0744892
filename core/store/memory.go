// Package store provides the core.Store implementations: an in-memory map
// and a SQLite-backed store with per-kind JSON codecs.
package store

import (
	"sync"

	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/errors"
)

// MemoryStore keeps data items in a map. Get returns the very object that
// was set, so in-place attribute additions are visible to every holder.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]core.DataItem
	parentOf map[string]string
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]core.DataItem),
		parentOf: make(map[string]string),
	}
}

// Get returns the item stored under id
func (s *MemoryStore) Get(id string) (core.DataItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("no data item with id %s", id)
	}
	return item, nil
}

// Set stores item under its id. An empty parentID keeps a previously
// recorded parent.
func (s *MemoryStore) Set(item core.DataItem, parentID string) error {
	if item == nil {
		return errors.NewInvalidRequestError("cannot store nil data item")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID()] = item
	if parentID != "" {
		s.parentOf[item.ID()] = parentID
	}
	return nil
}

// ParentID returns the recorded parent of id, if any
func (s *MemoryStore) ParentID(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parentOf[id]
	return p, ok
}

// Len returns the number of stored items
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
