package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used for tests and as the default
// driver when no persistence backend is configured. Query results follow
// insertion order unless an explicit ordering is requested.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	order       map[string][]string

	// FailSet, when non-nil, is consulted before every write; returning
	// an error simulates a persistence fault for tests.
	FailSet func(collection, id string) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		order:       make(map[string][]string),
	}
}

func (s *MemoryStore) GetDocument(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) SetDocument(_ context.Context, collection, id string, fields Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSet != nil {
		if err := s.FailSet(collection, id); err != nil {
			return err
		}
	}

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}

	existing, exists := coll[id]
	if merge && exists {
		merged := existing.Clone()
		for k, v := range fields {
			merged[k] = v
		}
		coll[id] = merged
	} else {
		coll[id] = fields.Clone()
	}

	if !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	return nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, collection, id string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSet != nil {
		if err := s.FailSet(collection, id); err != nil {
			return err
		}
	}

	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}

	updated := existing.Clone()
	for k, v := range fields {
		updated[k] = v
	}
	s.collections[collection][id] = updated
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters []Filter, opts ...QueryOption) ([]Document, error) {
	o := applyOptions(opts)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Document
	for _, id := range s.order[collection] {
		doc, ok := s.collections[collection][id]
		if !ok {
			continue
		}
		if matches(doc, filters) {
			results = append(results, doc.Clone())
		}
	}

	sortDocuments(results, o.OrderBy)
	if o.Limit > 0 && int64(len(results)) > o.Limit {
		results = results[:o.Limit]
	}
	return results, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
