package storage

import (
	"context"
	"sort"
	"sync"

	"epigonos/internal/model"
)

type MemoryStore struct {
	mu        sync.RWMutex
	operators map[memoryKey]model.DynamicOperatorRecord
}

type memoryKey struct {
	kind string
	name string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init prepares the store. Re-initializing a live store keeps its records,
// matching the sqlite backend, so a restarted hub sees what was persisted.
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.operators == nil {
		s.operators = make(map[memoryKey]model.DynamicOperatorRecord)
	}
	return nil
}

func (s *MemoryStore) SaveDynamicOperator(_ context.Context, record model.DynamicOperatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operators[memoryKey{kind: record.Kind, name: record.Name}] = record
	return nil
}

func (s *MemoryStore) GetDynamicOperator(_ context.Context, kind, name string) (model.DynamicOperatorRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.operators[memoryKey{kind: kind, name: name}]
	return record, ok, nil
}

func (s *MemoryStore) ListDynamicOperators(_ context.Context, kind string) ([]model.DynamicOperatorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.DynamicOperatorRecord, 0)
	for key, record := range s.operators {
		if key.kind == kind {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) DeleteDynamicOperator(_ context.Context, kind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.operators, memoryKey{kind: kind, name: name})
	return nil
}

func (s *MemoryStore) DeleteDynamicOperators(_ context.Context, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.operators {
		if key.kind == kind {
			delete(s.operators, key)
		}
	}
	return nil
}
