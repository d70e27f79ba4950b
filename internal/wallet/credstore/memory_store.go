package credstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is an in-memory implementation of the Service interface.
type MemoryStore struct {
	records map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

// Get retrieves a record by key.
func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	raw, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(ErrCorruptRecord, err.Error())
	}

	return &record, nil
}

// Set stores a record, overwriting any existing record for the key.
func (s *MemoryStore) Set(_ context.Context, key string, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal credential record")
	}

	s.mu.Lock()
	s.records[key] = raw
	s.mu.Unlock()

	return nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()

	return nil
}

// SetRaw stores an arbitrary payload without validating it decodes as a
// Record. A subsequent Get of an undecodable payload returns ErrCorruptRecord.
func (s *MemoryStore) SetRaw(_ context.Context, key string, raw []byte) error {
	s.mu.Lock()
	s.records[key] = raw
	s.mu.Unlock()

	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
