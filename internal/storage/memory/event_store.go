package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*storage.EventRecord // keyed by event_id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*storage.EventRecord),
	}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert adds a record. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(_ context.Context, r *storage.EventRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.EventID] = clone(r)
	return nil
}

// GetByID retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(_ context.Context, eventID string) (*storage.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[eventID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clone(r), nil
}

// GetByMint retrieves all events for a mint, ordered by receipt time ASC.
func (s *EventStore) GetByMint(_ context.Context, mint string) ([]*storage.EventRecord, error) {
	result := s.filter(func(r *storage.EventRecord) bool { return r.Mint == mint })
	sortAsc(result)
	return result, nil
}

// GetBySource retrieves the newest events of a source, newest first.
func (s *EventStore) GetBySource(_ context.Context, source domain.Source, limit int) ([]*storage.EventRecord, error) {
	result := s.filter(func(r *storage.EventRecord) bool { return r.Source == source })
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].EventID > result[j].EventID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetByTimeRange retrieves events received within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*storage.EventRecord, error) {
	result := s.filter(func(r *storage.EventRecord) bool {
		return !r.CreatedAt.Before(start) && !r.CreatedAt.After(end)
	})
	sortAsc(result)
	return result, nil
}

// Len returns the number of stored records.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *EventStore) filter(keep func(*storage.EventRecord) bool) []*storage.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.EventRecord
	for _, r := range s.data {
		if keep(r) {
			result = append(result, clone(r))
		}
	}
	return result
}

func sortAsc(result []*storage.EventRecord) {
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].EventID < result[j].EventID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
}

// clone copies r so callers cannot mutate stored state.
func clone(r *storage.EventRecord) *storage.EventRecord {
	c := *r
	c.Raw = maps.Clone(r.Raw)
	return &c
}
