package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/storage"
)

// Store appends every delivered event to an EventStore under a fresh UUID.
type Store struct {
	store storage.EventStore
	now   func() time.Time
}

var _ hub.Consumer = (*Store)(nil)

// NewStore creates a persisting consumer.
func NewStore(store storage.EventStore) *Store {
	return &Store{store: store, now: time.Now}
}

// OnTokenEvent inserts ev.
func (s *Store) OnTokenEvent(ctx context.Context, ev domain.TokenEvent) error {
	rec := &storage.EventRecord{
		EventID:    uuid.NewString(),
		TokenEvent: ev,
		StoredAt:   s.now().UTC(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return fmt.Errorf("store event %s/%s: %w", ev.Source, ev.Mint, err)
	}
	return nil
}
