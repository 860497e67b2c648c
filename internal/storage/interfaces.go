// Package storage defines persistence for delivered token events. The
// scanner core keeps no durable state; stores are downstream consumers.
package storage

import (
	"context"
	"time"

	"solana-token-scanner/internal/domain"
)

// EventRecord is a delivered TokenEvent with its storage identity.
type EventRecord struct {
	EventID string `json:"event_id"` // UUID assigned by the writer
	domain.TokenEvent
	StoredAt time.Time `json:"stored_at"`
}

// EventStore provides access to token_events storage. Append-only.
type EventStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, r *EventRecord) error

	// GetByID retrieves a record. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, eventID string) (*EventRecord, error)

	// GetByMint retrieves every source's events for a mint, ordered by
	// receipt time ASC. Used for cross-source confirmation downstream.
	GetByMint(ctx context.Context, mint string) ([]*EventRecord, error)

	// GetBySource retrieves the newest events of a source, newest first.
	GetBySource(ctx context.Context, source domain.Source, limit int) ([]*EventRecord, error)

	// GetByTimeRange retrieves events received within [start, end], ordered ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*EventRecord, error)
}
