package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/storage"
)

const dbLabel = "postgres"

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewEventStore creates a new EventStore. metrics may be nil.
func NewEventStore(pool *Pool, metrics *observability.Metrics) *EventStore {
	return &EventStore{pool: pool, metrics: metrics}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const selectColumns = `
	event_id, mint, source, event_type, price, liquidity_usd, volume_5m,
	market_cap, holder_count, received_at, raw, stored_at
`

// Insert adds a record. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(ctx context.Context, r *storage.EventRecord) (err error) {
	if err := r.Validate(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery(dbLabel, "insert_event", time.Since(start), err) }()

	var raw []byte
	if r.Raw != nil {
		raw, err = json.Marshal(r.Raw)
		if err != nil {
			return fmt.Errorf("marshal raw payload: %w", err)
		}
	}

	query := `
		INSERT INTO token_events (
			event_id, mint, source, event_type, price, liquidity_usd, volume_5m,
			market_cap, holder_count, received_at, raw
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.pool.Exec(ctx, query,
		r.EventID,
		r.Mint,
		string(r.Source),
		r.EventType,
		r.Price,
		r.LiquidityUSD,
		r.Volume5m,
		r.MarketCap,
		r.HolderCount,
		r.CreatedAt,
		raw,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token event: %w", err)
	}
	return nil
}

// GetByID retrieves a record by ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(ctx context.Context, eventID string) (*storage.EventRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM token_events WHERE event_id = $1`

	r, err := scanEvent(s.pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token event by id: %w", err)
	}
	return r, nil
}

// GetByMint retrieves all events for a mint, ordered by receipt time ASC.
func (s *EventStore) GetByMint(ctx context.Context, mint string) ([]*storage.EventRecord, error) {
	query := `SELECT ` + selectColumns + `
		FROM token_events
		WHERE mint = $1
		ORDER BY received_at ASC, event_id ASC
	`
	return s.query(ctx, "get_by_mint", query, mint)
}

// GetBySource retrieves the newest events of a source, newest first.
func (s *EventStore) GetBySource(ctx context.Context, source domain.Source, limit int) ([]*storage.EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + selectColumns + `
		FROM token_events
		WHERE source = $1
		ORDER BY received_at DESC, event_id DESC
		LIMIT $2
	`
	return s.query(ctx, "get_by_source", query, string(source), limit)
}

// GetByTimeRange retrieves events received within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*storage.EventRecord, error) {
	query := `SELECT ` + selectColumns + `
		FROM token_events
		WHERE received_at >= $1 AND received_at <= $2
		ORDER BY received_at ASC, event_id ASC
	`
	return s.query(ctx, "get_by_time_range", query, start, end)
}

func (s *EventStore) query(ctx context.Context, op, query string, args ...any) (result []*storage.EventRecord, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery(dbLabel, op, time.Since(start), err) }()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanEvent(row pgx.Row) (*storage.EventRecord, error) {
	var (
		r      storage.EventRecord
		source string
		raw    []byte
	)
	err := row.Scan(
		&r.EventID,
		&r.Mint,
		&source,
		&r.EventType,
		&r.Price,
		&r.LiquidityUSD,
		&r.Volume5m,
		&r.MarketCap,
		&r.HolderCount,
		&r.CreatedAt,
		&raw,
		&r.StoredAt,
	)
	if err != nil {
		return nil, err
	}
	r.Source = domain.Source(source)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &r.Raw); err != nil {
			return nil, fmt.Errorf("unmarshal raw payload: %w", err)
		}
	}
	return &r, nil
}
