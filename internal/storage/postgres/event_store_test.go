package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/storage"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newRecord(mint string, src domain.Source, offset time.Duration) *storage.EventRecord {
	return &storage.EventRecord{
		EventID: uuid.NewString(),
		TokenEvent: domain.TokenEvent{
			Mint:      mint,
			Source:    src,
			EventType: domain.EventTypeNewPair,
			Market: domain.Market{
				Price:        0.0042,
				LiquidityUSD: 15000,
				Volume5m:     321,
				MarketCap:    100000,
				HolderCount:  42,
			},
			CreatedAt: base.Add(offset),
			Raw:       map[string]any{"pairAddress": "Pair" + mint, "nested": map[string]any{"usd": 1.5}},
		},
	}
}

func TestEventStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool, nil)
	ctx := context.Background()

	r := newRecord("MintAddress123", domain.SourceDexscreener, 0)
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, r.EventID)
	require.NoError(t, err)

	assert.Equal(t, r.EventID, got.EventID)
	assert.Equal(t, r.Mint, got.Mint)
	assert.Equal(t, r.Source, got.Source)
	assert.Equal(t, r.EventType, got.EventType)
	assert.Equal(t, r.Market, got.Market)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "PairMintAddress123", got.Raw["pairAddress"])
	assert.Equal(t, 1.5, got.Raw["nested"].(map[string]any)["usd"])
	assert.NotZero(t, got.StoredAt)
}

func TestEventStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool, nil)
	ctx := context.Background()

	r := newRecord("MintDup", domain.SourcePumpFun, 0)
	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)
}

func TestEventStore_NilRaw(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool, nil)
	ctx := context.Background()

	r := newRecord("MintNoRaw", domain.SourceBirdeye, 0)
	r.Raw = nil
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, r.EventID)
	require.NoError(t, err)
	assert.Nil(t, got.Raw)
}

func TestEventStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool, nil)
	_, err := store.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("pgtest", reg)
	store := NewEventStore(pool, metrics)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newRecord("MintA", domain.SourceBirdeye, 2*time.Minute)))
	require.NoError(t, store.Insert(ctx, newRecord("MintA", domain.SourceDexscreener, time.Minute)))
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Insert(ctx, newRecord(fmt.Sprintf("Ray%d", i), domain.SourceRaydium, time.Duration(i)*time.Hour)))
	}

	byMint, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, byMint, 2)
	assert.Equal(t, domain.SourceDexscreener, byMint[0].Source)
	assert.Equal(t, domain.SourceBirdeye, byMint[1].Source)

	bySource, err := store.GetBySource(ctx, domain.SourceRaydium, 2)
	require.NoError(t, err)
	require.Len(t, bySource, 2)
	assert.Equal(t, "Ray3", bySource[0].Mint)
	assert.Equal(t, "Ray2", bySource[1].Mint)

	inRange, err := store.GetByTimeRange(ctx, base, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Len(t, inRange, 3) // Ray0, MintA x2

	assert.Equal(t, 4, testutil.CollectAndCount(metrics.DBQueryDuration))
}
