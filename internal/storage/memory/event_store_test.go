package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/storage"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func record(id, mint string, src domain.Source, offset time.Duration) *storage.EventRecord {
	return &storage.EventRecord{
		EventID: id,
		TokenEvent: domain.TokenEvent{
			Mint:      mint,
			Source:    src,
			EventType: domain.EventTypeNewToken,
			CreatedAt: base.Add(offset),
			Raw:       map[string]any{"mint": mint},
		},
		StoredAt: base.Add(offset),
	}
}

func TestEventStore_InsertAndGet(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	r := record("e1", "mint123", domain.SourcePumpFun, 0)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Mint != "mint123" || got.Source != domain.SourcePumpFun {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestEventStore_DuplicateKey(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, record("e1", "m", domain.SourcePumpFun, 0)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, record("e1", "m", domain.SourcePumpFun, 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestEventStore_InvalidInput(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, record("", "m", domain.SourcePumpFun, 0)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestEventStore_NotFound(t *testing.T) {
	store := NewEventStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventStore_GetByMintAcrossSources(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	store.Insert(ctx, record("e2", "mintA", domain.SourceBirdeye, 2*time.Second))
	store.Insert(ctx, record("e1", "mintA", domain.SourceDexscreener, time.Second))
	store.Insert(ctx, record("e3", "mintB", domain.SourceBirdeye, 0))

	got, err := store.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Source != domain.SourceDexscreener || got[1].Source != domain.SourceBirdeye {
		t.Errorf("unexpected order: %s, %s", got[0].Source, got[1].Source)
	}
}

func TestEventStore_GetBySourceNewestFirst(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Insert(ctx, record(fmt.Sprintf("e%d", i), fmt.Sprintf("m%d", i), domain.SourceRaydium, time.Duration(i)*time.Second))
	}
	store.Insert(ctx, record("other", "x", domain.SourcePumpFun, 10*time.Second))

	got, err := store.GetBySource(ctx, domain.SourceRaydium, 3)
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].EventID != "e4" || got[2].EventID != "e2" {
		t.Errorf("unexpected order: %s .. %s", got[0].EventID, got[2].EventID)
	}
}

func TestEventStore_GetByTimeRangeInclusive(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Insert(ctx, record(fmt.Sprintf("e%d", i), "m", domain.SourceMoonshot, time.Duration(i)*time.Minute))
	}

	got, err := store.GetByTimeRange(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 records, got %d", len(got))
	}
}

func TestEventStore_ReturnsCopies(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	r := record("e1", "mintA", domain.SourcePumpFun, 0)
	store.Insert(ctx, r)
	r.Raw["mint"] = "mutated"

	got, _ := store.GetByID(ctx, "e1")
	got.Mint = "changed"
	got.Raw["extra"] = true

	again, _ := store.GetByID(ctx, "e1")
	if again.Mint != "mintA" {
		t.Errorf("stored mint mutated: %s", again.Mint)
	}
	if again.Raw["mint"] != "mintA" {
		t.Errorf("stored raw mutated through insert argument: %v", again.Raw["mint"])
	}
	if _, ok := again.Raw["extra"]; ok {
		t.Error("stored raw mutated through returned copy")
	}
}

func TestEventStore_ConcurrentInsert(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Insert(ctx, record(fmt.Sprintf("e%d", i), "m", domain.SourcePumpFun, 0))
		}(i)
	}
	wg.Wait()

	if store.Len() != 100 {
		t.Errorf("expected 100 records, got %d", store.Len())
	}
}
