package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/storage"
	"solana-token-scanner/internal/storage/memory"
)

func testEvent(mint string, src domain.Source) domain.TokenEvent {
	return domain.TokenEvent{
		Mint:      mint,
		Source:    src,
		EventType: domain.EventTypeNewPair,
		Market:    domain.Market{Price: 0.5, LiquidityUSD: 1000, MarketCap: 25000},
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Raw:       map[string]any{"pairAddress": "Pair1"},
	}
}

func TestFanout_CallsAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	var calls []string

	f := Fanout{
		hub.ConsumerFunc(func(context.Context, domain.TokenEvent) error {
			calls = append(calls, "a")
			return errA
		}),
		hub.ConsumerFunc(func(context.Context, domain.TokenEvent) error {
			calls = append(calls, "b")
			return nil
		}),
		nil,
		hub.ConsumerFunc(func(context.Context, domain.TokenEvent) error {
			calls = append(calls, "c")
			return errC
		}),
	}

	err := f.OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourcePumpFun))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout{}.OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourcePumpFun)))
}

func TestLog_WritesEvent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l, err := logger.New(logger.Config{Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	l.SetOutput(&buf)

	require.NoError(t, NewLog(l).OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourceDexscreener)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sink", line["component"])
	assert.Equal(t, "dexscreener", line["source"])
	assert.Equal(t, "Mint1", line["mint"])
	assert.Equal(t, domain.EventTypeNewPair, line["event_type"])
	assert.Equal(t, "token event", line["message"])
}

func TestLog_NilLogger(t *testing.T) {
	assert.NoError(t, NewLog(nil).OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourceBirdeye)))
}

func TestStore_InsertsWithFreshIDs(t *testing.T) {
	store := memory.NewEventStore()
	s := NewStore(store)
	ctx := context.Background()

	require.NoError(t, s.OnTokenEvent(ctx, testEvent("Mint1", domain.SourceRaydium)))
	require.NoError(t, s.OnTokenEvent(ctx, testEvent("Mint1", domain.SourceDexscreener)))

	got, err := store.GetByMint(ctx, "Mint1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].EventID, got[1].EventID)
	assert.Len(t, got[0].EventID, 36)
	assert.False(t, got[0].StoredAt.IsZero())
}

func TestStore_WrapsInsertError(t *testing.T) {
	s := NewStore(memory.NewEventStore())

	ev := testEvent("", domain.SourceRaydium)
	err := s.OnTokenEvent(context.Background(), ev)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

type fakePublisher struct {
	published map[string][][]byte
	streamed  map[string][][]byte
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		published: make(map[string][][]byte),
		streamed:  make(map[string][][]byte),
	}
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published[channel] = append(p.published[channel], payload)
	return nil
}

func (p *fakePublisher) StreamAppend(_ context.Context, stream string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.streamed[stream] = append(p.streamed[stream], payload)
	return nil
}

func TestRedis_PublishesJSON(t *testing.T) {
	pub := newFakePublisher()
	r := NewRedis(pub, "events", "")

	require.NoError(t, r.OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourcePumpFun)))

	require.Len(t, pub.published["events"], 1)
	assert.Empty(t, pub.streamed)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.published["events"][0], &decoded))
	assert.Equal(t, "Mint1", decoded["mint"])
	assert.Equal(t, "pumpfun", decoded["source"])
	assert.Equal(t, 0.5, decoded["price"])
	assert.Equal(t, "Pair1", decoded["raw"].(map[string]any)["pairAddress"])
}

func TestRedis_AlsoAppendsToStream(t *testing.T) {
	pub := newFakePublisher()
	r := NewRedis(pub, "events", "events:log")

	require.NoError(t, r.OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourcePumpFun)))

	assert.Len(t, pub.published["events"], 1)
	assert.Len(t, pub.streamed["events:log"], 1)
}

func TestRedis_PublishError(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("connection refused")

	err := NewRedis(pub, "events", "events:log").OnTokenEvent(context.Background(), testEvent("Mint1", domain.SourcePumpFun))
	assert.ErrorIs(t, err, pub.err)
}
