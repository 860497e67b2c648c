package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenEvent_MissingMint(t *testing.T) {
	_, err := NewTokenEvent(SourcePumpFun, EventTypeNewToken, "", Market{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingMint))
	assert.Equal(t, "payload", ErrorKind(err))
}

func TestNewTokenEvent_Defaults(t *testing.T) {
	before := time.Now().UTC()
	ev, err := NewTokenEvent(SourceBirdeye, EventTypeTrending, "mintA", Market{Price: 1.5}, nil)
	require.NoError(t, err)

	assert.Equal(t, "mintA", ev.Mint)
	assert.Equal(t, SourceBirdeye, ev.Source)
	assert.Equal(t, 1.5, ev.Price)
	assert.Zero(t, ev.LiquidityUSD)
	assert.Zero(t, ev.Volume5m)
	assert.Zero(t, ev.MarketCap)
	assert.Zero(t, ev.HolderCount)
	assert.False(t, ev.CreatedAt.Before(before))
}

func TestNewTokenEvent_RawIsCopied(t *testing.T) {
	raw := map[string]any{"mint": "mintA", "name": "Alpha"}
	ev, err := NewTokenEvent(SourcePumpFun, EventTypeNewToken, "mintA", Market{}, raw)
	require.NoError(t, err)

	raw["name"] = "mutated"
	assert.Equal(t, "Alpha", ev.Raw["name"])
}

func TestDedupKey_SourceScoped(t *testing.T) {
	a, _ := NewTokenEvent(SourceDexscreener, EventTypeNewPair, "M", Market{}, nil)
	b, _ := NewTokenEvent(SourceBirdeye, EventTypeTrending, "M", Market{}, nil)
	c, _ := NewTokenEvent(SourceDexscreener, EventTypeTrending, "M", Market{}, nil)

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	assert.Equal(t, a.DedupKey(), c.DedupKey())
}

func TestSource_IsValid(t *testing.T) {
	for _, s := range AllSources() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Source("coinbase").IsValid())

	_, err := ParseSource("coinbase")
	assert.ErrorIs(t, err, ErrUnknownSource)

	src, err := ParseSource("raydium")
	require.NoError(t, err)
	assert.Equal(t, SourceRaydium, src)
}

func TestSourceStats_Clone(t *testing.T) {
	want := time.Now()
	last := want
	s := SourceStats{TokensReceived: 3, LastEvent: &last}
	c := s.Clone()

	*s.LastEvent = want.Add(time.Hour)
	assert.Equal(t, want, *c.LastEvent)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "consumer", ErrorKind(fmt.Errorf("%w: boom", ErrConsumer)))
	assert.Equal(t, "panic", ErrorKind(fmt.Errorf("%w: nil map", ErrConnectorPanic)))
	assert.Equal(t, "payload", ErrorKind(fmt.Errorf("decode: %w", ErrMalformedPayload)))
	assert.Equal(t, "transport", ErrorKind(errors.New("connection refused")))
}
