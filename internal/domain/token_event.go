package domain

import (
	"maps"
	"time"
)

// Event types emitted by the bundled connectors. The set is open: connectors
// may introduce new values.
const (
	EventTypeNewToken = "new_token"
	EventTypeNewPair  = "new_pair"
	EventTypeTrending = "trending"
)

// Market holds the optional numeric fields of a TokenEvent.
// Fields the provider omits stay zero.
type Market struct {
	Price        float64 `json:"price"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume5m     float64 `json:"volume_5m"`
	MarketCap    float64 `json:"market_cap"`
	HolderCount  int     `json:"holder_count"`
}

// TokenEvent is the canonical observation of a token by one source.
// It is passed by value and never mutated after NewTokenEvent returns;
// Raw must be treated as read-only by every consumer.
type TokenEvent struct {
	Mint      string `json:"mint"`
	Source    Source `json:"source"`
	EventType string `json:"event_type"`
	Market
	CreatedAt time.Time      `json:"created_at"` // aggregator receipt time
	Raw       map[string]any `json:"raw,omitempty"`
}

// NewTokenEvent builds a TokenEvent stamped with the current time.
// Returns ErrMissingMint if mint is empty.
func NewTokenEvent(source Source, eventType, mint string, m Market, raw map[string]any) (TokenEvent, error) {
	if mint == "" {
		return TokenEvent{}, ErrMissingMint
	}
	return TokenEvent{
		Mint:      mint,
		Source:    source,
		EventType: eventType,
		Market:    m,
		CreatedAt: time.Now().UTC(),
		Raw:       maps.Clone(raw),
	}, nil
}

// DedupKey returns the key used to suppress same-source repeats.
// Different sources never share a key for the same mint.
func (e TokenEvent) DedupKey() string {
	return DedupKey(e.Mint, e.Source)
}

// DedupKey joins mint and source into a dedup cache key.
func DedupKey(mint string, source Source) string {
	return mint + "|" + string(source)
}
