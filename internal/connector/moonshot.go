package connector

import (
	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
)

// Moonshot streams new tokens and falls back to polling for good when the
// stream cannot be established at startup.
type Moonshot struct {
	*Stream
}

var moonshotSubscribe = map[string]string{"type": "subscribe", "channel": "newTokens", "chain": "solana"}

// NewMoonshot creates the Moonshot connector with its polling fallback.
func NewMoonshot(cfg config.SourceConfig, deps Deps) *Moonshot {
	deps = deps.withDefaults(cfg)

	fallback := NewPoll(PollConfig{
		Source:         domain.SourceMoonshot,
		URL:            cfg.PollURL,
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Extract:        extractMoonshot,
		Map:            mapMoonshot,
		Fetcher:        deps.Fetcher,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})

	return &Moonshot{Stream: NewStream(StreamConfig{
		Source:     domain.SourceMoonshot,
		URL:        cfg.StreamURL,
		Subscribe:  moonshotSubscribe,
		RetryDelay: cfg.RetryDelay,
		Map:        mapMoonshot,
		Fallback:   fallback,
		Dialer:     deps.Dialer,
		Logger:     deps.Logger,
		Metrics:    deps.Metrics,
	})}
}

func extractMoonshot(body []byte) ([]map[string]any, error) {
	return decodeList(body, "tokens", "data", "pairs")
}

// mapMoonshot accepts both stream envelopes ({"type":..,"data":{..}}) and
// bare polled token records.
func mapMoonshot(rec map[string]any) (domain.TokenEvent, bool, error) {
	body := rec
	if data, ok := rec["data"].(map[string]any); ok {
		body = data
	}

	mint := str(body, "mintAddress", "tokenAddress", "mint", "baseToken.address")
	if mint == "" {
		if _, ack := rec["type"]; ack && rec["data"] == nil {
			return domain.TokenEvent{}, false, nil
		}
		return domain.TokenEvent{}, false, missingMint(domain.SourceMoonshot)
	}

	m := domain.Market{
		Price:        numOr(body, "priceUsd", "price"),
		LiquidityUSD: numOr(body, "liquidity.usd", "liquidityUsd"),
		Volume5m:     numOr(body, "volume.m5", "volume5m"),
		MarketCap:    numOr(body, "marketCap", "fdv"),
	}
	ev, err := domain.NewTokenEvent(domain.SourceMoonshot, domain.EventTypeNewToken, mint, m, rec)
	return ev, err == nil, err
}
