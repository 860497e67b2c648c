package connector

import (
	"time"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
)

// DefaultMaxPairAge is the oldest pair Dexscreener forwards.
const DefaultMaxPairAge = 2 * time.Hour

const solanaChainID = "solana"

// Dexscreener polls the pair search endpoint and forwards recent Solana pairs.
type Dexscreener struct {
	*Poll
}

// NewDexscreener creates the Dexscreener polling connector.
func NewDexscreener(cfg config.SourceConfig, deps Deps) *Dexscreener {
	deps = deps.withDefaults(cfg)
	maxAge := cfg.MaxPairAge
	if maxAge <= 0 {
		maxAge = DefaultMaxPairAge
	}

	return &Dexscreener{Poll: NewPoll(PollConfig{
		Source:         domain.SourceDexscreener,
		URL:            cfg.PollURL,
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Extract:        extractDexscreener,
		Map:            dexscreenerMapper(maxAge, deps.Now),
		Fetcher:        deps.Fetcher,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})}
}

func extractDexscreener(body []byte) ([]map[string]any, error) {
	return decodeList(body, "pairs")
}

// dexscreenerMapper drops pairs on other chains, pairs without a creation
// time and pairs older than maxAge.
func dexscreenerMapper(maxAge time.Duration, now func() time.Time) RecordMapper {
	return func(rec map[string]any) (domain.TokenEvent, bool, error) {
		if chain := str(rec, "chainId"); chain != "" && chain != solanaChainID {
			return domain.TokenEvent{}, false, nil
		}

		createdMs, ok := num(rec, "pairCreatedAt")
		if !ok || createdMs <= 0 {
			return domain.TokenEvent{}, false, nil
		}
		created := time.UnixMilli(int64(createdMs))
		if now().Sub(created) > maxAge {
			return domain.TokenEvent{}, false, nil
		}

		mint := str(rec, "baseToken.address")
		if mint == "" {
			return domain.TokenEvent{}, false, missingMint(domain.SourceDexscreener)
		}

		m := domain.Market{
			Price:        numOr(rec, "priceUsd"),
			LiquidityUSD: numOr(rec, "liquidity.usd"),
			Volume5m:     numOr(rec, "volume.m5"),
			MarketCap:    numOr(rec, "marketCap", "fdv"),
		}
		ev, err := domain.NewTokenEvent(domain.SourceDexscreener, domain.EventTypeNewPair, mint, m, rec)
		return ev, err == nil, err
	}
}
