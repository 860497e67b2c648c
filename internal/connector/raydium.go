package connector

import (
	"fmt"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/solana"
)

// Raydium polls the AMM pair list and emits the non-quote side of each pool.
type Raydium struct {
	*Poll
}

// NewRaydium creates the Raydium polling connector.
func NewRaydium(cfg config.SourceConfig, deps Deps) *Raydium {
	deps = deps.withDefaults(cfg)
	return &Raydium{Poll: NewPoll(PollConfig{
		Source:         domain.SourceRaydium,
		URL:            cfg.PollURL,
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Extract:        extractRaydium,
		Map:            mapRaydium,
		Fetcher:        deps.Fetcher,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})}
}

func extractRaydium(body []byte) ([]map[string]any, error) {
	return decodeList(body, "data", "data.data")
}

// resolveNewMint picks the pool side that is not a well-known quote asset.
// ok=false when both sides are quote assets.
func resolveNewMint(base, quote string) (string, bool) {
	baseQuote := solana.IsQuoteMint(base)
	quoteQuote := solana.IsQuoteMint(quote)
	switch {
	case baseQuote && quoteQuote:
		return "", false
	case baseQuote:
		return quote, true
	default:
		return base, true
	}
}

func mapRaydium(rec map[string]any) (domain.TokenEvent, bool, error) {
	base := str(rec, "baseMint", "mintA.address")
	quote := str(rec, "quoteMint", "mintB.address")

	mint, ok := resolveNewMint(base, quote)
	if !ok {
		return domain.TokenEvent{}, false, nil
	}
	if mint == "" {
		return domain.TokenEvent{}, false, missingMint(domain.SourceRaydium)
	}
	if !solana.IsPublicKey(mint) {
		return domain.TokenEvent{}, false, fmt.Errorf("%w: invalid mint %q", domain.ErrMalformedPayload, mint)
	}

	m := domain.Market{
		Price:        numOr(rec, "price"),
		LiquidityUSD: numOr(rec, "liquidity", "tvl"),
		Volume5m:     numOr(rec, "volume5m"),
	}
	ev, err := domain.NewTokenEvent(domain.SourceRaydium, domain.EventTypeNewPair, mint, m, rec)
	return ev, err == nil, err
}
