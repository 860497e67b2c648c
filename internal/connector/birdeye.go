package connector

import (
	"net/http"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
)

// Birdeye polls the trending token list.
type Birdeye struct {
	*Poll
}

// NewBirdeye creates the Birdeye polling connector.
func NewBirdeye(cfg config.SourceConfig, deps Deps) *Birdeye {
	deps = deps.withDefaults(cfg)

	header := http.Header{}
	header.Set("x-chain", solanaChainID)
	if cfg.APIKey != "" {
		header.Set("X-API-KEY", cfg.APIKey)
	}

	return &Birdeye{Poll: NewPoll(PollConfig{
		Source:         domain.SourceBirdeye,
		URL:            cfg.PollURL,
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Header:         header,
		Extract:        extractBirdeye,
		Map:            mapBirdeye,
		Fetcher:        deps.Fetcher,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})}
}

func extractBirdeye(body []byte) ([]map[string]any, error) {
	return decodeList(body, "data.tokens", "data.items")
}

func mapBirdeye(rec map[string]any) (domain.TokenEvent, bool, error) {
	mint := str(rec, "address")
	if mint == "" {
		return domain.TokenEvent{}, false, missingMint(domain.SourceBirdeye)
	}

	holders, _ := num(rec, "holder", "holders")
	m := domain.Market{
		Price:        numOr(rec, "price"),
		LiquidityUSD: numOr(rec, "liquidity"),
		Volume5m:     numOr(rec, "v5mUSD", "volume5mUSD"),
		MarketCap:    numOr(rec, "marketcap", "mc", "fdv"),
		HolderCount:  int(holders),
	}
	ev, err := domain.NewTokenEvent(domain.SourceBirdeye, domain.EventTypeTrending, mint, m, rec)
	return ev, err == nil, err
}
