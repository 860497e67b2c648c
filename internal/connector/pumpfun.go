package connector

import (
	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
)

// PumpFun streams token creations from the PumpPortal websocket.
type PumpFun struct {
	*Stream
}

// pumpFunSubscribe requests new token creation events.
var pumpFunSubscribe = map[string]string{"method": "subscribeNewToken"}

// NewPumpFun creates the PumpFun streaming connector.
func NewPumpFun(cfg config.SourceConfig, deps Deps) *PumpFun {
	deps = deps.withDefaults(cfg)
	return &PumpFun{Stream: NewStream(StreamConfig{
		Source:     domain.SourcePumpFun,
		URL:        cfg.StreamURL,
		Subscribe:  pumpFunSubscribe,
		RetryDelay: cfg.RetryDelay,
		Map:        mapPumpFun,
		Dialer:     deps.Dialer,
		Logger:     deps.Logger,
		Metrics:    deps.Metrics,
	})}
}

func mapPumpFun(rec map[string]any) (domain.TokenEvent, bool, error) {
	mint := str(rec, "mint")
	if mint == "" {
		// subscription acks carry only a message
		if _, ack := rec["message"]; ack {
			return domain.TokenEvent{}, false, nil
		}
		return domain.TokenEvent{}, false, missingMint(domain.SourcePumpFun)
	}

	var m domain.Market
	vSol, okSol := num(rec, "vSolInBondingCurve")
	vTokens, okTok := num(rec, "vTokensInBondingCurve")
	if okSol && okTok && vTokens > 0 {
		m.Price = vSol / vTokens
	}
	m.MarketCap = numOr(rec, "marketCapSol")

	ev, err := domain.NewTokenEvent(domain.SourcePumpFun, domain.EventTypeNewToken, mint, m, rec)
	return ev, err == nil, err
}
