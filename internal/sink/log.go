package sink

import (
	"context"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/logger"
)

// Log writes one log line per delivered event.
type Log struct {
	log *logger.Entry
}

var _ hub.Consumer = (*Log)(nil)

// NewLog creates a logging consumer. A nil logger discards output.
func NewLog(l *logger.Log) *Log {
	if l == nil {
		l = logger.Nop()
	}
	return &Log{log: l.WithComponent("sink")}
}

// OnTokenEvent logs ev at info level.
func (s *Log) OnTokenEvent(_ context.Context, ev domain.TokenEvent) error {
	s.log.WithSource(string(ev.Source)).WithFields(logger.Fields{
		"mint":          ev.Mint,
		"event_type":    ev.EventType,
		"price":         ev.Price,
		"liquidity_usd": ev.LiquidityUSD,
		"market_cap":    ev.MarketCap,
	}).Info("token event")
	return nil
}
