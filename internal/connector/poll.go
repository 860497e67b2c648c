package connector

import (
	"context"
	"net/http"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/transport"
)

// DefaultPollInterval applies when a PollConfig leaves Interval unset.
const DefaultPollInterval = 30 * time.Second

// PollConfig configures a polling connector.
type PollConfig struct {
	Source         domain.Source
	URL            string
	Interval       time.Duration
	RequestTimeout time.Duration
	Header         http.Header
	Extract        RecordExtractor
	Map            RecordMapper

	Fetcher transport.Fetcher
	Logger  *logger.Log
	Metrics *observability.Metrics
}

// Poll issues one request per tick, starting immediately.
// A failed tick is counted and the schedule is unchanged.
type Poll struct {
	cfg     PollConfig
	log     *logger.Entry
	metrics *observability.Metrics
}

// NewPoll creates a polling connector.
func NewPoll(cfg PollConfig) *Poll {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = transport.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = transport.NewHTTPClient(transport.WithTimeout(cfg.RequestTimeout))
	}
	return &Poll{
		cfg:     cfg,
		log:     cfg.Logger.WithComponent(cfg.Source.String()),
		metrics: cfg.Metrics,
	}
}

// Source returns the connector's source.
func (p *Poll) Source() domain.Source {
	return p.cfg.Source
}

// Run polls until ctx is cancelled.
func (p *Poll) Run(ctx context.Context, sink Sink) error {
	src := p.cfg.Source
	sink.SetTransport(src, domain.TransportPoll)
	defer sink.SetConnected(src, false)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.WithField("interval", p.cfg.Interval.String()).Info("polling started")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.tick(ctx, sink)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poll) tick(ctx context.Context, sink Sink) {
	src := p.cfg.Source

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	body, err := p.cfg.Fetcher.Get(reqCtx, p.cfg.URL, p.cfg.Header)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		sink.SetConnected(src, false)
		sink.RecordError(src, err)
		p.metrics.RecordPollTick(src.String(), false)
		p.log.WithError(err).Warn("poll failed")
		return
	}
	sink.SetConnected(src, true)

	records, err := p.cfg.Extract(body)
	if err != nil {
		sink.RecordError(src, err)
		p.metrics.RecordPollTick(src.String(), false)
		p.log.WithError(err).Warn("poll response rejected")
		return
	}
	p.metrics.RecordPollTick(src.String(), true)

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		emitRecord(ctx, src, p.cfg.Map, rec, sink)
	}
	p.log.WithField("records", len(records)).Debug("poll tick")
}
