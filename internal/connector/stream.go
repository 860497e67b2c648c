package connector

import (
	"context"
	"fmt"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/transport"
)

// DefaultRetryDelay is the fixed reconnect delay for streaming connectors.
const DefaultRetryDelay = 5 * time.Second

// StreamConfig configures a streaming connector.
type StreamConfig struct {
	Source domain.Source
	URL    string
	// Subscribe is sent as JSON right after the connection opens. Nil sends nothing.
	Subscribe  any
	RetryDelay time.Duration
	Map        RecordMapper

	// Fallback takes over for good when the first establishment fails.
	Fallback Connector

	Dialer  transport.Dialer
	Logger  *logger.Log
	Metrics *observability.Metrics
}

// Stream is a long-lived push connector.
//
// States: connecting -> streaming -> (error -> connecting). With a Fallback,
// a failure of the very first connect switches to the fallback and never
// returns to streaming.
type Stream struct {
	cfg     StreamConfig
	log     *logger.Entry
	metrics *observability.Metrics
}

// NewStream creates a streaming connector.
func NewStream(cfg StreamConfig) *Stream {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = transport.NewWSDialer(nil, nil)
	}
	return &Stream{
		cfg:     cfg,
		log:     cfg.Logger.WithComponent(cfg.Source.String()),
		metrics: cfg.Metrics,
	}
}

// Source returns the connector's source.
func (s *Stream) Source() domain.Source {
	return s.cfg.Source
}

// Run connects and consumes until ctx is cancelled.
func (s *Stream) Run(ctx context.Context, sink Sink) error {
	src := s.cfg.Source
	sink.SetTransport(src, domain.TransportStream)
	defer sink.SetConnected(src, false)

	first := true
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := s.establish(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sink.SetConnected(src, false)

			if first && s.cfg.Fallback != nil {
				sink.RecordError(src, fmt.Errorf("%w: %w", domain.ErrStreamUnavailable, err))
				s.metrics.RecordDowngrade(src.String())
				s.log.WithError(err).Warn("stream unavailable, switching to polling")
				return s.cfg.Fallback.Run(ctx, sink)
			}
			first = false

			sink.RecordError(src, err)
			s.log.WithError(err).WithField("retry_in", s.cfg.RetryDelay.String()).Warn("connect failed")
			if !sleep(ctx, s.cfg.RetryDelay) {
				return ctx.Err()
			}
			continue
		}
		first = false

		sink.SetConnected(src, true)
		s.log.WithField("url", s.cfg.URL).Info("stream connected")

		err = s.consume(ctx, conn, sink)
		sink.SetConnected(src, false)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sink.RecordError(src, err)
		s.log.WithError(err).WithField("retry_in", s.cfg.RetryDelay.String()).Warn("stream dropped")
		if !sleep(ctx, s.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

// establish dials and subscribes.
func (s *Stream) establish(ctx context.Context) (transport.Conn, error) {
	conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.URL)
	if err != nil {
		s.metrics.RecordConnectAttempt(s.cfg.Source.String(), false)
		return nil, err
	}

	if s.cfg.Subscribe != nil {
		if err := conn.WriteJSON(s.cfg.Subscribe); err != nil {
			conn.Close()
			s.metrics.RecordConnectAttempt(s.cfg.Source.String(), false)
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}
	s.metrics.RecordConnectAttempt(s.cfg.Source.String(), true)
	return conn, nil
}

// consume reads until the connection fails or ctx is cancelled. The
// connection is closed on cancellation to unblock the pending read.
func (s *Stream) consume(ctx context.Context, conn transport.Conn, sink Sink) error {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rec, err := decodeObject(msg)
		if err != nil {
			sink.RecordError(s.cfg.Source, err)
			continue
		}
		emitRecord(ctx, s.cfg.Source, s.cfg.Map, rec, sink)
	}
}
