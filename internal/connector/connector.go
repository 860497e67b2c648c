// Package connector implements the per-provider tasks that feed the hub:
// a streaming loop with fixed-delay reconnect, a fixed-interval polling
// loop, and the provider mappings built on top of them.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/transport"
)

// Sink is the hub surface a connector reports through.
type Sink interface {
	Emit(ctx context.Context, ev domain.TokenEvent) bool
	RecordError(source domain.Source, err error)
	SetConnected(source domain.Source, connected bool)
	SetTransport(source domain.Source, t domain.Transport)
}

// Connector produces events for exactly one source.
type Connector interface {
	Source() domain.Source

	// Run blocks until ctx is cancelled and then returns ctx.Err().
	// Transport and payload failures are reported on sink, never returned.
	Run(ctx context.Context, sink Sink) error
}

// RecordMapper maps one decoded provider record to an event.
// ok=false skips the record without counting an error.
type RecordMapper func(rec map[string]any) (ev domain.TokenEvent, ok bool, err error)

// RecordExtractor splits a polled response body into records.
type RecordExtractor func(body []byte) ([]map[string]any, error)

// Deps carries shared collaborators for connector construction.
// Nil transports are built from the source config.
type Deps struct {
	Dialer  transport.Dialer
	Fetcher transport.Fetcher
	Logger  *logger.Log
	Metrics *observability.Metrics
	Now     func() time.Time
}

func (d Deps) withDefaults(cfg config.SourceConfig) Deps {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Dialer == nil {
		ws := transport.DefaultWSConfig()
		if cfg.HandshakeTimeout > 0 {
			ws.HandshakeTimeout = cfg.HandshakeTimeout
		}
		ws.PingInterval = cfg.PingInterval
		d.Dialer = transport.NewWSDialer(&ws, nil)
	}
	if d.Fetcher == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = transport.DefaultTimeout
		}
		opts := []transport.ClientOption{transport.WithTimeout(timeout)}
		if cfg.MaxBodyBytes > 0 {
			opts = append(opts, transport.WithMaxBodyBytes(cfg.MaxBodyBytes))
		}
		d.Fetcher = transport.NewHTTPClient(opts...)
	}
	return d
}

// emitRecord maps rec and hands the result to sink. Mapping failures,
// panics included, are counted against source.
func emitRecord(ctx context.Context, source domain.Source, mapRecord RecordMapper, rec map[string]any, sink Sink) {
	ev, ok, err := safeMap(mapRecord, rec)
	if err != nil {
		sink.RecordError(source, err)
		return
	}
	if !ok {
		return
	}
	sink.Emit(ctx, ev)
}

func safeMap(mapRecord RecordMapper, rec map[string]any) (ev domain.TokenEvent, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, ok, err = domain.TokenEvent{}, false, fmt.Errorf("%w: mapper panic: %v", domain.ErrMalformedPayload, r)
		}
	}()
	return mapRecord(rec)
}

// decodeObject decodes a single JSON object message.
func decodeObject(msg []byte) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(msg, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: not an object", domain.ErrMalformedPayload)
	}
	return rec, nil
}

// sleep waits for d or ctx cancellation. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
