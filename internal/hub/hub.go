// Package hub implements the dedup and fan-in point between source
// connectors and the downstream consumer. The hub is the only owner of the
// dedup window and of per-source stats.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
)

// DefaultMaxKeys is the dedup window capacity.
const DefaultMaxKeys = 10000

// Consumer receives every deduplicated event. It is called from connector
// goroutines, possibly concurrently, and must be safe for that.
type Consumer interface {
	OnTokenEvent(ctx context.Context, ev domain.TokenEvent) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, ev domain.TokenEvent) error

// OnTokenEvent calls f.
func (f ConsumerFunc) OnTokenEvent(ctx context.Context, ev domain.TokenEvent) error {
	return f(ctx, ev)
}

// Options configures a Hub.
type Options struct {
	// MaxKeys bounds the dedup window. Zero selects DefaultMaxKeys.
	MaxKeys int
	Logger  *logger.Log
	Metrics *observability.Metrics
	// Now overrides the clock used for LastEvent.
	Now func() time.Time
}

// Hub deduplicates events by (mint, source) and forwards survivors.
type Hub struct {
	consumer Consumer
	maxKeys  int
	log      *logger.Entry
	metrics  *observability.Metrics
	now      func() time.Time

	mu       sync.Mutex
	seen     map[string]struct{}
	stats    map[domain.Source]*domain.SourceStats
	closed   bool
	inflight sync.WaitGroup
}

// New creates an open hub with one stats entry per Source.
func New(consumer Consumer, opts Options) *Hub {
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = DefaultMaxKeys
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if consumer == nil {
		consumer = ConsumerFunc(func(context.Context, domain.TokenEvent) error { return nil })
	}

	h := &Hub{
		consumer: consumer,
		maxKeys:  opts.MaxKeys,
		log:      opts.Logger.WithComponent("hub"),
		metrics:  opts.Metrics,
		now:      opts.Now,
		seen:     make(map[string]struct{}),
		stats:    make(map[domain.Source]*domain.SourceStats),
	}
	for _, src := range domain.AllSources() {
		h.stats[src] = &domain.SourceStats{}
	}
	return h
}

// Emit runs ev through the dedup window. It reports whether the event was
// new and handed to the consumer. Consumer failures are recorded against
// the event's source and never returned.
func (h *Hub) Emit(ctx context.Context, ev domain.TokenEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	key := ev.DedupKey()
	src := ev.Source.String()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.metrics.RecordReceived(src)
	if _, dup := h.seen[key]; dup {
		h.mu.Unlock()
		h.metrics.RecordDuplicate(src)
		return false
	}

	cleared := 0
	if len(h.seen) >= h.maxKeys {
		cleared = len(h.seen)
		h.seen = make(map[string]struct{}, h.maxKeys)
	}
	h.seen[key] = struct{}{}
	h.metrics.SetCacheSize(len(h.seen))

	st := h.statsLocked(ev.Source)
	st.TokensReceived++
	now := h.now()
	st.LastEvent = &now

	h.inflight.Add(1)
	h.mu.Unlock()
	defer h.inflight.Done()

	if cleared > 0 {
		h.log.WithField("keys", cleared).Info("dedup window full, cleared")
		h.metrics.RecordCacheClear()
	}
	h.metrics.RecordDelivered(src, ev.EventType, now)

	if err := h.deliver(ctx, ev); err != nil {
		h.log.WithSource(src).WithField("mint", ev.Mint).WithError(err).Warn("consumer failed")
		h.RecordError(ev.Source, err)
	}
	return true
}

func (h *Hub) deliver(ctx context.Context, ev domain.TokenEvent) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrConsumer, r)
		}
		h.metrics.ObserveConsumer(time.Since(start))
	}()

	if cerr := h.consumer.OnTokenEvent(ctx, ev); cerr != nil {
		return fmt.Errorf("%w: %w", domain.ErrConsumer, cerr)
	}
	return nil
}

// RecordError counts err against source.
func (h *Hub) RecordError(source domain.Source, err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	st := h.statsLocked(source)
	st.Errors++
	st.LastError = err.Error()
	h.mu.Unlock()

	h.metrics.RecordError(source.String(), domain.ErrorKind(err))
}

// SetConnected updates the connected flag for source.
func (h *Hub) SetConnected(source domain.Source, connected bool) {
	h.mu.Lock()
	h.statsLocked(source).Connected = connected
	h.mu.Unlock()

	h.metrics.SetConnected(source.String(), connected)
}

// SetTransport records the transport source currently runs on.
func (h *Hub) SetTransport(source domain.Source, t domain.Transport) {
	h.mu.Lock()
	h.statsLocked(source).Transport = t
	h.mu.Unlock()
}

// Stats returns a deep copy of every source's stats.
func (h *Hub) Stats() map[domain.Source]domain.SourceStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[domain.Source]domain.SourceStats, len(h.stats))
	for src, st := range h.stats {
		out[src] = st.Clone()
	}
	return out
}

// CacheSize returns the number of keys in the dedup window.
func (h *Hub) CacheSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// Open empties the dedup window and accepts emits again. Stats are kept.
func (h *Hub) Open() {
	h.mu.Lock()
	h.seen = make(map[string]struct{})
	h.closed = false
	h.metrics.SetCacheSize(0)
	h.mu.Unlock()
}

// Close rejects further emits and waits for in-flight consumer calls to
// return, or for ctx to expire.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for consumer: %w", ctx.Err())
	}
}

func (h *Hub) statsLocked(source domain.Source) *domain.SourceStats {
	st, ok := h.stats[source]
	if !ok {
		st = &domain.SourceStats{}
		h.stats[source] = st
	}
	return st
}
