// Package scanner owns the connector tasks and their lifecycle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/connector"
	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
)

// DefaultStopTimeout bounds how long Stop waits for connectors to exit.
const DefaultStopTimeout = 10 * time.Second

// ErrStopTimeout is returned when connectors do not exit within the stop timeout.
var ErrStopTimeout = errors.New("connectors did not stop in time")

// Options configures a Supervisor.
type Options struct {
	StopTimeout time.Duration
	Logger      *logger.Log
	Metrics     *observability.Metrics
}

// Supervisor runs one goroutine per connector against a shared hub.
type Supervisor struct {
	hub        *hub.Hub
	connectors []connector.Connector
	opts       Options
	log        *logger.Entry

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	runID     string
	startedAt time.Time
}

// New creates a supervisor over h and connectors.
func New(h *hub.Hub, connectors []connector.Connector, opts Options) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Supervisor{
		hub:        h,
		connectors: connectors,
		opts:       opts,
		log:        opts.Logger.WithComponent("scanner"),
	}
}

// NewFromConfig builds the hub and one connector per enabled source that
// has a factory in registry. A nil registry selects DefaultRegistry.
func NewFromConfig(cfg *config.Config, consumer hub.Consumer, deps connector.Deps, registry map[domain.Source]Factory) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	log := deps.Logger.WithComponent("scanner")

	h := hub.New(consumer, hub.Options{
		MaxKeys: cfg.Scanner.DedupMaxKeys,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})

	var connectors []connector.Connector
	for _, src := range domain.AllSources() {
		sc := cfg.Sources.For(src)
		if !sc.Enabled {
			continue
		}
		factory, ok := registry[src]
		if !ok {
			log.WithSource(src.String()).Warn("no connector for source, skipping")
			continue
		}
		connectors = append(connectors, factory(sc, deps))
	}

	return New(h, connectors, Options{
		StopTimeout: cfg.Scanner.StopTimeout,
		Logger:      deps.Logger,
		Metrics:     deps.Metrics,
	}), nil
}

// Start launches every connector and returns without waiting for any of
// them to connect. Calling Start while running does nothing.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.runID = uuid.NewString()
	s.startedAt = time.Now()
	s.hub.Open()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, c := range s.connectors {
		s.wg.Add(1)
		go s.run(runCtx, c)
	}

	s.log.WithFields(logger.Fields{
		"run_id":     s.runID,
		"connectors": len(s.connectors),
	}).Info("scanner started")
}

func (s *Supervisor) run(ctx context.Context, c connector.Connector) {
	defer s.wg.Done()
	src := c.Source()
	log := s.log.WithSource(src.String())

	defer func() {
		if r := recover(); r != nil {
			s.hub.RecordError(src, fmt.Errorf("%w: %v", domain.ErrConnectorPanic, r))
			s.hub.SetConnected(src, false)
			log.WithField("stack", string(debug.Stack())).Errorf("connector panicked: %v", r)
		}
	}()

	err := c.Run(ctx, s.hub)
	if err != nil && ctx.Err() == nil {
		s.hub.RecordError(src, err)
		log.WithError(err).Error("connector exited")
		return
	}
	log.Debug("connector stopped")
}

// Stop cancels every connector, waits for them up to the stop timeout or
// ctx, and closes the hub. No consumer call starts after Stop returns.
// Safe to call when not started and more than once.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	runID := s.runID
	uptime := time.Since(s.startedAt)
	s.mu.Unlock()

	cancel()

	stopCtx, stopCancel := context.WithTimeout(ctx, s.opts.StopTimeout)
	defer stopCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-stopCtx.Done():
		waitErr = ErrStopTimeout
		s.log.WithField("run_id", runID).Warn("connectors still running after stop timeout")
	}

	// connectors that outlived the timeout are fenced off by the closed hub
	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StopTimeout)
	defer closeCancel()
	closeErr := s.hub.Close(closeCtx)
	s.opts.Metrics.AddUptime(uptime)

	s.log.WithFields(logger.Fields{
		"run_id": runID,
		"uptime": uptime.Round(time.Millisecond).String(),
	}).Info("scanner stopped")

	return errors.Join(waitErr, closeErr)
}

// Stats returns a snapshot of per-source stats.
func (s *Supervisor) Stats() map[domain.Source]domain.SourceStats {
	return s.hub.Stats()
}

// Running reports whether Start has been called without a matching Stop.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunID returns the identifier of the current or last run.
func (s *Supervisor) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Connectors returns the configured sources, running or not.
func (s *Supervisor) Connectors() []domain.Source {
	out := make([]domain.Source, 0, len(s.connectors))
	for _, c := range s.connectors {
		out = append(out, c.Source())
	}
	return out
}
