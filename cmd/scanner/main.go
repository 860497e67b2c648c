// Package main runs the token scanner: every enabled source connector feeds
// one dedup hub whose survivors go to the configured sinks.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/connector"
	"solana-token-scanner/internal/hub"
	"solana-token-scanner/internal/logger"
	"solana-token-scanner/internal/observability"
	"solana-token-scanner/internal/scanner"
	"solana-token-scanner/internal/sink"
	"solana-token-scanner/internal/storage"
	"solana-token-scanner/internal/storage/memory"
	pgstore "solana-token-scanner/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCANNER_CONFIG"), "Path to YAML config file")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP address (overrides config)")
	statsInterval := flag.Duration("stats-interval", time.Minute, "Per-source stats log interval (0 disables)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *statsInterval); err != nil {
		log.WithError(err).Fatal("scanner exited with error")
	}
	log.WithComponent("main").Info("shutdown complete")
}

func run(cfg *config.Config, log *logger.Log, statsInterval time.Duration) error {
	mainLog := log.WithComponent("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := observability.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, reg)
	}

	consumer, store, cleanup, err := buildConsumer(ctx, cfg, log, metrics)
	if err != nil {
		return fmt.Errorf("build sinks: %w", err)
	}
	defer cleanup()

	sup, err := scanner.NewFromConfig(cfg, consumer, connector.Deps{Logger: log, Metrics: metrics}, nil)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = startHTTPServer(cfg.Metrics.Addr, reg, sup, store, mainLog)
	}

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		mainLog.WithField("signal", sig.String()).Info("received signal, initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			mainLog.WithField("signal", sig.String()).Warn("received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-done:
		}
	}()

	sup.Start(ctx)
	mainLog.WithFields(logger.Fields{
		"run_id":     sup.RunID(),
		"connectors": sup.Connectors(),
	}).Info("scanner started")

	waitAndReport(ctx, sup, statsInterval, mainLog)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Scanner.StopTimeout+5*time.Second)
	defer stopCancel()

	stopErr := sup.Stop(stopCtx)
	logStats(sup, mainLog)

	if srv != nil {
		if err := srv.Shutdown(stopCtx); err != nil {
			mainLog.WithError(err).Warn("metrics server shutdown")
		}
	}
	close(done)

	if errors.Is(stopErr, scanner.ErrStopTimeout) {
		mainLog.WithError(stopErr).Warn("some connectors did not exit in time")
		return nil
	}
	return stopErr
}

// buildConsumer assembles the sink chain described by cfg.Sink. The returned
// store is nil when events are not persisted; cleanup releases store and
// redis connections.
func buildConsumer(ctx context.Context, cfg *config.Config, log *logger.Log, metrics *observability.Metrics) (hub.Consumer, storage.EventStore, func(), error) {
	var (
		chain    sink.Fanout
		closers  []func()
		sinkLog  = log.WithComponent("sink")
		cleanups = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	if cfg.Sink.LogEvents {
		chain = append(chain, sink.NewLog(log))
	}

	var store storage.EventStore
	switch cfg.Sink.Store {
	case config.StoreMemory:
		store = memory.NewEventStore()
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Sink.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if cfg.Sink.RunMigrations {
			if err := pool.Migrate(ctx); err != nil {
				cleanups()
				return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
			sinkLog.Info("postgres migrations applied")
		}
		store = pgstore.NewEventStore(pool, metrics)
	}
	if store != nil {
		chain = append(chain, sink.NewStore(store))
		sinkLog.WithField("backend", cfg.Sink.Store).Info("event store enabled")
	}

	if cfg.Sink.RedisAddr != "" {
		bus, err := sink.DialRedis(ctx, sink.RedisConfig{
			Addr:     cfg.Sink.RedisAddr,
			Password: cfg.Sink.RedisPassword,
			DB:       cfg.Sink.RedisDB,
		})
		if err != nil {
			cleanups()
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = bus.Close() })
		chain = append(chain, sink.NewRedis(bus, cfg.Sink.RedisChannel, cfg.Sink.RedisStream))
		sinkLog.WithFields(logger.Fields{
			"channel": cfg.Sink.RedisChannel,
			"stream":  cfg.Sink.RedisStream,
		}).Info("redis publishing enabled")
	}

	return chain, store, cleanups, nil
}

// waitAndReport blocks until ctx is done, logging stats every interval.
func waitAndReport(ctx context.Context, sup *scanner.Supervisor, interval time.Duration, log *logger.Entry) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStats(sup, log)
		}
	}
}

func logStats(sup *scanner.Supervisor, log *logger.Entry) {
	stats := sup.Stats()
	for _, src := range slices.Sorted(maps.Keys(stats)) {
		st := stats[src]
		fields := logger.Fields{
			"connected": st.Connected,
			"transport": st.Transport,
			"received":  st.TokensReceived,
			"errors":    st.Errors,
		}
		if st.LastEvent != nil {
			fields["last_event"] = st.LastEvent.Format(time.RFC3339)
		}
		if st.LastError != "" {
			fields["last_error"] = st.LastError
		}
		log.WithSource(src.String()).WithFields(fields).Info("source stats")
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	RunID   string                  `json:"run_id"`
	Running bool                    `json:"running"`
	Sources map[string]SourceStatus `json:"sources"`
}

// SourceStatus is one source's entry in StatusResponse.
type SourceStatus struct {
	Connected bool       `json:"connected"`
	Transport string     `json:"transport,omitempty"`
	Received  int64      `json:"received"`
	LastEvent *time.Time `json:"last_event,omitempty"`
	Errors    int64      `json:"errors"`
	LastError string     `json:"last_error,omitempty"`
}

func buildStatus(sup *scanner.Supervisor) StatusResponse {
	stats := sup.Stats()
	resp := StatusResponse{
		RunID:   sup.RunID(),
		Running: sup.Running(),
		Sources: make(map[string]SourceStatus, len(stats)),
	}
	for src, st := range stats {
		resp.Sources[src.String()] = SourceStatus{
			Connected: st.Connected,
			Transport: string(st.Transport),
			Received:  st.TokensReceived,
			LastEvent: st.LastEvent,
			Errors:    st.Errors,
			LastError: st.LastError,
		}
	}
	return resp
}

// startHTTPServer serves /metrics, /health, /status and /events.
func startHTTPServer(addr string, reg prometheus.Gatherer, sup *scanner.Supervisor, store storage.EventStore, log *logger.Entry) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !sup.Running() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("stopped"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler(reg))

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(buildStatus(sup))
	})

	mux.Handle("/events", eventsHandler(store, log))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()
	return srv
}
