// Package config holds the scanner configuration: dedup window, logging,
// metrics, per-source endpoints and downstream sinks.
package config

import (
	"errors"
	"fmt"
	"time"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/logger"
)

// Default values.
const (
	DefaultDedupMaxKeys     = 10000
	DefaultStopTimeout      = 10 * time.Second
	DefaultRetryDelay       = 5 * time.Second
	DefaultRequestTimeout   = 8 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultMaxPairAge       = 2 * time.Hour
	DefaultRaydiumMaxBody   = 512 << 20 // the pairs endpoint returns every pool
	DefaultMetricsAddr      = ":9090"
	DefaultMetricsNamespace = "scanner"
	DefaultRedisChannel     = "solana:token_events"

	DefaultPumpFunStreamURL   = "wss://pumpportal.fun/api/data"
	DefaultMoonshotStreamURL  = "wss://api.moonshot.cc/ws/v1/tokens"
	DefaultMoonshotPollURL    = "https://api.moonshot.cc/tokens/v1/new/solana"
	DefaultDexscreenerPollURL = "https://api.dexscreener.com/latest/dex/search?q=solana"
	DefaultBirdeyePollURL     = "https://public-api.birdeye.so/defi/token_trending?sort_by=rank&sort_type=asc&offset=0&limit=20"
	DefaultRaydiumPollURL     = "https://api.raydium.io/v2/main/pairs"
	DefaultJupiterPollURL     = "https://tokens.jup.ag/tokens/v1/new"
	DefaultHeliusStreamURL    = "wss://mainnet.helius-rpc.com"

	DefaultMoonshotPollInterval    = 15 * time.Second
	DefaultDexscreenerPollInterval = 30 * time.Second
	DefaultBirdeyePollInterval     = 20 * time.Second
	DefaultRaydiumPollInterval     = 10 * time.Second
	DefaultJupiterPollInterval     = 30 * time.Second
)

// Store backends.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the top-level scanner configuration.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Log     logger.Config `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sources SourcesConfig `yaml:"sources"`
	Sink    SinkConfig    `yaml:"sink"`
}

// ScannerConfig configures the hub and supervisor.
type ScannerConfig struct {
	DedupMaxKeys int           `yaml:"dedup_max_keys"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// SourceConfig is the per-provider block. Fields that do not apply to a
// provider's transport are ignored.
type SourceConfig struct {
	Enabled          bool          `yaml:"enabled"`
	StreamURL        string        `yaml:"stream_url"`
	PollURL          string        `yaml:"poll_url"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	APIKey           string        `yaml:"api_key"`
	MaxPairAge       time.Duration `yaml:"max_pair_age"`
	// MaxBodyBytes caps a polled response. Zero keeps the client default.
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

// SourcesConfig has one block per Source enum member.
type SourcesConfig struct {
	PumpFun     SourceConfig `yaml:"pumpfun"`
	Moonshot    SourceConfig `yaml:"moonshot"`
	Raydium     SourceConfig `yaml:"raydium"`
	Jupiter     SourceConfig `yaml:"jupiter"`
	Birdeye     SourceConfig `yaml:"birdeye"`
	Dexscreener SourceConfig `yaml:"dexscreener"`
	Helius      SourceConfig `yaml:"helius"`
}

// For returns the block for src.
func (s *SourcesConfig) For(src domain.Source) SourceConfig {
	if p := s.ptr(src); p != nil {
		return *p
	}
	return SourceConfig{}
}

func (s *SourcesConfig) ptr(src domain.Source) *SourceConfig {
	switch src {
	case domain.SourcePumpFun:
		return &s.PumpFun
	case domain.SourceMoonshot:
		return &s.Moonshot
	case domain.SourceRaydium:
		return &s.Raydium
	case domain.SourceJupiter:
		return &s.Jupiter
	case domain.SourceBirdeye:
		return &s.Birdeye
	case domain.SourceDexscreener:
		return &s.Dexscreener
	case domain.SourceHelius:
		return &s.Helius
	}
	return nil
}

// SinkConfig configures the downstream consumer chain.
type SinkConfig struct {
	LogEvents bool `yaml:"log_events"`

	// Store is one of none, memory, postgres.
	Store         string `yaml:"store"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	RunMigrations bool   `yaml:"run_migrations"`

	// Redis publishing is enabled when RedisAddr is set.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisChannel  string `yaml:"redis_channel"`

	// RedisStream, when set, also appends every event to a capped stream.
	RedisStream string `yaml:"redis_stream"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	stream := func(url string) SourceConfig {
		return SourceConfig{
			Enabled:          true,
			StreamURL:        url,
			RetryDelay:       DefaultRetryDelay,
			HandshakeTimeout: DefaultHandshakeTimeout,
			PingInterval:     DefaultPingInterval,
		}
	}
	poll := func(url string, interval time.Duration) SourceConfig {
		return SourceConfig{
			Enabled:        true,
			PollURL:        url,
			PollInterval:   interval,
			RetryDelay:     DefaultRetryDelay,
			RequestTimeout: DefaultRequestTimeout,
		}
	}

	moonshot := stream(DefaultMoonshotStreamURL)
	moonshot.PollURL = DefaultMoonshotPollURL
	moonshot.PollInterval = DefaultMoonshotPollInterval
	moonshot.RequestTimeout = DefaultRequestTimeout

	raydium := poll(DefaultRaydiumPollURL, DefaultRaydiumPollInterval)
	raydium.MaxBodyBytes = DefaultRaydiumMaxBody

	dexscreener := poll(DefaultDexscreenerPollURL, DefaultDexscreenerPollInterval)
	dexscreener.MaxPairAge = DefaultMaxPairAge

	// reserved: endpoints declared, no connector registered
	jupiter := poll(DefaultJupiterPollURL, DefaultJupiterPollInterval)
	jupiter.Enabled = false
	helius := stream(DefaultHeliusStreamURL)
	helius.Enabled = false

	return Config{
		Scanner: ScannerConfig{
			DedupMaxKeys: DefaultDedupMaxKeys,
			StopTimeout:  DefaultStopTimeout,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Addr:      DefaultMetricsAddr,
			Namespace: DefaultMetricsNamespace,
		},
		Sources: SourcesConfig{
			PumpFun:     stream(DefaultPumpFunStreamURL),
			Moonshot:    moonshot,
			Raydium:     raydium,
			Jupiter:     jupiter,
			Birdeye:     poll(DefaultBirdeyePollURL, DefaultBirdeyePollInterval),
			Dexscreener: dexscreener,
			Helius:      helius,
		},
		Sink: SinkConfig{
			LogEvents:    true,
			Store:        StoreMemory,
			RedisChannel: DefaultRedisChannel,
		},
	}
}

// applyDefaults fills zero values left by a partial YAML file.
func (c *Config) applyDefaults() {
	if c.Scanner.DedupMaxKeys == 0 {
		c.Scanner.DedupMaxKeys = DefaultDedupMaxKeys
	}
	if c.Scanner.StopTimeout == 0 {
		c.Scanner.StopTimeout = DefaultStopTimeout
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Sink.Store == "" {
		c.Sink.Store = StoreMemory
	}
	if c.Sink.RedisChannel == "" {
		c.Sink.RedisChannel = DefaultRedisChannel
	}

	for _, src := range domain.AllSources() {
		sc := c.Sources.ptr(src)
		if sc.RetryDelay == 0 {
			sc.RetryDelay = DefaultRetryDelay
		}
		if sc.RequestTimeout == 0 {
			sc.RequestTimeout = DefaultRequestTimeout
		}
		if sc.HandshakeTimeout == 0 {
			sc.HandshakeTimeout = DefaultHandshakeTimeout
		}
	}
	if c.Sources.Dexscreener.MaxPairAge == 0 {
		c.Sources.Dexscreener.MaxPairAge = DefaultMaxPairAge
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Scanner.DedupMaxKeys <= 0 {
		errs = append(errs, errors.New("scanner.dedup_max_keys must be positive"))
	}
	if c.Scanner.StopTimeout <= 0 {
		errs = append(errs, errors.New("scanner.stop_timeout must be positive"))
	}

	for _, src := range domain.AllSources() {
		sc := c.Sources.For(src)
		if !sc.Enabled {
			continue
		}
		if sc.RetryDelay <= 0 {
			errs = append(errs, fmt.Errorf("sources.%s.retry_delay must be positive", src))
		}
		if needsStream(src) && sc.StreamURL == "" {
			errs = append(errs, fmt.Errorf("sources.%s.stream_url is required", src))
		}
		if needsPoll(src) {
			if sc.PollURL == "" {
				errs = append(errs, fmt.Errorf("sources.%s.poll_url is required", src))
			}
			if sc.PollInterval <= 0 {
				errs = append(errs, fmt.Errorf("sources.%s.poll_interval must be positive", src))
			}
		}
	}

	switch c.Sink.Store {
	case StoreNone, StoreMemory:
	case StorePostgres:
		if c.Sink.PostgresDSN == "" {
			errs = append(errs, errors.New("sink.postgres_dsn is required for postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("sink.store: unknown backend %q", c.Sink.Store))
	}

	return errors.Join(errs...)
}

// needsStream reports whether src connects over a push stream.
func needsStream(src domain.Source) bool {
	switch src {
	case domain.SourcePumpFun, domain.SourceMoonshot, domain.SourceHelius:
		return true
	}
	return false
}

// needsPoll reports whether src polls (Moonshot polls as its fallback).
func needsPoll(src domain.Source) bool {
	switch src {
	case domain.SourceMoonshot, domain.SourceDexscreener, domain.SourceBirdeye,
		domain.SourceRaydium, domain.SourceJupiter:
		return true
	}
	return false
}
