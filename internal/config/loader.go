package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-token-scanner/internal/domain"
)

// Load reads a YAML config file on top of Defaults, expands ${VAR}
// references and applies SCANNER_* environment overrides. An empty path
// yields defaults plus environment only. The result is not validated.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadAndValidate loads config and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Scanner.DedupMaxKeys, "SCANNER_DEDUP_MAX_KEYS")
	setDuration(&cfg.Scanner.StopTimeout, "SCANNER_STOP_TIMEOUT")

	setStr(&cfg.Log.Level, "SCANNER_LOG_LEVEL")
	setStr(&cfg.Log.Format, "SCANNER_LOG_FORMAT")
	setStr(&cfg.Log.Output, "SCANNER_LOG_OUTPUT")

	setBool(&cfg.Metrics.Enabled, "SCANNER_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "SCANNER_METRICS_ADDR")

	for _, src := range domain.AllSources() {
		sc := cfg.Sources.ptr(src)
		prefix := "SCANNER_" + strings.ToUpper(src.String()) + "_"
		setBool(&sc.Enabled, prefix+"ENABLED")
		setStr(&sc.StreamURL, prefix+"STREAM_URL")
		setStr(&sc.PollURL, prefix+"POLL_URL")
		setDuration(&sc.PollInterval, prefix+"POLL_INTERVAL")
		setDuration(&sc.RetryDelay, prefix+"RETRY_DELAY")
		setStr(&sc.APIKey, prefix+"API_KEY")
	}

	setBool(&cfg.Sink.LogEvents, "SCANNER_SINK_LOG_EVENTS")
	setStr(&cfg.Sink.Store, "SCANNER_SINK_STORE")
	setStr(&cfg.Sink.PostgresDSN, "SCANNER_POSTGRES_DSN")
	setBool(&cfg.Sink.RunMigrations, "SCANNER_POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.Sink.RedisAddr, "SCANNER_REDIS_ADDR")
	setStr(&cfg.Sink.RedisPassword, "SCANNER_REDIS_PASSWORD")
	setInt(&cfg.Sink.RedisDB, "SCANNER_REDIS_DB")
	setStr(&cfg.Sink.RedisChannel, "SCANNER_REDIS_CHANNEL")
	setStr(&cfg.Sink.RedisStream, "SCANNER_REDIS_STREAM")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
