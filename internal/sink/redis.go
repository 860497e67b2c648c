package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"solana-token-scanner/internal/domain"
	"solana-token-scanner/internal/hub"
)

// DefaultStreamMaxLen is the approximate cap applied with XADD MAXLEN ~.
const DefaultStreamMaxLen int64 = 10000

// RedisConfig holds connection parameters for the Redis client.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	StreamMaxLen int64
}

// Publisher delivers raw payloads to Redis channels and streams.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// RedisBus implements Publisher with go-redis Pub/Sub and Streams.
type RedisBus struct {
	rdb    *redis.Client
	maxLen int64
}

var _ Publisher = (*RedisBus)(nil)

// DialRedis creates a client and pings it to verify connectivity.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisBus{rdb: rdb, maxLen: cfg.StreamMaxLen}, nil
}

// Publish sends payload to a Pub/Sub channel.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// StreamAppend appends payload to a capped stream.
func (b *RedisBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// Underlying returns the raw client.
func (b *RedisBus) Underlying() *redis.Client {
	return b.rdb
}

// Close closes the connection pool.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

// Redis publishes each delivered event as JSON. Stream is optional.
type Redis struct {
	pub     Publisher
	channel string
	stream  string
}

var _ hub.Consumer = (*Redis)(nil)

// NewRedis creates a publishing consumer.
func NewRedis(pub Publisher, channel, stream string) *Redis {
	return &Redis{pub: pub, channel: channel, stream: stream}
}

// OnTokenEvent marshals ev and publishes it.
func (r *Redis) OnTokenEvent(ctx context.Context, ev domain.TokenEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, payload); err != nil {
		return err
	}
	if r.stream != "" {
		return r.pub.StreamAppend(ctx, r.stream, payload)
	}
	return nil
}
