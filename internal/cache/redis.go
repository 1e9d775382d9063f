package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisConfig configures the Redis backend and its circuit breaker.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxRetries   int
	BreakerName  string
	FailureLimit uint32        // consecutive failures that open the breaker
	OpenTimeout  time.Duration // time spent open before probing again
	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 500 * time.Millisecond
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.BreakerName == "" {
		c.BreakerName = "redis-cache"
	}
	if c.FailureLimit == 0 {
		c.FailureLimit = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Redis is a Backend on a Redis server. Calls go through a circuit breaker so
// an unreachable server costs one fast error instead of a timeout per request.
type Redis struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedis returns a Redis backend. No connection is made until first use.
func NewRedis(cfg RedisConfig, logger *slog.Logger) *Redis {
	cfg = cfg.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		MaxRetries:  cfg.MaxRetries,
	})

	settings := gobreaker.Settings{
		Name:        cfg.BreakerName,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureLimit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	return &Redis{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (r *Redis) execute(fn func() (interface{}, error)) (interface{}, error) {
	v, err := r.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, err
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.execute(func() (interface{}, error) {
		b, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// redis.Nil is a miss, not a failure.
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	b, _ := v.([]byte)
	if b == nil {
		return nil, ErrMiss
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity through the breaker.
func (r *Redis) Ping(ctx context.Context) error {
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Ping(ctx).Err()
	})
	return err
}

// State returns the breaker state.
func (r *Redis) State() gobreaker.State {
	return r.breaker.State()
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
