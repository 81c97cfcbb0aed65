package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downloader/internal/logger"
	"downloader/internal/platform/kv"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// maxTxRetries bounds optimistic-lock retries for Update.
const maxTxRetries = 16

type Options struct {
	Addr     string
	Password string
}

// Service wraps a go-redis client and satisfies kv.Store.
type Service struct {
	client *redisv8.Client
	log    *logger.Logger
}

var _ kv.Store = (*Service)(nil)

func New(opts Options) (*Service, error) {
	c := redisv8.NewClient(&redisv8.Options{Addr: opts.Addr, Password: opts.Password})
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Service{client: c, log: logger.New("Redis")}, nil
}

func (s *Service) Close() error { return s.client.Close() }

// AsynqRedisOpt points asynq at the same Redis instance.
func (s *Service) AsynqRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: s.client.Options().Addr, Password: s.client.Options().Password}
}

// HealthCheck pings Redis and performs a short write/read round trip.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.LogErrorf("Redis health check failed: %v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	key := "health:test:" + time.Now().Format("20060102150405")
	if err := s.client.Set(ctx, key, "ok", 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write test failed: %w", err)
	}
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis read test failed: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("redis value mismatch: got %s, want ok", val)
	}
	_ = s.client.Del(ctx, key).Err()
	return nil
}

func (s *Service) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisv8.Nil) {
		return nil, kv.ErrNotFound
	}
	return b, err
}

// Update runs fn under WATCH so concurrent writers to the same key retry
// instead of overwriting each other.
func (s *Service) Update(ctx context.Context, key string, ttl time.Duration, fn kv.UpdateFunc) error {
	txf := func(tx *redisv8.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redisv8.Nil) {
			cur, found = nil, false
		} else if err != nil {
			return err
		}
		next, err := fn(cur, found)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv8.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redisv8.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: too much contention", key)
}
