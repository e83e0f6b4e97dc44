package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"HipHopLab/config"
	"HipHopLab/logger"
)

const keyPrefix = "hiphoplab:"

// RedisClient is the shared Redis client, nil when Redis is disabled.
var RedisClient *redis.Client

// ConnectRedis initializes RedisClient and waits until the server answers.
func ConnectRedis(ctx context.Context, cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	err := backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return RedisClient.Ping(pingCtx).Err()
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("redis not ready, retrying", logger.ErrorField(err), logger.Duration("wait", wait))
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", logger.String("addr", RedisClient.Options().Addr))
	return nil
}

// CloseRedis closes the shared client.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// CheckRedis runs a set, get and delete round trip against the shared client.
func CheckRedis(ctx context.Context) error {
	if RedisClient == nil {
		return errors.New("Redis client not initialized")
	}
	kv := NewRedisKV(RedisClient)
	key := keyPrefix + "healthcheck"
	want := "ok " + time.Now().Format(time.RFC3339)

	if err := kv.Set(ctx, key, []byte(want), time.Minute); err != nil {
		return err
	}
	got, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if string(got) != want {
		return fmt.Errorf("unexpected value from Redis: got %s", got)
	}
	return kv.Del(ctx, key)
}

// KV is the subset of Redis the caches rely on. Get returns nil, nil on a miss.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisKV struct {
	client *redis.Client
}

// NewRedisKV adapts a Redis client to KV.
func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (r *redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *redisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
