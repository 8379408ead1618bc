package localstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tripkit/internal/constants"
)

const redisOpTimeout = 3 * time.Second

// RedisKV stores keys in Redis under a namespace prefix.
type RedisKV struct {
	url    string
	prefix string
	client *redis.Client
}

// NewRedisKV returns a backend for a redis:// or rediss:// URL.
func NewRedisKV(url string) *RedisKV {
	return &RedisKV{url: url, prefix: constants.RedisKeyPrefix}
}

func (s *RedisKV) Init() error {
	return s.Load()
}

func (s *RedisKV) Load() error {
	if s.client != nil {
		return nil
	}
	opts, err := redis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.client = client
	return nil
}

func (s *RedisKV) Close() error {
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

func (s *RedisKV) Get(key string) (string, bool, error) {
	if s.client == nil {
		return "", false, errors.New("storage not loaded")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisKV) Set(key, value string) error {
	if s.client == nil {
		return errors.New("storage not loaded")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *RedisKV) Delete(key string) error {
	if s.client == nil {
		return errors.New("storage not loaded")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisKV) Keys() ([]string, error) {
	if s.client == nil {
		return nil, errors.New("storage not loaded")
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, s.unkey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RedisKV) Location() string {
	opts, err := redis.ParseURL(s.url)
	if err != nil {
		return "redis"
	}
	return fmt.Sprintf("redis://%s/%d", opts.Addr, opts.DB)
}

func (s *RedisKV) key(k string) string {
	return s.prefix + k
}

func (s *RedisKV) unkey(k string) string {
	return strings.TrimPrefix(k, s.prefix)
}

// IsRedisURL reports whether path names a Redis server rather than a file.
func IsRedisURL(path string) bool {
	return strings.HasPrefix(path, "redis://") || strings.HasPrefix(path, "rediss://")
}
