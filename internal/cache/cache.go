package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache: miss")

// Store holds opaque values with a time to live. Get returns ErrMiss for
// absent or expired keys. A zero ttl means no expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Redis struct {
	rdb *redis.Client
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, val, ttl).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{m: map[string]entry{}, now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.m, key)
		return nil, ErrMiss
	}
	return e.val, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.m[key] = e
	return nil
}

// Memoize returns the cached JSON value under key, or calls fn and caches
// its result. Errors from fn are returned and not cached. Cache failures
// are logged and fall through to fn.
func Memoize[T any](ctx context.Context, s Store, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var result T

	cached, err := s.Get(ctx, key)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(cached, &result); jsonErr == nil {
			slog.DebugContext(ctx, "cache hit", "key", key)
			return result, nil
		}
	case !errors.Is(err, ErrMiss):
		slog.WarnContext(ctx, "cache get failed", "key", key, "err", err)
	}

	result, err = fn(ctx)
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = s.Set(ctx, key, data, ttl)
	}
	if err != nil {
		slog.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
	return result, nil
}
