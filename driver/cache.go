package driver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"
)

// Store is the byte cache behind CachedExecutor.
type Store interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisStore implements Store on a go-redis client (single node, cluster
// or sentinel).
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(c redis.UniversalClient) *RedisStore { return &RedisStore{client: c} }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, val, ttl).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// CachedExecutor is a read-through cache in front of another Executor.
// Write statements always bypass it. Cache failures are logged and the
// statement runs uncached; they never fail the caller.
type CachedExecutor struct {
	next   Executor
	store  Store
	ttl    time.Duration
	prefix string
}

type CacheOpt func(*CachedExecutor)

func WithTTL(d time.Duration) CacheOpt { return func(c *CachedExecutor) { c.ttl = d } }
func WithKeyPrefix(p string) CacheOpt { return func(c *CachedExecutor) { c.prefix = p } }

// DefaultCacheTTL applies when WithTTL is not given.
const DefaultCacheTTL = time.Minute

func NewCachedExecutor(next Executor, store Store, opts ...CacheOpt) *CachedExecutor {
	c := &CachedExecutor{next: next, store: store, ttl: DefaultCacheTTL, prefix: "neofilter:"}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run satisfies the Executor interface.
func (c *CachedExecutor) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if IsWrite(cypher) {
		return c.next.Run(ctx, cypher, params)
	}

	key, err := c.Key(cypher, params)
	if err != nil {
		slog.Warn("cache.key.err", "err", err)
		return c.next.Run(ctx, cypher, params)
	}

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		slog.Warn("cache.get.err", "key", key, "err", err)
	} else if ok {
		rows, err := decodeRows(raw)
		if err == nil {
			slog.Debug("cache.hit", "key", key)
			return rows, nil
		}
		slog.Warn("cache.decode.err", "key", key, "err", err)
	}

	slog.Debug("cache.miss", "key", key)
	rows, err := c.next.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(rows); err != nil {
		slog.Warn("cache.encode.err", "key", key, "err", err)
	} else if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		slog.Warn("cache.set.err", "key", key, "err", err)
	}
	return rows, nil
}

// Key derives the cache key for a statement. Params are JSON encoded,
// which sorts map keys, so equal statements always share a key.
func (c *CachedExecutor) Key(cypher string, params map[string]any) (string, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("driver: cache key: %w", err)
	}
	h := xxh3.New()
	_, _ = h.WriteString(cypher)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(p)
	sum := h.Sum128().Bytes()
	return c.prefix + hex.EncodeToString(sum[:]), nil
}

// decodeRows keeps numbers as json.Number so integers survive the trip.
func decodeRows(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
