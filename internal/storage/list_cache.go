package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vault-console/internal/listing"
	"github.com/vault-console/internal/logging"
)

const (
	listCachePrefix      = "lists:"
	listGenerationPrefix = "lists-gen:"
)

// errStaleFill reports a fetch that started before the last invalidation
var errStaleFill = errors.New("list changed while it was fetched")

// ListCache keeps full vault list responses for a short time so paging and
// filtering through a list does not refetch it on every request.
//
// A fetch may only fill the cache if its group was not invalidated since the
// fetch began. Within a process that is ordered by a per-group Sequencer;
// across API instances by a generation counter in Redis.
type ListCache struct {
	cache *RedisCache
	ttl   time.Duration
	seqs  sync.Map // group -> *listing.Sequencer
}

// fill is a fetch in flight
type fill struct {
	group string
	token uint64
	gen   int64
}

// NewListCache creates a list cache. A nil cache disables caching.
func NewListCache(cache *RedisCache, ttl time.Duration) *ListCache {
	return &ListCache{cache: cache, ttl: ttl}
}

// Key builds the cache key of one list within group
func (c *ListCache) Key(group string, parts ...string) string {
	return listCachePrefix + group + ":" + strings.Join(parts, ":")
}

// Load decodes a cached list into out and reports whether it was found
func (c *ListCache) Load(ctx context.Context, key string, out interface{}) (bool, error) {
	if c == nil || c.cache == nil {
		return false, nil
	}
	raw, err := c.cache.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate drops every cached list of group. Fetches begun before the
// call can no longer fill the cache.
func (c *ListCache) Invalidate(ctx context.Context, group string) error {
	if c == nil || c.cache == nil {
		return nil
	}
	seq := c.sequencer(group)
	seq.Commit(seq.Begin())

	if err := c.cache.client.Incr(ctx, listGenerationPrefix+group).Err(); err != nil {
		return err
	}
	_, err := c.cache.DelPrefix(ctx, listCachePrefix+group+":")
	return err
}

func (c *ListCache) sequencer(group string) *listing.Sequencer {
	seq, _ := c.seqs.LoadOrStore(group, &listing.Sequencer{})
	return seq.(*listing.Sequencer)
}

func groupOf(key string) string {
	group, _, _ := strings.Cut(strings.TrimPrefix(key, listCachePrefix), ":")
	return group
}

// begin records the state of key's group before a fetch
func (c *ListCache) begin(ctx context.Context, key string) (fill, error) {
	f := fill{group: groupOf(key)}
	f.token = c.sequencer(f.group).Begin()

	gen, err := c.cache.client.Get(ctx, listGenerationPrefix+f.group).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return f, err
	}
	f.gen = gen
	return f, nil
}

// storeFill caches value unless key's group was invalidated after f began.
// It returns errStaleFill in that case.
func (c *ListCache) storeFill(ctx context.Context, f fill, key string, value interface{}) error {
	if !c.sequencer(f.group).Commit(f.token) {
		return errStaleFill
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	genKey := listGenerationPrefix + f.group
	err = c.cache.client.Watch(ctx, func(tx *redis.Tx) error {
		gen, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if gen != f.gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleFill
	}
	return err
}

// Cached returns the list stored under key, or calls fetch and caches its
// result. Cache failures are logged and never fail the request.
func Cached[T any](ctx context.Context, c *ListCache, key string, fetch func(context.Context) (T, error)) (T, error) {
	logger := logging.FromContext(ctx).Component("list-cache").WithField("key", key)

	var cached T
	found, err := c.Load(ctx, key, &cached)
	if err != nil {
		logger.WithError(err).Warn("List cache read failed")
	}
	if found {
		return cached, nil
	}
	if c == nil || c.cache == nil {
		return fetch(ctx)
	}

	f, err := c.begin(ctx, key)
	if err != nil {
		logger.WithError(err).Warn("List cache generation read failed")
		return fetch(ctx)
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	switch err := c.storeFill(ctx, f, key, value); {
	case errors.Is(err, errStaleFill):
		logger.Debug("List invalidated during fetch, not cached")
	case err != nil:
		logger.WithError(err).Warn("List cache write failed")
	}
	return value, nil
}
