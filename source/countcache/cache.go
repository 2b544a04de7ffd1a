// Package countcache keeps item counts of an expensive source in Redis.
package countcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"

	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/source"
)

// Store is the subset of *redis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache wraps a source and answers Count from Redis while the entry lives.
// Fetch always reaches the inner source. A Redis failure is logged and the
// inner source answers instead. Cache is safe for concurrent use as long as
// the inner source is.
type Cache[T any] struct {
	inner  source.Source[T]
	store  Store
	prefix string
	ttl    time.Duration
	log    logging.Logger

	written *xsync.MapOf[string, struct{}]
}

var _ source.Source[int] = (*Cache[int])(nil)

func New[T any](inner source.Source[T], store Store, prefix string, ttl time.Duration, log logging.Logger) (*Cache[T], error) {
	if inner == nil || store == nil {
		return nil, fmt.Errorf("%w: count cache needs a source and a store", mserrors.ErrInvalidConfiguration)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: count ttl %s", mserrors.ErrInvalidConfiguration, ttl)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Cache[T]{
		inner:   inner,
		store:   store,
		prefix:  prefix,
		ttl:     ttl,
		log:     log,
		written: xsync.NewMapOf[string, struct{}](),
	}, nil
}

func (c *Cache[T]) Unwrap() source.Source[T] {
	return c.inner
}

func (c *Cache[T]) Fetch(ctx context.Context, q source.Query) ([]T, error) {
	return c.inner.Fetch(ctx, q)
}

func (c *Cache[T]) Count(ctx context.Context, filter string) (int, error) {
	key := c.key(filter)
	n, err := c.store.Get(ctx, key).Int()
	switch {
	case err == nil:
		return n, nil
	case !errors.Is(err, redis.Nil):
		c.log.WarnCtx(ctx, "count cache read failed", "key", key, "error", err)
	}

	n, err = c.inner.Count(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(ctx, key, n, c.ttl).Err(); err != nil {
		c.log.WarnCtx(ctx, "count cache write failed", "key", key, "error", err)
		return n, nil
	}
	c.written.Store(key, struct{}{})
	return n, nil
}

// Invalidate drops every count this cache wrote, e.g. after the table changed.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	var ks []string
	c.written.Range(func(k string, _ struct{}) bool {
		ks = append(ks, k)
		return true
	})
	if len(ks) == 0 {
		return nil
	}
	if err := c.store.Del(ctx, ks...).Err(); err != nil {
		return fmt.Errorf("countcache: invalidate: %w", err)
	}
	for _, k := range ks {
		c.written.Delete(k)
	}
	return nil
}

func (c *Cache[T]) key(filter string) string {
	return c.prefix + ":count:" + strconv.FormatUint(xxhash.Sum64String(filter), 36)
}
