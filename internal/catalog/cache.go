package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Simplici0/cotizador/internal/pricing"
)

// TariffCache holds the tariff table between reads. Get reports a miss with
// ok=false; errors are reserved for backend failures.
//
// Every Invalidate bumps a generation. Set only stores when the generation
// still equals the one read before the table was loaded, so a load that raced
// with an update never repopulates the cache with old rows.
type TariffCache interface {
	Get(ctx context.Context) (bands []pricing.TariffBand, ok bool, err error)
	Generation(ctx context.Context) (uint64, error)
	Set(ctx context.Context, generation uint64, bands []pricing.TariffBand) error
	Invalidate(ctx context.Context) error
}

const tariffKey = "tariff-bands"

// MemoryCache keeps the table in process memory for ttl.
type MemoryCache struct {
	items *ttlcache.Cache[string, []pricing.TariffBand]

	mu         sync.Mutex
	generation uint64
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		items: ttlcache.New[string, []pricing.TariffBand](
			ttlcache.WithTTL[string, []pricing.TariffBand](ttl),
			ttlcache.WithDisableTouchOnHit[string, []pricing.TariffBand](),
		),
	}
}

func (c *MemoryCache) Get(_ context.Context) ([]pricing.TariffBand, bool, error) {
	item := c.items.Get(tariffKey)
	if item == nil {
		return nil, false, nil
	}
	return cloneBands(item.Value()), true, nil
}

func (c *MemoryCache) Generation(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *MemoryCache) Set(_ context.Context, generation uint64, bands []pricing.TariffBand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return nil
	}
	c.items.Set(tariffKey, cloneBands(bands), ttlcache.DefaultTTL)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items.Delete(tariffKey)
	return nil
}

func cloneBands(bands []pricing.TariffBand) []pricing.TariffBand {
	out := make([]pricing.TariffBand, len(bands))
	copy(out, bands)
	return out
}

const defaultRedisPrefix = "cotizador:"

// RedisCache shares the table between instances as one JSON value. The
// generation lives in its own key so every instance sees invalidations.
type RedisCache struct {
	rdb    *goredis.Client
	key    string
	genKey string
	ttl    time.Duration
}

// NewRedisCache connects to addr and checks it answers.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisCache(rdb, defaultRedisPrefix, ttl), nil
}

func newRedisCache(rdb *goredis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		key:    prefix + tariffKey,
		genKey: prefix + tariffKey + ":generation",
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context) ([]pricing.TariffBand, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get tariffs: %w", err)
	}
	bands, err := decodeBands(raw)
	if err != nil {
		return nil, false, err
	}
	return bands, true, nil
}

func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := readGeneration(ctx, c.rdb, c.genKey)
	if err != nil {
		return 0, fmt.Errorf("redis get tariff generation: %w", err)
	}
	return gen, nil
}

// Set writes the table inside a WATCH on the generation key, so a concurrent
// Invalidate aborts the write.
func (c *RedisCache) Set(ctx context.Context, generation uint64, bands []pricing.TariffBand) error {
	raw, err := json.Marshal(bands)
	if err != nil {
		return fmt.Errorf("encode tariffs: %w", err)
	}

	err = c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := readGeneration(ctx, tx, c.genKey)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, c.key, raw, c.ttl)
			return nil
		})
		return err
	}, c.genKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set tariffs: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, c.genKey)
		p.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate tariffs: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func readGeneration(ctx context.Context, cmd goredis.Cmdable, key string) (uint64, error) {
	gen, err := cmd.Get(ctx, key).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func decodeBands(raw []byte) ([]pricing.TariffBand, error) {
	var bands []pricing.TariffBand
	if err := json.Unmarshal(raw, &bands); err != nil {
		return nil, fmt.Errorf("decode tariffs: %w", err)
	}
	return bands, nil
}

// NoCache always misses.
type NoCache struct{}

func (NoCache) Get(context.Context) ([]pricing.TariffBand, bool, error) {
	return nil, false, nil
}

func (NoCache) Generation(context.Context) (uint64, error) { return 0, nil }

func (NoCache) Set(context.Context, uint64, []pricing.TariffBand) error { return nil }

func (NoCache) Invalidate(context.Context) error { return nil }
