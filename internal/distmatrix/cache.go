package distmatrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"routeplan/internal/metrics"
	"routeplan/internal/model"
)

// Cache stores matrices by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (model.Matrix, bool, error)
	Set(ctx context.Context, key string, m model.Matrix, ttl time.Duration) error
}

type memEntry struct {
	m       model.Matrix
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memEntry
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]memEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (model.Matrix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return cloneMatrix(e.m), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, m model.Matrix, ttl time.Duration) error {
	e := memEntry{m: cloneMatrix(m)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return nil
}

// RedisCache stores matrices as JSON under "matrix:<key>".
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(opt)}, nil
}

// NewRedisCacheClient wraps an existing client.
func NewRedisCacheClient(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

func (c *RedisCache) Get(ctx context.Context, key string) (model.Matrix, bool, error) {
	data, err := c.rdb.Get(ctx, "matrix:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var m model.Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, m model.Matrix, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, "matrix:"+key, data, ttl).Err()
}

// Cached decorates a Provider with a Cache. Cache failures are logged and
// fall through to the provider.
type Cached struct {
	Provider Provider
	Cache    Cache
	Metric   string
	TTL      time.Duration
	Log      *zap.Logger
}

func (c *Cached) Name() string { return c.Provider.Name() }

func (c *Cached) Matrix(ctx context.Context, locs []model.Location) (model.Matrix, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	key := CacheKey(c.profile(), locs)
	m, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.MatrixCache.WithLabelValues("error").Inc()
		log.Warn("matrix cache get", zap.Error(err))
	case ok && m.Square(len(locs)):
		metrics.MatrixCache.WithLabelValues("hit").Inc()
		return m, nil
	default:
		metrics.MatrixCache.WithLabelValues("miss").Inc()
	}
	m, err = c.Provider.Matrix(ctx, locs)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, m, c.TTL); err != nil {
		log.Warn("matrix cache set", zap.Error(err))
	}
	return m, nil
}

// profiler is implemented by providers whose settings change the matrix
// they return for the same locations.
type profiler interface {
	Profile() string
}

func (c *Cached) profile() string {
	if p, ok := c.Provider.(profiler); ok {
		return p.Profile()
	}
	return c.Provider.Name() + "|" + c.Metric
}

// CacheKey hashes the provider profile and the ordered location list.
func CacheKey(profile string, locs []model.Location) string {
	h := sha256.New()
	h.Write([]byte(profile))
	for _, l := range locs {
		h.Write([]byte{0})
		h.Write([]byte(queryValue(l)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func cloneMatrix(m model.Matrix) model.Matrix {
	out := make(model.Matrix, len(m))
	for i, row := range m {
		out[i] = append([]int64(nil), row...)
	}
	return out
}
