package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/infrastructure/redis"
	"github.com/localhood/gatekeeper/pkg/cache"
)

// CachedBarrierRepository decorates a BarrierRepository with a short-TTL
// read-through cache. Barrier rows are read on every scan but change only
// when an operator reconfigures a device, so a few seconds of staleness is
// acceptable on the validation hot path. Uses redis when available, the
// in-process cache otherwise.
type CachedBarrierRepository struct {
	inner  domain.BarrierRepository
	redis  *redis.Client
	local  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedBarrierRepository wraps a barrier repository. redisClient may be
// nil; the repository then falls back to the in-process cache.
func NewCachedBarrierRepository(inner domain.BarrierRepository, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBarrierRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBarrierRepository{
		inner:  inner,
		redis:  redisClient,
		local:  cache.New(),
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedBarrierRepository) GetByID(ctx context.Context, id string) (*domain.Barrier, error) {
	key := "barrier:" + id

	if b, ok := r.cached(ctx, key); ok {
		return b, nil
	}

	b, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, b)
	return b, nil
}

// ListByComplex bypasses the cache; listings are operator traffic, not the
// scan path.
func (r *CachedBarrierRepository) ListByComplex(ctx context.Context, complexID string) ([]*domain.Barrier, error) {
	return r.inner.ListByComplex(ctx, complexID)
}

func (r *CachedBarrierRepository) cached(ctx context.Context, key string) (*domain.Barrier, bool) {
	if r.redis != nil {
		raw, err := r.redis.Get(ctx, key)
		if err != nil {
			return nil, false
		}
		b := &domain.Barrier{}
		if err := json.Unmarshal([]byte(raw), b); err != nil {
			r.logger.Warn("corrupt barrier cache entry", slog.String("key", key))
			_ = r.redis.Delete(ctx, key)
			return nil, false
		}
		return b, true
	}

	if v, ok := r.local.Get(key); ok {
		copied := *(v.(*domain.Barrier))
		return &copied, true
	}
	return nil, false
}

func (r *CachedBarrierRepository) store(ctx context.Context, key string, b *domain.Barrier) {
	if r.redis != nil {
		data, err := json.Marshal(b)
		if err != nil {
			return
		}
		if err := r.redis.Set(ctx, key, string(data), r.ttl); err != nil {
			r.logger.Warn("barrier cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return
	}

	copied := *b
	r.local.Set(key, &copied, r.ttl)
}
