package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codejudge/internal/domain"
	"codejudge/pkg/utils/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig mirrors the reference codebase's Redis client defaults.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig applies the reference codebase's client defaults.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// CachedRepository decorates a Repository with a read-through cache for
// Problem lookups. Writes invalidate the cached entry rather than updating
// it in place, so a stale counter is never served past the next read.
type CachedRepository struct {
	Repository
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedRepository wraps next with rdb, caching Problem reads for ttl.
func NewCachedRepository(next Repository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{Repository: next, rdb: rdb, ttl: ttl}
}

func problemCacheKey(id uint64) string {
	return fmt.Sprintf("problem:%d", id)
}

func (c *CachedRepository) GetProblem(ctx context.Context, id uint64) (*domain.Problem, error) {
	key := problemCacheKey(id)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var p domain.Problem
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
	} else if err != redis.Nil {
		logger.Warn(ctx, "cache read failed, falling back to repository", zap.Error(err))
	}

	p, err := c.Repository.GetProblem(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.Warn(ctx, "cache write failed", zap.Error(err))
		}
	}
	return p, nil
}

func (c *CachedRepository) invalidate(ctx context.Context, id uint64) {
	if err := c.rdb.Del(ctx, problemCacheKey(id)).Err(); err != nil {
		logger.Warn(ctx, "cache invalidation failed", zap.Uint64("problem_id", id), zap.Error(err))
	}
}

func (c *CachedRepository) IncrementTried(ctx context.Context, id uint64) error {
	if err := c.Repository.IncrementTried(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedRepository) IncrementSolved(ctx context.Context, id uint64) error {
	if err := c.Repository.IncrementSolved(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Compile-time check that CachedRepository still satisfies Repository after
// embedding.
var _ Repository = (*CachedRepository)(nil)
