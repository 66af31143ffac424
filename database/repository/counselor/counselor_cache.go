package counselorRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mindease/models"
	"mindease/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const allCounselorsKey = utils.CounselorCachePrefix + "all"

func counselorKey(id int64) string {
	return utils.CounselorCachePrefix + strconv.FormatInt(id, 10)
}

// cachedCounselorRepo is a read-through Redis cache in front of another repository.
// Cache failures are logged and fall through to the store.
type cachedCounselorRepo struct {
	next   CounselorRepository
	cache  redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedCounselorRepo(next CounselorRepository, cache redis.Cmdable, ttl time.Duration, logger *zap.Logger) CounselorRepository {
	return &cachedCounselorRepo{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *cachedCounselorRepo) List(ctx context.Context) ([]models.Counselor, error) {
	var cached []models.Counselor
	if r.load(ctx, allCounselorsKey, &cached) {
		return cached, nil
	}
	out, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, allCounselorsKey, out)
	return out, nil
}

func (r *cachedCounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	var cached models.Counselor
	if r.load(ctx, counselorKey(id), &cached) {
		return &cached, nil
	}
	c, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, counselorKey(id), c)
	return c, nil
}

func (r *cachedCounselorRepo) Upsert(ctx context.Context, c *models.Counselor) error {
	if err := r.next.Upsert(ctx, c); err != nil {
		return err
	}
	if err := r.cache.Del(ctx, allCounselorsKey, counselorKey(c.ID)).Err(); err != nil {
		r.logger.Warn("Failed to invalidate counselor cache", zap.Int64("counselorId", c.ID), zap.Error(err))
	}
	return nil
}

func (r *cachedCounselorRepo) Count(ctx context.Context) (int64, error) {
	return r.next.Count(ctx)
}

func (r *cachedCounselorRepo) load(ctx context.Context, key string, dest any) bool {
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Counselor cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("Discarding corrupt counselor cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (r *cachedCounselorRepo) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("Counselor cache encode failed", zap.String("key", key), zap.Error(fmt.Errorf("marshal: %w", err)))
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("Counselor cache write failed", zap.String("key", key), zap.Error(err))
	}
}
