package products

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	pkgredis "github.com/lucasortega/cartwheel-backend/pkg/redis"
)

// productCache is the slice of the redis client the catalog needs. Reads are
// best-effort: a cache failure never fails the request.
type productCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

func (s *service) cacheKey(id uint) string {
	return s.cache.CacheKey("product", strconv.FormatUint(uint64(id), 10))
}

func (s *service) readCached(ctx context.Context, id uint) *ProductDTO {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		if !errors.Is(err, pkgredis.Nil) {
			s.warn(ctx, "product cache read failed", err)
		}
		return nil
	}
	var dto ProductDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		s.warn(ctx, "product cache payload corrupt", err)
		return nil
	}
	return &dto
}

func (s *service) writeCached(ctx context.Context, dto *ProductDTO) {
	if s.cache == nil || dto == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(dto.ID), string(payload), s.cacheTTL); err != nil {
		s.warn(ctx, "product cache write failed", err)
	}
}

func (s *service) invalidateCached(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(id)); err != nil {
		s.warn(ctx, "product cache invalidation failed", err)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
