// Package catalog lists the storefront's products and narrows them down by the
// shopper's filters.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source is where products come from on a cache miss.
type Source interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

type Service struct {
	source Source
	cache  Cache
	sfg    singleflight.Group
	logger *zap.Logger
}

// NewService reads through cache when it is non-nil.
func NewService(source Source, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, cache: cache, logger: logger.Named("catalog")}
}

// Products returns the whole catalog. Concurrent misses share one backend call.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(cacheKey, func() (any, error) {
		if s.cache != nil {
			products, err := s.cache.Get(ctx)
			if err == nil {
				return products, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				s.logger.Warn("cache get error", zap.Error(err))
			}
		}

		products, err := s.source.Products(ctx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := s.cache.Set(ctx, products); err != nil {
					s.logger.Warn("cache set error", zap.Error(err))
				}
			}()
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// Invalidate drops the cached catalog so the next call goes to the backend.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx); err != nil {
		s.logger.Warn("cache invalidate error", zap.Error(err))
	}
}
