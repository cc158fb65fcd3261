package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/weeklyworks-api/pkg/errors"
)

// ExportCacheRepository persists rendered export documents.
type ExportCacheRepository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, payload []byte, ttl time.Duration) error
	Flush(ctx context.Context) error
}

// CacheService fronts the export cache and records lookups.
type CacheService struct {
	repo    ExportCacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. A disabled service always misses.
func NewCacheService(repo ExportCacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups reach the backing store.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Remember returns the cached document for name, rendering and storing it on a miss.
// Cache failures are logged and never fail the caller.
func (s *CacheService) Remember(ctx context.Context, name string, render func() ([]byte, error)) ([]byte, error) {
	if !s.Enabled() {
		return render()
	}

	payload, err := s.repo.Get(ctx, name)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup(true)
		return payload, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.metrics.RecordCacheLookup(false)
	default:
		s.metrics.RecordCacheLookup(false)
		s.logger.Warn("export cache get failed", zap.String("key", name), zap.Error(err))
	}

	payload, err = render()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.repo.Set(ctx, name, payload, s.ttl); err != nil {
		s.logger.Warn("export cache set failed", zap.String("key", name), zap.Error(err))
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
	return payload, nil
}

// Invalidate drops every cached export.
func (s *CacheService) Invalidate(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Flush(ctx); err != nil {
		s.logger.Warn("export cache invalidate failed", zap.Error(err))
	}
}
