// Package cache содержит типы для кэширования результатов генерации.
package cache

import (
	"context"
	"sync"
	"time"

	"aiplaylist/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Cache defines the interface for cache operations
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
	Cleanup() int
	StartJanitor(ctx context.Context, interval time.Duration)
}

// Entry holds a cached value with its expiry deadline
type Entry struct {
	Value     interface{}
	ExpiresAt time.Time
}

// Store manages the cache
type Store struct {
	entries    map[string]Entry
	mu         sync.Mutex
	defaultTTL time.Duration
	logger     *zap.Logger
	metrics    metrics.Interface
}

var _ Cache = (*Store)(nil)

// NewStore создает новый экземпляр Store
func NewStore(defaultTTL time.Duration, logger *zap.Logger) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// SetMetrics sets the metrics interface for the Store
func (s *Store) SetMetrics(metrics metrics.Interface) {
	s.metrics = metrics
}
