// Package cache реализует TTL-кэширование результатов генерации плейлистов.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Get retrieves a value from the cache, treating expired entries as misses
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	entry, exists := s.entries[key]
	if exists && time.Now().After(entry.ExpiresAt) {
		delete(s.entries, key)
		exists = false
	}
	s.mu.Unlock()

	if s.metrics != nil {
		if exists {
			s.metrics.RecordCacheHit()
		} else {
			s.metrics.RecordCacheMiss()
		}
	}

	if !exists {
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value with the default TTL
func (s *Store) Set(key string, value interface{}) {
	s.SetWithTTL(key, value, s.defaultTTL)
}

// SetWithTTL stores a value with an explicit TTL
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Delete removes a single entry
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Clear clears the cache
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
}

// Len returns the number of stored entries, expired included
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Cleanup removes expired entries and returns how many were dropped
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartJanitor runs periodic cleanup until the context is cancelled
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.defaultTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Cache janitor stopped due to context cancellation")
			return
		case <-ticker.C:
			if removed := s.Cleanup(); removed > 0 {
				s.logger.Debug("Cache janitor removed expired entries", zap.Int("removed", removed))
			}
		}
	}
}

// HashKey generates a stable digest for a composite cache key
func HashKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
