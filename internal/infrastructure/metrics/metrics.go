// Package metrics реализует систему метрик сервиса генерации плейлистов.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics представляет систему метрик сервиса
type Metrics struct {
	mu sync.RWMutex

	// Пользовательская активность
	totalRequests int64
	uniqueUsers   map[string]struct{}

	// Метрики генераций
	totalGenerations int64
	generatedTracks  int64
	totalTokens      int64

	// Метрики кэша
	cacheHitRate float64
	cacheMisses  int64
	cacheHits    int64

	// Метрики производительности
	avgResponseTime time.Duration
	timedRequests   int64
	errorCount      int64

	// Системные метрики
	lastProfileRefresh time.Time
	uptime             time.Time

	logger *zap.Logger
}

var _ Interface = (*Metrics)(nil)

// NewMetrics создает новую систему метрик
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		uniqueUsers: make(map[string]struct{}),
		uptime:      time.Now(),
		logger:      logger,
	}
}

// RecordRequest записывает обращение к эндпоинту
func (m *Metrics) RecordRequest(endpoint string, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if userID != "" {
		m.uniqueUsers[userID] = struct{}{}
	}
}

// RecordGeneration записывает завершенную генерацию плейлиста
func (m *Metrics) RecordGeneration(trackCount, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalGenerations++
	m.generatedTracks += int64(trackCount)
	m.totalTokens += int64(tokens)
}

// RecordCacheHit записывает попадание в кэш
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cacheHits++
	m.updateCacheHitRate()
}

// RecordCacheMiss записывает промах кэша
func (m *Metrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cacheMisses++
	m.updateCacheHitRate()
}

// RecordResponseTime записывает время ответа
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timedRequests++
	// Простое скользящее среднее
	if m.avgResponseTime == 0 {
		m.avgResponseTime = duration
	} else {
		m.avgResponseTime = (m.avgResponseTime + duration) / 2
	}
}

// RecordError записывает ошибку
func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorCount++
}

// SetProfileRefreshStatus устанавливает статус обновления снимка прослушиваний
func (m *Metrics) SetProfileRefreshStatus(updating bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !updating {
		m.lastProfileRefresh = time.Now()
	}
}

// GetStats возвращает все метрики в виде map
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"user_activity": map[string]interface{}{
			"total_requests": m.totalRequests,
			"unique_users":   len(m.uniqueUsers),
		},
		"generations": map[string]interface{}{
			"total_generations": m.totalGenerations,
			"generated_tracks":  m.generatedTracks,
			"total_tokens":      m.totalTokens,
		},
		"cache": map[string]interface{}{
			"cache_hit_rate": m.cacheHitRate,
			"cache_hits":     m.cacheHits,
			"cache_misses":   m.cacheMisses,
		},
		"performance": map[string]interface{}{
			"avg_response_time": m.formatDuration(m.avgResponseTime),
			"timed_requests":    m.timedRequests,
			"error_count":       m.errorCount,
			"error_rate":        m.calculateErrorRate(),
		},
		"system": map[string]interface{}{
			"uptime":               m.formatDuration(time.Since(m.uptime)),
			"last_profile_refresh": m.formatTime(m.lastProfileRefresh),
		},
	}
}

// updateCacheHitRate обновляет процент попаданий в кэш
func (m *Metrics) updateCacheHitRate() {
	total := m.cacheHits + m.cacheMisses
	if total > 0 {
		m.cacheHitRate = float64(m.cacheHits) / float64(total) * 100
	}
}

// calculateErrorRate вычисляет процент ошибок
func (m *Metrics) calculateErrorRate() float64 {
	if m.timedRequests > 0 {
		return float64(m.errorCount) / float64(m.timedRequests) * 100
	}
	return 0
}

// formatTime форматирует время или возвращает "not set" для нулевого значения
func (m *Metrics) formatTime(t time.Time) string {
	if t.IsZero() {
		return "not set"
	}
	return t.Format("02.01.06 15:04")
}

// formatDuration форматирует duration с двумя знаками после запятой
func (m *Metrics) formatDuration(d time.Duration) string {
	seconds := d.Seconds()
	return fmt.Sprintf("%.2fs", seconds)
}
