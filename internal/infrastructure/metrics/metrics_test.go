package metrics

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMetrics_TimeUpdates(t *testing.T) {
	logger := zap.NewNop()
	metrics := NewMetrics(logger)

	// Тестируем начальное состояние
	stats := metrics.GetStats()
	system := stats["system"].(map[string]interface{})

	if system["last_profile_refresh"] != "not set" {
		t.Errorf("Expected 'not set', got %v", system["last_profile_refresh"])
	}

	// Тестируем установку времени последнего обновления снимка
	metrics.SetProfileRefreshStatus(false)

	stats = metrics.GetStats()
	system = stats["system"].(map[string]interface{})

	if system["last_profile_refresh"] == "not set" {
		t.Error("Expected time format, got 'not set'")
	}
}

func TestMetrics_FormatTime(t *testing.T) {
	logger := zap.NewNop()
	metrics := NewMetrics(logger)

	// Тест с нулевым временем
	result := metrics.formatTime(time.Time{})
	if result != "not set" {
		t.Errorf("Expected 'not set', got %s", result)
	}

	// Тест с реальным временем
	testTime := time.Date(2024, 12, 25, 15, 30, 0, 0, time.UTC)
	result = metrics.formatTime(testTime)
	expected := "25.12.24 15:30"
	if result != expected {
		t.Errorf("Expected %s, got %s", expected, result)
	}
}

func TestMetrics_FormatDuration(t *testing.T) {
	logger := zap.NewNop()
	metrics := NewMetrics(logger)

	duration := 115556550 * time.Nanosecond
	result := metrics.formatDuration(duration)
	expected := "0.12s"
	if result != expected {
		t.Errorf("Expected %s, got %s", expected, result)
	}

	result = metrics.formatDuration(2500 * time.Millisecond)
	if result != "2.50s" {
		t.Errorf("Expected 2.50s, got %s", result)
	}
}

func TestMetrics_CacheHitRate(t *testing.T) {
	logger := zap.NewNop()
	metrics := NewMetrics(logger)

	metrics.RecordCacheHit()
	metrics.RecordCacheHit()
	metrics.RecordCacheHit()
	metrics.RecordCacheMiss()

	stats := metrics.GetStats()
	cache := stats["cache"].(map[string]interface{})

	if cache["cache_hits"].(int64) != 3 {
		t.Errorf("Expected 3 hits, got %v", cache["cache_hits"])
	}
	if cache["cache_misses"].(int64) != 1 {
		t.Errorf("Expected 1 miss, got %v", cache["cache_misses"])
	}
	if cache["cache_hit_rate"].(float64) != 75.0 {
		t.Errorf("Expected 75.0 hit rate, got %v", cache["cache_hit_rate"])
	}
}

func TestMetrics_UserActivityAndGenerations(t *testing.T) {
	logger := zap.NewNop()
	metrics := NewMetrics(logger)

	metrics.RecordRequest("/generate", "user-1")
	metrics.RecordRequest("/generate", "user-1")
	metrics.RecordRequest("/remix", "user-2")
	metrics.RecordRequest("/healthz", "")
	metrics.RecordGeneration(10, 1500)
	metrics.RecordGeneration(8, 900)

	stats := metrics.GetStats()
	activity := stats["user_activity"].(map[string]interface{})
	generations := stats["generations"].(map[string]interface{})

	if activity["total_requests"].(int64) != 4 {
		t.Errorf("Expected 4 requests, got %v", activity["total_requests"])
	}
	if activity["unique_users"].(int) != 2 {
		t.Errorf("Expected 2 unique users, got %v", activity["unique_users"])
	}
	if generations["total_generations"].(int64) != 2 {
		t.Errorf("Expected 2 generations, got %v", generations["total_generations"])
	}
	if generations["generated_tracks"].(int64) != 18 {
		t.Errorf("Expected 18 tracks, got %v", generations["generated_tracks"])
	}
	if generations["total_tokens"].(int64) != 2400 {
		t.Errorf("Expected 2400 tokens, got %v", generations["total_tokens"])
	}
}
