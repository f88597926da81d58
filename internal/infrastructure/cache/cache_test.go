package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aiplaylist/internal/infrastructure/metrics"
)

func TestStoreSetGet(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())

	store.Set("key", "value")

	got, ok := store.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, store.Len())
}

func TestStoreMissOnUnknownKey(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())

	got, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStoreExpiredEntryIsMiss(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())

	store.SetWithTTL("key", 42, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := store.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestStoreDeleteAndClear(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())

	store.Set("a", 1)
	store.Set("b", 2)

	store.Delete("a")
	_, ok := store.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())

	store.Clear()
	assert.Equal(t, 0, store.Len())
}

func TestStoreCleanupRemovesOnlyExpired(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())

	store.SetWithTTL("stale", 1, time.Nanosecond)
	store.SetWithTTL("fresh", 2, time.Hour)
	time.Sleep(5 * time.Millisecond)

	removed := store.Cleanup()
	assert.Equal(t, 1, removed)

	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestStoreRecordsHitAndMissMetrics(t *testing.T) {
	store := NewStore(time.Minute, zap.NewNop())
	m := metrics.NewMetrics(zap.NewNop())
	store.SetMetrics(m)

	store.Set("key", "value")
	_, _ = store.Get("key")
	_, _ = store.Get("missing")

	stats := m.GetStats()
	cacheStats := stats["cache"].(map[string]interface{})
	assert.Equal(t, int64(1), cacheStats["cache_hits"])
	assert.Equal(t, int64(1), cacheStats["cache_misses"])
}

func TestStoreDefaultTTLFallback(t *testing.T) {
	store := NewStore(0, zap.NewNop())
	assert.Equal(t, 15*time.Minute, store.defaultTTL)

	store.SetWithTTL("key", "value", 0)
	_, ok := store.Get("key")
	assert.True(t, ok)
}

func TestHashKeyStable(t *testing.T) {
	first := HashKey("user-1", "chill evening drive")
	second := HashKey("user-1", "chill evening drive")
	other := HashKey("user-2", "chill evening drive")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}
