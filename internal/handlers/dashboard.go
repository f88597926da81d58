package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aiplaylist/internal/model"
)

// DashboardStats возвращает сводку истории генераций и жанровую разбивку
func (h *Handler) DashboardStats(c *gin.Context) {
	user := h.userIdentifier(c)

	summary, err := h.service.GenerationSummary(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var breakdown []model.GenreWeight
	if h.statsRepo != nil {
		breakdown, err = h.statsRepo.GetGenreBreakdown(user)
		if err != nil {
			// Разбивка вторична: сводка отдается и без нее
			h.logger.Warn("Failed to load genre breakdown", zap.Error(err))
			breakdown = nil
		}
	}
	if breakdown == nil {
		breakdown = []model.GenreWeight{}
	}

	c.JSON(http.StatusOK, gin.H{
		"generated":       summary,
		"genre_breakdown": breakdown,
	})
}

// RecommendedArtists возвращает карточки рекомендуемых исполнителей.
// Лимит берется из query-параметра и зажимается в допустимый диапазон.
func (h *Handler) RecommendedArtists(c *gin.Context) {
	limit := defaultArtistLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxArtistLimit {
		limit = maxArtistLimit
	}

	cards, err := h.service.RecommendedArtists(c.Request.Context(), h.identity(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	seedCount := 0
	for _, card := range cards {
		seedCount += len(card.SeedArtistIDs)
	}

	c.JSON(http.StatusOK, gin.H{
		"recommended_artists": cards,
		"meta": gin.H{
			"seed_count": seedCount,
			"limit":      limit,
		},
	})
}

// ListeningSuggestions возвращает подсказки запросов для дашборда
func (h *Handler) ListeningSuggestions(c *gin.Context) {
	limit := defaultSuggestionLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	suggestions := h.service.ListeningSuggestions(h.userIdentifier(c), limit)
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// SavedPlaylists возвращает сохраненные в Spotify плейлисты пользователя
func (h *Handler) SavedPlaylists(c *gin.Context) {
	playlists := []model.SavedPlaylist{}
	if h.savedRepo != nil {
		loaded, err := h.savedRepo.GetByUser(h.userIdentifier(c), savedPlaylistsLimit)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if loaded != nil {
			playlists = loaded
		}
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

// Metrics возвращает снимок метрик приложения
func (h *Handler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetStats())
}

// Healthz проверяет доступность приложения и хранилища
func (h *Handler) Healthz(c *gin.Context) {
	if h.healthCheck != nil {
		if err := h.healthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
