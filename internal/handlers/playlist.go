package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// generateRequest тело запроса генерации плейлиста
type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate выполняет пайплайн генерации для текстового запроса
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload."})
		return
	}

	payload, err := h.service.Generate(c.Request.Context(), h.identity(c), req.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.metrics != nil {
		if payload.CacheHit {
			h.metrics.RecordCacheHit()
		} else {
			h.metrics.RecordCacheMiss()
		}
	}
	c.JSON(http.StatusOK, payload)
}

// remixRequest тело запроса ремикса
type remixRequest struct {
	CacheKey string `json:"cache_key"`
}

// Remix пересобирает кэшированный плейлист с сохранением длины
func (h *Handler) Remix(c *gin.Context) {
	var req remixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload."})
		return
	}

	payload, err := h.service.Remix(c.Request.Context(), h.identity(c), req.CacheKey)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// updateRequest тело запроса правки кэшированного плейлиста
type updateRequest struct {
	Action   string `json:"action"`
	CacheKey string `json:"cache_key"`
	TrackID  string `json:"track_id"`
	Position *int   `json:"position"`
}

// UpdatePlaylist правит кэшированный плейлист; поддерживается удаление
// трека по идентификатору или позиции
func (h *Handler) UpdatePlaylist(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload."})
		return
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	if req.CacheKey == "" || action != "remove" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request."})
		return
	}

	payload, err := h.service.RemoveTrack(c.Request.Context(), h.identity(c), req.CacheKey, req.TrackID, req.Position)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"track_count": len(payload.Tracks),
		"track_ids":   payload.TrackIDs,
		"tracks":      payload.Tracks,
	})
}

// saveRequest тело запроса сохранения плейлиста в Spotify
type saveRequest struct {
	CacheKey     string `json:"cache_key"`
	PlaylistName string `json:"playlist_name"`
}

// SavePlaylist экспортирует кэшированный плейлист в Spotify
func (h *Handler) SavePlaylist(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload."})
		return
	}

	result, err := h.service.SavePlaylist(c.Request.Context(), h.identity(c), req.CacheKey, req.PlaylistName)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Профиль из результата уточняет сессию на случай, если вход
	// прошел без загрузки профиля
	if session := currentSession(c); session != nil && result.UserID != "" {
		if session.SpotifyUserID != result.UserID || session.DisplayName != result.UserDisplayName {
			h.auth.AttachProfile(session, result.UserID, result.UserDisplayName)
		}
	}

	c.JSON(http.StatusOK, result)
}

// RefreshProfile пересобирает снимок прослушиваний пользователя
func (h *Handler) RefreshProfile(c *gin.Context) {
	snapshot, err := h.service.RefreshProfile(c.Request.Context(), h.identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"source":      snapshot.Source,
		"track_count": len(snapshot.Tracks),
	})
}
