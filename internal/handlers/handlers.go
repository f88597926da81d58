// Package handlers содержит HTTP-обработчики приложения.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aiplaylist/internal/auth"
	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/infrastructure/metrics"
	"aiplaylist/internal/model"
	"aiplaylist/internal/recommender"
)

// sessionContextKey ключ сессии в контексте gin
const sessionContextKey = "auth_session"

// defaultSuggestionLimit сколько подсказок отдает дашборд
const defaultSuggestionLimit = 9

// savedPlaylistsLimit сколько сохраненных плейлистов отдает дашборд
const savedPlaylistsLimit = 50

// defaultArtistLimit сколько карточек исполнителей отдает дашборд
const defaultArtistLimit = 8

// maxArtistLimit верхняя граница лимита карточек исполнителей
const maxArtistLimit = 12

// Handler представляет HTTP-обработчики приложения
type Handler struct {
	service    *recommender.Service
	auth       *auth.Manager
	statsRepo  model.GenerationStatRepository
	savedRepo  model.SavedPlaylistRepository
	metrics    metrics.Interface
	logger     *zap.Logger
	sessionTTL time.Duration

	healthCheck func(ctx context.Context) error
	newCatalog  func(accessToken string) (spotify.Interface, error)
}

// Config задает зависимости HTTP-слоя
type Config struct {
	Service     *recommender.Service
	Auth        *auth.Manager
	StatsRepo   model.GenerationStatRepository
	SavedRepo   model.SavedPlaylistRepository
	Metrics     metrics.Interface
	Logger      *zap.Logger
	SessionTTL  time.Duration
	HealthCheck func(ctx context.Context) error
}

// NewHandler создает HTTP-обработчики приложения
func NewHandler(config Config) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionTTL := config.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	h := &Handler{
		service:     config.Service,
		auth:        config.Auth,
		statsRepo:   config.StatsRepo,
		savedRepo:   config.SavedRepo,
		metrics:     config.Metrics,
		logger:      logger,
		sessionTTL:  sessionTTL,
		healthCheck: config.HealthCheck,
	}
	h.newCatalog = func(accessToken string) (spotify.Interface, error) {
		return spotify.NewClient(accessToken, logger)
	}
	return h
}

// SetCatalogFactory заменяет фабрику каталожных клиентов (используется в тестах)
func (h *Handler) SetCatalogFactory(factory func(accessToken string) (spotify.Interface, error)) {
	h.newCatalog = factory
}

// RegisterRoutes регистрирует маршруты приложения
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.sessionMiddleware(), h.metricsMiddleware())

	router.GET("/healthz", h.Healthz)

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/logout", h.Logout)
	}

	api := router.Group("/api")
	{
		api.POST("/generate", h.Generate)
		api.POST("/remix", h.Remix)
		api.POST("/playlist/update", h.UpdatePlaylist)
		api.POST("/save", h.SavePlaylist)
		api.POST("/profile/refresh", h.RefreshProfile)
		api.GET("/dashboard/stats", h.DashboardStats)
		api.GET("/dashboard/artists", h.RecommendedArtists)
		api.GET("/dashboard/suggestions", h.ListeningSuggestions)
		api.GET("/dashboard/playlists", h.SavedPlaylists)
		api.GET("/metrics", h.Metrics)
	}
}

// currentSession достает сессию запроса из контекста gin
func currentSession(c *gin.Context) *auth.Session {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, valid := value.(*auth.Session)
	if !valid {
		return nil
	}
	return session
}

// identity собирает идентичность запроса: пользователь, сессия и токен.
// Просроченный токен обновляется на месте; отсутствие токена оставляет
// идентичность без него, решение об отказе принимает вызывающий обработчик.
func (h *Handler) identity(c *gin.Context) recommender.Identity {
	session := currentSession(c)
	if session == nil {
		return recommender.Identity{}
	}

	id := recommender.Identity{
		UserID:     session.SpotifyUserID,
		SessionKey: session.ID,
	}

	token, err := h.auth.AccessToken(c.Request.Context(), session)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			h.logger.Warn("Failed to obtain spotify access token", zap.Error(err))
		}
		return id
	}
	id.AccessToken = token
	return id
}

// userIdentifier возвращает идентификатор пользователя для статистики
func (h *Handler) userIdentifier(c *gin.Context) string {
	session := currentSession(c)
	if session == nil || session.SpotifyUserID == "" {
		return "anonymous"
	}
	return session.SpotifyUserID
}

// respondError транслирует ошибки сервиса в HTTP-статусы
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, recommender.ErrEmptyPrompt),
		errors.Is(err, recommender.ErrEmptyPlaylistName),
		errors.Is(err, recommender.ErrPlaylistNameTooLong):
		status = http.StatusBadRequest
	case errors.Is(err, recommender.ErrNotAuthenticated),
		errors.Is(err, auth.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, recommender.ErrNotOwned):
		status = http.StatusForbidden
	case errors.Is(err, recommender.ErrSessionExpired),
		errors.Is(err, recommender.ErrTrackNotFound),
		errors.Is(err, recommender.ErrNoListeningHistory):
		status = http.StatusNotFound
	case errors.Is(err, recommender.ErrNoTracks):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
