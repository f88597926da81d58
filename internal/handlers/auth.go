package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Login начинает OAuth-цикл Spotify. Аутентифицированная сессия сразу
// отправляется на дашборд.
func (h *Handler) Login(c *gin.Context) {
	session := currentSession(c)
	if session.Authenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}

	authURL := h.auth.BeginLogin(session)
	c.Redirect(http.StatusFound, authURL)
}

// Callback обрабатывает возврат из Spotify: проверяет state, обменивает
// код на токен и подтягивает профиль пользователя
func (h *Handler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errParam})
		return
	}

	session := currentSession(c)
	if err := h.auth.CompleteLogin(c.Request.Context(), session, c.Query("state"), c.Query("code")); err != nil {
		h.logger.Warn("Spotify authorization failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get access token"})
		return
	}

	// Профиль нужен для владения плейлистами; его отсутствие не
	// блокирует вход
	token, err := h.auth.AccessToken(c.Request.Context(), session)
	if err == nil {
		if catalog, catalogErr := h.newCatalog(token); catalogErr == nil {
			if user, userErr := catalog.CurrentUser(c.Request.Context()); userErr == nil {
				h.auth.AttachProfile(session, user.ID, user.DisplayName)
			} else {
				h.logger.Warn("Failed to fetch spotify profile", zap.Error(userErr))
			}
		}
	}

	c.Redirect(http.StatusFound, "/")
}

// Logout сбрасывает токен Spotify, сохраняя сессию
func (h *Handler) Logout(c *gin.Context) {
	session := currentSession(c)
	h.auth.Logout(session)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
