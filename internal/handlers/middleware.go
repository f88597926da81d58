package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"aiplaylist/internal/auth"
)

// sessionMiddleware привязывает запрос к сессии по cookie, создавая новую
// сессию при отсутствии или протухании старой
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var session *auth.Session
		if id, err := c.Cookie(auth.CookieName); err == nil && id != "" {
			if existing, ok := h.auth.Session(id); ok {
				session = existing
			}
		}
		if session == nil {
			session = h.auth.CreateSession()
			c.SetCookie(auth.CookieName, session.ID, int(h.sessionTTL.Seconds()), "/", "", false, true)
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// metricsMiddleware записывает обращения, время ответа и ошибки
func (h *Handler) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if h.metrics == nil {
			return
		}
		userID := ""
		if session := currentSession(c); session != nil {
			userID = session.SpotifyUserID
		}
		h.metrics.RecordRequest(c.FullPath(), userID)
		h.metrics.RecordResponseTime(time.Since(start))
		if c.Writer.Status() >= 500 {
			h.metrics.RecordError()
		}
	}
}
