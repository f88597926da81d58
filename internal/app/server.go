package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aiplaylist/internal/config"
	"aiplaylist/internal/infrastructure/cache"
	"aiplaylist/internal/storage"
)

// janitorInterval период очистки протухших записей кэша
const janitorInterval = 5 * time.Minute

// Server представляет HTTP-приложение с его фоновыми процессами
type Server struct {
	config *config.Config
	logger *zap.Logger
	db     *storage.Postgres
	store  *cache.Store
	router *gin.Engine

	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer создает новый экземпляр приложения
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger,
	}
}

// NewServerWithFactory создает приложение со всеми зависимостями
func NewServerWithFactory(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	factory := NewComponentFactory(cfg, logger)
	return factory.CreateServer()
}

// Start запускает HTTP-сервер и фоновую очистку кэша. Блокируется до
// отмены контекста или фатальной ошибки сервера.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.ServerConfig.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.ServerConfig.ReadTimeout,
		WriteTimeout: s.config.ServerConfig.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.store.StartJanitor(runCtx, janitorInterval)
	}()

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-runCtx.Done():
		s.logger.Info("Shutdown requested")
		return s.Stop()
	case err := <-serverErr:
		s.logger.Error("HTTP server failed", zap.Error(err))
		stopErr := s.Stop()
		if stopErr != nil {
			s.logger.Error("Failed to stop server cleanly", zap.Error(stopErr))
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop gracefully останавливает сервер и закрывает соединения
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ServerConfig.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		} else {
			s.logger.Info("HTTP server stopped")
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
		s.logger.Info("All background goroutines stopped")
	case <-shutdownCtx.Done():
		s.logger.Warn("Graceful shutdown timeout exceeded, forcing stop")
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
			return err
		}
	}

	s.logger.Info("Server stopped successfully")
	return nil
}
