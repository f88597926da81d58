// Package app содержит фабрику компонентов и жизненный цикл приложения.
package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aiplaylist/internal/auth"
	"aiplaylist/internal/config"
	"aiplaylist/internal/gateway/llm"
	"aiplaylist/internal/handlers"
	"aiplaylist/internal/infrastructure/cache"
	"aiplaylist/internal/infrastructure/metrics"
	"aiplaylist/internal/recommender"
	"aiplaylist/internal/storage"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}
	if logger == nil {
		panic("Logger cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateAppDataDirectory создает директорию данных приложения
func (f *ComponentFactory) CreateAppDataDirectory() error {
	dataDir := f.config.GetAppDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		f.logger.Error("Failed to create app data directory", zap.String("dir", dataDir), zap.Error(err))
		return fmt.Errorf("failed to create app data directory: %w", err)
	}
	f.logger.Info("App data directory ready", zap.String("dir", dataDir))
	return nil
}

// CreateDatabase создает подключение к базе данных
func (f *ComponentFactory) CreateDatabase() (*storage.Postgres, error) {
	if f.config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := storage.NewPostgres(f.config.DatabaseURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateCache создает общее TTL-хранилище для плейлистов, профилей и сессий
func (f *ComponentFactory) CreateCache() *cache.Store {
	store := cache.NewStore(f.config.RecommenderConfig.CacheTTL, f.logger)
	f.logger.Info("Cache store created successfully")
	return store
}

// CreateLLMClient создает клиент LLM
func (f *ComponentFactory) CreateLLMClient() *llm.Client {
	client := llm.NewClient(llm.Config{
		BaseURL:     f.config.LLMConfig.BaseURL,
		APIKey:      f.config.LLMConfig.APIKey,
		Model:       f.config.LLMConfig.Model,
		Temperature: f.config.LLMConfig.Temperature,
		MaxTokens:   f.config.LLMConfig.MaxTokens,
		Timeout:     f.config.LLMConfig.Timeout,
	}, f.logger)

	f.logger.Info("LLM client created successfully", zap.String("model", f.config.LLMConfig.Model))
	return client
}

// CreateRecommenderService создает сервис генерации плейлистов
func (f *ComponentFactory) CreateRecommenderService(store *cache.Store, dispatcher llm.Dispatcher, db *storage.Postgres, collector metrics.Interface) *recommender.Service {
	service := recommender.NewService(store, dispatcher, recommender.Config{
		SeedLimit:      f.config.RecommenderConfig.SeedLimit,
		SimilarLimit:   f.config.RecommenderConfig.SimilarLimit,
		CacheTTL:       f.config.RecommenderConfig.CacheTTL,
		ProfileTTL:     f.config.RecommenderConfig.ProfileTTL,
		Market:         f.config.RecommenderConfig.Market,
		LatinThreshold: f.config.RecommenderConfig.LatinThreshold,
		PlaylistPrefix: f.config.RecommenderConfig.PlaylistPrefix,
		PlaylistPublic: f.config.RecommenderConfig.PlaylistPublic,
		DebugEnabled:   f.config.RecommenderConfig.DebugEnabled,
	}, f.logger)

	service.SetRepositories(db.GetGenerationStatRepository(), db.GetSavedPlaylistRepository())
	service.SetMetrics(collector)

	f.logger.Info("Recommender service created successfully")
	return service
}

// CreateAuthManager создает менеджер сессий и OAuth Spotify
func (f *ComponentFactory) CreateAuthManager(store *cache.Store) *auth.Manager {
	manager := auth.NewManager(auth.Config{
		ClientID:     f.config.SpotifyConfig.ClientID,
		ClientSecret: f.config.SpotifyConfig.ClientSecret,
		RedirectURL:  f.config.SpotifyConfig.RedirectURI,
		SessionTTL:   f.config.ServerConfig.SessionTTL,
	}, store, f.logger)

	f.logger.Info("Auth manager created successfully")
	return manager
}

// CreateRouter создает HTTP-роутер со всеми маршрутами приложения
func (f *ComponentFactory) CreateRouter(handler *handlers.Handler) *gin.Engine {
	if !f.config.RecommenderConfig.DebugEnabled {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router)

	f.logger.Info("HTTP router created successfully")
	return router
}

// CreateServer создает полный экземпляр приложения со всеми зависимостями
func (f *ComponentFactory) CreateServer() (*Server, error) {
	if err := f.CreateAppDataDirectory(); err != nil {
		return nil, err
	}

	db, err := f.CreateDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	store := f.CreateCache()
	collector := metrics.NewMetrics(f.logger)
	llmClient := f.CreateLLMClient()
	service := f.CreateRecommenderService(store, llmClient, db, collector)
	authManager := f.CreateAuthManager(store)

	handler := handlers.NewHandler(handlers.Config{
		Service:     service,
		Auth:        authManager,
		StatsRepo:   db.GetGenerationStatRepository(),
		SavedRepo:   db.GetSavedPlaylistRepository(),
		Metrics:     collector,
		Logger:      f.logger,
		SessionTTL:  f.config.ServerConfig.SessionTTL,
		HealthCheck: db.Ping,
	})

	router := f.CreateRouter(handler)

	server := NewServer(f.config, f.logger)
	server.db = db
	server.store = store
	server.router = router

	f.logger.Info("Server created successfully with all dependencies")
	return server, nil
}
