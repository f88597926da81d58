// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerConfig ServerConfig

	// Spotify
	SpotifyConfig SpotifyConfig

	// LLM
	LLMConfig LLMConfig

	// Recommender
	RecommenderConfig RecommenderConfig

	// Logging
	LogLevel string
	LogPath  string

	// App Data Directory
	AppDataDir string
}

// ServerConfig представляет конфигурацию HTTP-сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration
}

// SpotifyConfig представляет конфигурацию OAuth-приложения Spotify
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// LLMConfig представляет конфигурацию LLM клиента
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// RecommenderConfig представляет конфигурацию пайплайна генерации
type RecommenderConfig struct {
	SeedLimit      int
	SimilarLimit   int
	CacheTTL       time.Duration
	ProfileTTL     time.Duration
	Market         string
	LatinThreshold float64
	PlaylistPrefix string
	PlaylistPublic bool
	DebugEnabled   bool
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует; отсутствие файла не ошибка
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: getEnv("DB_DSN", ""),
		ServerConfig: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		SpotifyConfig: SpotifyConfig{
			ClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("SPOTIFY_REDIRECT_URI", ""),
		},
		LLMConfig: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		RecommenderConfig: RecommenderConfig{
			SeedLimit:      getEnvInt("RECOMMENDER_SEED_LIMIT", 5),
			SimilarLimit:   getEnvInt("RECOMMENDER_SIMILAR_LIMIT", 10),
			CacheTTL:       getEnvDuration("RECOMMENDER_CACHE_TTL", 15*time.Minute),
			ProfileTTL:     getEnvDuration("RECOMMENDER_PROFILE_TTL", 6*time.Hour),
			Market:         getEnv("RECOMMENDER_MARKET", "US"),
			LatinThreshold: getEnvFloat("RECOMMENDER_LATIN_THRESHOLD", 0.4),
			PlaylistPrefix: getEnv("RECOMMENDER_PLAYLIST_PREFIX", ""),
			PlaylistPublic: getEnvBool("RECOMMENDER_PLAYLIST_PUBLIC", false),
			DebugEnabled:   getEnvBool("RECOMMENDER_DEBUG", false),
		},
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogPath:    getEnv("LOG_PATH", ""),
		AppDataDir: getEnv("APP_DATA_DIR", "./data"),
	}

	// Валидация обязательных полей
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// GetAppDataDir возвращает директорию данных приложения
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.SpotifyConfig.ClientID == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}

	if c.SpotifyConfig.ClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}

	if c.SpotifyConfig.RedirectURI == "" {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI is required")
	}

	if c.LLMConfig.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}

	if port, err := strconv.Atoi(c.ServerConfig.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port number")
	}

	if c.RecommenderConfig.LatinThreshold < 0 || c.RecommenderConfig.LatinThreshold > 1 {
		return fmt.Errorf("RECOMMENDER_LATIN_THRESHOLD must be between 0 and 1")
	}

	return nil
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
