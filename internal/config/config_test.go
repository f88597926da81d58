package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL: "postgres://localhost:5432/aiplaylist",
		ServerConfig: ServerConfig{
			Port: "8080",
		},
		SpotifyConfig: SpotifyConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "http://localhost:8080/auth/callback",
		},
		LLMConfig: LLMConfig{
			APIKey: "llm-key",
		},
		RecommenderConfig: RecommenderConfig{
			LatinThreshold: 0.4,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing spotify client id",
			mutate:  func(c *Config) { c.SpotifyConfig.ClientID = "" },
			wantErr: true,
		},
		{
			name:    "missing spotify client secret",
			mutate:  func(c *Config) { c.SpotifyConfig.ClientSecret = "" },
			wantErr: true,
		},
		{
			name:    "missing redirect uri",
			mutate:  func(c *Config) { c.SpotifyConfig.RedirectURI = "" },
			wantErr: true,
		},
		{
			name:    "missing llm api key",
			mutate:  func(c *Config) { c.LLMConfig.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.ServerConfig.Port = "70000" },
			wantErr: true,
		},
		{
			name:    "latin threshold out of range",
			mutate:  func(c *Config) { c.RecommenderConfig.LatinThreshold = 1.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// safeSetEnv безопасно устанавливает переменную окружения
func safeSetEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Failed to set env var %s: %v", key, err)
	}
}

// safeUnsetEnv безопасно удаляет переменную окружения
func safeUnsetEnv(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Failed to unset env var %s: %v", key, err)
	}
}

func TestLoad(t *testing.T) {
	required := map[string]string{
		"DB_DSN":                "postgres://localhost:5432/aiplaylist",
		"SPOTIFY_CLIENT_ID":     "client-id",
		"SPOTIFY_CLIENT_SECRET": "client-secret",
		"SPOTIFY_REDIRECT_URI":  "http://localhost:8080/auth/callback",
		"LLM_API_KEY":           "llm-key",
	}

	original := map[string]string{}
	for key := range required {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			if value != "" {
				safeSetEnv(t, key, value)
			} else {
				safeUnsetEnv(t, key)
			}
		}
	}()

	t.Run("missing required env var", func(t *testing.T) {
		for key := range required {
			safeUnsetEnv(t, key)
		}
		_, err := Load()
		if err == nil {
			t.Error("Load() should fail when DB_DSN is missing")
		}
	})

	t.Run("valid config with defaults", func(t *testing.T) {
		for key, value := range required {
			safeSetEnv(t, key, value)
		}
		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		assert.Equal(t, "postgres://localhost:5432/aiplaylist", config.DatabaseURL)
		assert.Equal(t, "8080", config.ServerConfig.Port)
		assert.Equal(t, 24*time.Hour, config.ServerConfig.SessionTTL)
		assert.Equal(t, 5, config.RecommenderConfig.SeedLimit)
		assert.Equal(t, 10, config.RecommenderConfig.SimilarLimit)
		assert.Equal(t, 15*time.Minute, config.RecommenderConfig.CacheTTL)
		assert.Equal(t, "US", config.RecommenderConfig.Market)
		assert.InDelta(t, 0.4, config.RecommenderConfig.LatinThreshold, 0.0001)
		assert.Equal(t, "info", config.LogLevel)
		assert.Equal(t, "", config.LogPath)
		assert.Equal(t, 2*time.Minute, config.LLMConfig.Timeout)
	})

	t.Run("recommender overrides", func(t *testing.T) {
		for key, value := range required {
			safeSetEnv(t, key, value)
		}
		safeSetEnv(t, "RECOMMENDER_SEED_LIMIT", "8")
		safeSetEnv(t, "RECOMMENDER_CACHE_TTL", "5m")
		safeSetEnv(t, "RECOMMENDER_PLAYLIST_PREFIX", "AI · ")
		defer func() {
			safeUnsetEnv(t, "RECOMMENDER_SEED_LIMIT")
			safeUnsetEnv(t, "RECOMMENDER_CACHE_TTL")
			safeUnsetEnv(t, "RECOMMENDER_PLAYLIST_PREFIX")
		}()

		config, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		assert.Equal(t, 8, config.RecommenderConfig.SeedLimit)
		assert.Equal(t, 5*time.Minute, config.RecommenderConfig.CacheTTL)
		assert.Equal(t, "AI · ", config.RecommenderConfig.PlaylistPrefix)
	})
}
