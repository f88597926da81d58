// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: GenerationStat, GenerationSummary, GenerationStatRepository
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// GenreWeight представляет долю жанра в сводке генерации
type GenreWeight struct {
	Genre      string  `json:"genre"`
	Percentage float64 `json:"percentage"`
}

// GenerationStat представляет запись об одной генерации плейлиста
type GenerationStat struct {
	bun.BaseModel `bun:"table:aiplaylist.generation_stats"`

	ID              int           `bun:"id,pk,autoincrement" json:"id"`
	UserIdentifier  string        `bun:"user_identifier,notnull" json:"user_identifier"`
	Prompt          string        `bun:"prompt,notnull" json:"prompt"`
	TrackCount      int           `bun:"track_count,notnull,default:0" json:"track_count"`
	TotalDurationMS int64         `bun:"total_duration_ms,notnull,default:0" json:"total_duration_ms"`
	TopGenre        string        `bun:"top_genre" json:"top_genre"`
	AvgNovelty      *float64      `bun:"avg_novelty" json:"avg_novelty"`
	Tokens          int           `bun:"tokens,notnull,default:0" json:"tokens"`
	GenreTop        []GenreWeight `bun:"genre_top,type:jsonb" json:"genre_top"`
	CreatedAt       time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Validate проверяет валидность записи о генерации
func (s *GenerationStat) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("user_identifier", s.UserIdentifier); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if err := ValidateRequired("prompt", s.Prompt); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if err := ValidateNonNegativeInt("track_count", s.TrackCount); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if err := ValidateNonNegativeInt("tokens", s.Tokens); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// GenerationSummary представляет агрегированную сводку генераций пользователя
type GenerationSummary struct {
	TotalPlaylists  int        `json:"total_playlists"`
	TotalTracks     int64      `json:"total_tracks"`
	TotalDurationMS int64      `json:"total_duration_ms"`
	TotalHours      float64    `json:"total_hours"`
	TotalTokens     int64      `json:"total_tokens"`
	AvgNovelty      *float64   `json:"avg_novelty"`
	TopGenre        string     `json:"top_genre"`
	LastGeneratedAt *time.Time `json:"last_generated_at"`
}

// GenerationStatRepository определяет интерфейс для работы со статистикой генераций
type GenerationStatRepository interface {
	Create(stat *GenerationStat) error
	GetRecentByUser(userIdentifier string, limit int) ([]GenerationStat, error)
	Summarize(userIdentifier string) (*GenerationSummary, error)
	GetGenreBreakdown(userIdentifier string) ([]GenreWeight, error)
	GetTotalCount() (int, error)
}
