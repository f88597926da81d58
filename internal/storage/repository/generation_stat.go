// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"aiplaylist/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// breakdownWindow сколько последних генераций участвует в жанровой сводке
const breakdownWindow = 25

// breakdownTopGenres сколько жанров возвращает жанровая сводка
const breakdownTopGenres = 5

// GenerationStatRepository реализует интерфейс для работы со статистикой генераций
type GenerationStatRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGenerationStatRepository создает новый репозиторий статистики генераций
func NewGenerationStatRepository(db *bun.DB, logger *zap.Logger) *GenerationStatRepository {
	return &GenerationStatRepository{
		db:     db,
		logger: logger,
	}
}

var _ model.GenerationStatRepository = (*GenerationStatRepository)(nil)

// Create сохраняет запись о генерации
func (r *GenerationStatRepository) Create(stat *model.GenerationStat) error {
	ctx := context.Background()

	if err := stat.Validate(); err != nil {
		return fmt.Errorf("invalid generation stat: %w", err)
	}

	_, err := r.db.NewInsert().
		Model(stat).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create generation stat: %w", err)
	}

	return nil
}

// GetRecentByUser возвращает последние генерации пользователя
func (r *GenerationStatRepository) GetRecentByUser(userIdentifier string, limit int) ([]model.GenerationStat, error) {
	ctx := context.Background()
	if limit <= 0 {
		limit = breakdownWindow
	}

	var stats []model.GenerationStat
	err := r.db.NewSelect().
		Model(&stats).
		Where("user_identifier = ?", userIdentifier).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get recent generation stats: %w", err)
	}

	return stats, nil
}

// Summarize возвращает агрегированную сводку генераций пользователя
func (r *GenerationStatRepository) Summarize(userIdentifier string) (*model.GenerationSummary, error) {
	ctx := context.Background()

	var row struct {
		TotalPlaylists  int        `bun:"total_playlists"`
		TotalTracks     int64      `bun:"total_tracks"`
		TotalDurationMS int64      `bun:"total_duration_ms"`
		TotalTokens     int64      `bun:"total_tokens"`
		AvgNovelty      *float64   `bun:"avg_novelty"`
		LastGeneratedAt *time.Time `bun:"last_generated_at"`
	}

	err := r.db.NewSelect().
		Model((*model.GenerationStat)(nil)).
		ColumnExpr("COUNT(*) AS total_playlists").
		ColumnExpr("COALESCE(SUM(track_count), 0) AS total_tracks").
		ColumnExpr("COALESCE(SUM(total_duration_ms), 0) AS total_duration_ms").
		ColumnExpr("COALESCE(SUM(tokens), 0) AS total_tokens").
		ColumnExpr("AVG(avg_novelty) AS avg_novelty").
		ColumnExpr("MAX(created_at) AS last_generated_at").
		Where("user_identifier = ?", userIdentifier).
		Scan(ctx, &row)

	if err != nil {
		return nil, fmt.Errorf("failed to summarize generation stats: %w", err)
	}

	summary := &model.GenerationSummary{
		TotalPlaylists:  row.TotalPlaylists,
		TotalTracks:     row.TotalTracks,
		TotalDurationMS: row.TotalDurationMS,
		TotalHours:      math.Round(float64(row.TotalDurationMS)/1000/3600*100) / 100,
		TotalTokens:     row.TotalTokens,
		LastGeneratedAt: row.LastGeneratedAt,
	}
	if row.AvgNovelty != nil {
		rounded := math.Round(*row.AvgNovelty*10) / 10
		summary.AvgNovelty = &rounded
	}

	topGenre, err := r.topGenre(ctx, userIdentifier)
	if err != nil {
		return nil, err
	}
	summary.TopGenre = topGenre

	return summary, nil
}

// topGenre возвращает самый частый жанр пользователя, при равенстве
// выигрывает лексикографически меньший
func (r *GenerationStatRepository) topGenre(ctx context.Context, userIdentifier string) (string, error) {
	var row struct {
		TopGenre string `bun:"top_genre"`
	}

	err := r.db.NewSelect().
		Model((*model.GenerationStat)(nil)).
		Column("top_genre").
		Where("user_identifier = ?", userIdentifier).
		Where("top_genre <> ''").
		Group("top_genre").
		OrderExpr("COUNT(*) DESC").
		OrderExpr("top_genre ASC").
		Limit(1).
		Scan(ctx, &row)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get top genre: %w", err)
	}

	return row.TopGenre, nil
}

// GetGenreBreakdown возвращает топ жанров по последним генерациям пользователя.
// Вес жанра берется из сохраненной сводки генерации; жанр записи без
// сводки учитывается с единичным весом.
func (r *GenerationStatRepository) GetGenreBreakdown(userIdentifier string) ([]model.GenreWeight, error) {
	stats, err := r.GetRecentByUser(userIdentifier, breakdownWindow)
	if err != nil {
		return nil, err
	}

	tally := map[string]float64{}
	for _, stat := range stats {
		seen := map[string]struct{}{}
		for _, share := range stat.GenreTop {
			if share.Genre == "" {
				continue
			}
			weight := share.Percentage
			if weight <= 0 {
				weight = 1
			}
			tally[share.Genre] += weight
			seen[share.Genre] = struct{}{}
		}
		if stat.TopGenre != "" {
			if _, ok := seen[stat.TopGenre]; !ok {
				tally[stat.TopGenre]++
			}
		}
	}

	total := 0.0
	for _, weight := range tally {
		total += weight
	}
	if total == 0 {
		return []model.GenreWeight{}, nil
	}

	breakdown := make([]model.GenreWeight, 0, len(tally))
	for g, weight := range tally {
		breakdown = append(breakdown, model.GenreWeight{
			Genre:      g,
			Percentage: math.Round(weight/total*100*10) / 10,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Percentage != breakdown[j].Percentage {
			return breakdown[i].Percentage > breakdown[j].Percentage
		}
		return breakdown[i].Genre < breakdown[j].Genre
	})

	if len(breakdown) > breakdownTopGenres {
		breakdown = breakdown[:breakdownTopGenres]
	}
	return breakdown, nil
}

// GetTotalCount возвращает общее количество записей о генерациях
func (r *GenerationStatRepository) GetTotalCount() (int, error) {
	ctx := context.Background()

	count, err := r.db.NewSelect().
		Model((*model.GenerationStat)(nil)).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count generation stats: %w", err)
	}

	return count, nil
}
