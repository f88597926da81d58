// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"fmt"

	"aiplaylist/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SavedPlaylistRepository реализует интерфейс для работы с сохраненными плейлистами
type SavedPlaylistRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSavedPlaylistRepository создает новый репозиторий сохраненных плейлистов
func NewSavedPlaylistRepository(db *bun.DB, logger *zap.Logger) *SavedPlaylistRepository {
	return &SavedPlaylistRepository{
		db:     db,
		logger: logger,
	}
}

var _ model.SavedPlaylistRepository = (*SavedPlaylistRepository)(nil)

// Create сохраняет экспортированный плейлист
func (r *SavedPlaylistRepository) Create(playlist *model.SavedPlaylist) error {
	ctx := context.Background()

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("invalid saved playlist: %w", err)
	}

	_, err := r.db.NewInsert().
		Model(playlist).
		On("CONFLICT (user_identifier, spotify_playlist_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("track_count = EXCLUDED.track_count").
		Set("track_ids = EXCLUDED.track_ids").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create saved playlist: %w", err)
	}

	return nil
}

// GetByUser возвращает сохраненные плейлисты пользователя
func (r *SavedPlaylistRepository) GetByUser(userIdentifier string, limit int) ([]model.SavedPlaylist, error) {
	ctx := context.Background()
	if limit <= 0 {
		limit = 50
	}

	var playlists []model.SavedPlaylist
	err := r.db.NewSelect().
		Model(&playlists).
		Where("user_identifier = ?", userIdentifier).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get saved playlists: %w", err)
	}

	return playlists, nil
}

// GetTotalCount возвращает общее количество сохраненных плейлистов
func (r *SavedPlaylistRepository) GetTotalCount() (int, error) {
	ctx := context.Background()

	count, err := r.db.NewSelect().
		Model((*model.SavedPlaylist)(nil)).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count saved playlists: %w", err)
	}

	return count, nil
}
