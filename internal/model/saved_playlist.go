// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: SavedPlaylist, SavedPlaylistRepository
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// SavedPlaylist представляет плейлист, экспортированный в Spotify
type SavedPlaylist struct {
	bun.BaseModel `bun:"table:aiplaylist.saved_playlists"`

	ID                int       `bun:"id,pk,autoincrement" json:"id"`
	UserIdentifier    string    `bun:"user_identifier,notnull" json:"user_identifier"`
	SpotifyPlaylistID string    `bun:"spotify_playlist_id,notnull" json:"spotify_playlist_id"`
	Name              string    `bun:"name,notnull" json:"name"`
	Prompt            string    `bun:"prompt" json:"prompt"`
	TrackCount        int       `bun:"track_count,notnull,default:0" json:"track_count"`
	TrackIDs          []string  `bun:"track_ids,type:jsonb" json:"track_ids"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Validate проверяет валидность сохраненного плейлиста
func (p *SavedPlaylist) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("user_identifier", p.UserIdentifier); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if err := ValidateRequired("spotify_playlist_id", p.SpotifyPlaylistID); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if err := ValidateRequired("name", p.Name); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// SavedPlaylistRepository определяет интерфейс для работы с сохраненными плейлистами
type SavedPlaylistRepository interface {
	Create(playlist *SavedPlaylist) error
	GetByUser(userIdentifier string, limit int) ([]SavedPlaylist, error)
	GetTotalCount() (int, error)
}
