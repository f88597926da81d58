package spotify

import (
	"context"

	"aiplaylist/internal/recommender/track"
)

// Interface определяет интерфейс для работы с каталогом Spotify
type Interface interface {
	// SearchTracks ищет треки по текстовому запросу
	SearchTracks(ctx context.Context, query string, limit int, market string, offset int) ([]track.Track, error)
	// SearchPlaylists ищет публичные плейлисты по запросу
	SearchPlaylists(ctx context.Context, query string, limit int) ([]PlaylistRef, error)
	// SearchArtists ищет исполнителей по имени
	SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error)
	// GetArtists возвращает исполнителей по идентификаторам (не более 50 за вызов)
	GetArtists(ctx context.Context, ids []string) ([]Artist, error)
	// GetPlaylistItems возвращает треки публичного плейлиста
	GetPlaylistItems(ctx context.Context, playlistID string, limit int, market string) ([]track.Track, error)
	// GetArtistTopTracks возвращает топ-треки исполнителя для рынка
	GetArtistTopTracks(ctx context.Context, artistID, market string) ([]track.Track, error)
	// CurrentUser возвращает профиль владельца токена
	CurrentUser(ctx context.Context) (UserRef, error)
	// CreatePlaylistWithTracks создает плейлист и наполняет его треками
	CreatePlaylistWithTracks(ctx context.Context, userID, name, description string, trackIDs []string, public bool) (CreatedPlaylist, error)
	// CurrentUserTopTracks возвращает топ-треки пользователя за средний период
	CurrentUserTopTracks(ctx context.Context, limit int) ([]track.Track, error)
	// CurrentUserRecentlyPlayed возвращает недавно прослушанные треки
	CurrentUserRecentlyPlayed(ctx context.Context, limit int) ([]track.Track, error)
}
