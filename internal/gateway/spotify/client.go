package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"aiplaylist/internal/recommender/track"
)

// addTracksChunkSize ограничение Spotify API на добавление треков за запрос
const addTracksChunkSize = 100

// getArtistsChunkSize ограничение Spotify API на запрос исполнителей
const getArtistsChunkSize = 50

// maxPlaylistNameLength предел длины имени плейлиста
const maxPlaylistNameLength = 100

// tokenTransport добавляет токен к каждому запросу
type tokenTransport struct {
	base  http.RoundTripper
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// Client представляет клиент каталога Spotify для одного токена доступа
type Client struct {
	api    *spotifyapi.Client
	logger *zap.Logger
}

// NewClient создает клиент каталога на основе токена доступа пользователя.
// Токен живет короче клиента, поэтому клиент создается заново на каждый
// запрос генерации.
func NewClient(accessToken string, logger *zap.Logger) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("spotify access token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Transport: &tokenTransport{
			base:  http.DefaultTransport,
			token: accessToken,
		},
	}

	return &Client{
		api:    spotifyapi.New(httpClient),
		logger: logger,
	}, nil
}

// newClientWithAPI оборачивает готовый API-клиент (используется в тестах)
func newClientWithAPI(api *spotifyapi.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger}
}

// SearchTracks ищет треки по текстовому запросу
func (c *Client) SearchTracks(ctx context.Context, query string, limit int, market string, offset int) ([]track.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = 20
	}

	opts := []spotifyapi.RequestOption{spotifyapi.Limit(limit)}
	if market != "" {
		opts = append(opts, spotifyapi.Market(market))
	}
	if offset > 0 {
		opts = append(opts, spotifyapi.Offset(offset))
	}

	result, err := c.api.Search(ctx, query, spotifyapi.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, fromFullTrack(&result.Tracks.Tracks[i]))
	}

	c.logger.Debug("Track search completed",
		zap.String("query", query),
		zap.Int("results", len(tracks)))

	return tracks, nil
}

// SearchPlaylists ищет публичные плейлисты по запросу
func (c *Client) SearchPlaylists(ctx context.Context, query string, limit int) ([]PlaylistRef, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = 10
	}

	result, err := c.api.Search(ctx, query, spotifyapi.SearchTypePlaylist, spotifyapi.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}
	if result.Playlists == nil {
		return nil, nil
	}

	refs := make([]PlaylistRef, 0, len(result.Playlists.Playlists))
	for _, pl := range result.Playlists.Playlists {
		refs = append(refs, PlaylistRef{
			ID:          string(pl.ID),
			Name:        pl.Name,
			OwnerID:     pl.Owner.ID,
			TotalTracks: int(pl.Tracks.Total),
		})
	}

	return refs, nil
}

// SearchArtists ищет исполнителей по имени
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	result, err := c.api.Search(ctx, query, spotifyapi.SearchTypeArtist, spotifyapi.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search artists: %w", err)
	}
	if result.Artists == nil {
		return nil, nil
	}

	artists := make([]Artist, 0, len(result.Artists.Artists))
	for _, a := range result.Artists.Artists {
		artists = append(artists, fromFullArtist(&a))
	}

	return artists, nil
}

// GetArtists возвращает исполнителей по идентификаторам.
// Список режется на чанки по 50 согласно ограничению API.
func (c *Client) GetArtists(ctx context.Context, ids []string) ([]Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	artists := make([]Artist, 0, len(ids))
	for start := 0; start < len(ids); start += getArtistsChunkSize {
		end := start + getArtistsChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		chunk := make([]spotifyapi.ID, 0, end-start)
		for _, id := range ids[start:end] {
			chunk = append(chunk, spotifyapi.ID(id))
		}

		full, err := c.api.GetArtists(ctx, chunk...)
		if err != nil {
			return nil, fmt.Errorf("failed to get artists at offset %d: %w", start, err)
		}
		for _, a := range full {
			if a == nil {
				continue
			}
			artists = append(artists, fromFullArtist(a))
		}
	}

	return artists, nil
}

// GetPlaylistItems возвращает треки публичного плейлиста
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID string, limit int, market string) ([]track.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist ID is empty")
	}
	if limit <= 0 {
		limit = 50
	}

	opts := []spotifyapi.RequestOption{spotifyapi.Limit(limit)}
	if market != "" {
		opts = append(opts, spotifyapi.Market(market))
	}

	page, err := c.api.GetPlaylistItems(ctx, spotifyapi.ID(playlistID), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	tracks := make([]track.Track, 0, len(page.Items))
	for _, item := range page.Items {
		// Эпизоды подкастов пропускаются
		if item.Track.Track == nil {
			continue
		}
		tracks = append(tracks, fromFullTrack(item.Track.Track))
	}

	return tracks, nil
}

// GetArtistTopTracks возвращает топ-треки исполнителя для рынка
func (c *Client) GetArtistTopTracks(ctx context.Context, artistID, market string) ([]track.Track, error) {
	if artistID == "" {
		return nil, fmt.Errorf("artist ID is empty")
	}
	if market == "" {
		market = "US"
	}

	full, err := c.api.GetArtistsTopTracks(ctx, spotifyapi.ID(artistID), market)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist top tracks: %w", err)
	}

	tracks := make([]track.Track, 0, len(full))
	for i := range full {
		tracks = append(tracks, fromFullTrack(&full[i]))
	}

	return tracks, nil
}

// CurrentUser возвращает профиль владельца токена
func (c *Client) CurrentUser(ctx context.Context) (UserRef, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return UserRef{}, fmt.Errorf("failed to get current user: %w", err)
	}

	return UserRef{
		ID:          user.ID,
		DisplayName: user.DisplayName,
	}, nil
}

// CreatePlaylistWithTracks создает плейлист в аккаунте пользователя и
// добавляет треки чанками по 100 с сохранением порядка
func (c *Client) CreatePlaylistWithTracks(ctx context.Context, userID, name, description string, trackIDs []string, public bool) (CreatedPlaylist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CreatedPlaylist{}, fmt.Errorf("playlist name is empty")
	}
	if len([]rune(name)) > maxPlaylistNameLength {
		return CreatedPlaylist{}, fmt.Errorf("playlist name exceeds %d characters", maxPlaylistNameLength)
	}
	if len(trackIDs) == 0 {
		return CreatedPlaylist{}, fmt.Errorf("no tracks to add")
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return CreatedPlaylist{}, fmt.Errorf("failed to create playlist: %w", err)
	}

	for start := 0; start < len(trackIDs); start += addTracksChunkSize {
		end := start + addTracksChunkSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		chunk := make([]spotifyapi.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			chunk = append(chunk, spotifyapi.ID(id))
		}

		if _, err := c.api.AddTracksToPlaylist(ctx, playlist.ID, chunk...); err != nil {
			return CreatedPlaylist{}, fmt.Errorf("failed to add tracks at offset %d: %w", start, err)
		}
	}

	c.logger.Info("Playlist created",
		zap.String("playlist_id", string(playlist.ID)),
		zap.Int("tracks", len(trackIDs)))

	return CreatedPlaylist{
		ID:     string(playlist.ID),
		Name:   playlist.Name,
		UserID: userID,
	}, nil
}

// CurrentUserTopTracks возвращает топ-треки пользователя за средний период
func (c *Client) CurrentUserTopTracks(ctx context.Context, limit int) ([]track.Track, error) {
	if limit <= 0 {
		limit = 50
	}

	page, err := c.api.CurrentUsersTopTracks(ctx, spotifyapi.Limit(limit), spotifyapi.Timerange(spotifyapi.MediumTermRange))
	if err != nil {
		return nil, fmt.Errorf("failed to get user top tracks: %w", err)
	}

	tracks := make([]track.Track, 0, len(page.Tracks))
	for i := range page.Tracks {
		tracks = append(tracks, fromFullTrack(&page.Tracks[i]))
	}

	return tracks, nil
}

// CurrentUserRecentlyPlayed возвращает недавно прослушанные треки
func (c *Client) CurrentUserRecentlyPlayed(ctx context.Context, limit int) ([]track.Track, error) {
	if limit <= 0 {
		limit = 50
	}

	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotifyapi.RecentlyPlayedOptions{Limit: spotifyapi.Numeric(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to get recently played tracks: %w", err)
	}

	tracks := make([]track.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, fromSimpleTrack(item.Track))
	}

	return tracks, nil
}

// fromFullArtist нормализует данные исполнителя
func fromFullArtist(a *spotifyapi.FullArtist) Artist {
	imageURL := ""
	if len(a.Images) > 0 {
		imageURL = a.Images[0].URL
	}
	return Artist{
		ID:         string(a.ID),
		Name:       a.Name,
		Genres:     a.Genres,
		Popularity: int(a.Popularity),
		Followers:  int(a.Followers.Count),
		ImageURL:   imageURL,
	}
}
