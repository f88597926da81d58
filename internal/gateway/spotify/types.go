// Package spotify реализует клиент для работы с Spotify Web API.
package spotify

import (
	"strconv"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"

	"aiplaylist/internal/recommender/track"
)

// Artist представляет исполнителя с жанровыми тегами каталога
type Artist struct {
	ID         string
	Name       string
	Genres     []string
	Popularity int
	Followers  int
	ImageURL   string
}

// PlaylistRef представляет публичный плейлист из поиска
type PlaylistRef struct {
	ID          string
	Name        string
	OwnerID     string
	TotalTracks int
}

// UserRef представляет профиль текущего пользователя
type UserRef struct {
	ID          string
	DisplayName string
}

// CreatedPlaylist представляет созданный плейлист
type CreatedPlaylist struct {
	ID     string
	Name   string
	UserID string
}

// releaseYear извлекает год релиза из даты альбома ("2019-05-17" или "2019")
func releaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// fromFullTrack нормализует метаданные трека каталога для пайплайна
func fromFullTrack(ft *spotifyapi.FullTrack) track.Track {
	if ft == nil {
		return track.Track{}
	}

	artistNames := make([]string, 0, len(ft.Artists))
	artistIDs := make([]string, 0, len(ft.Artists))
	for _, artist := range ft.Artists {
		if artist.Name != "" {
			artistNames = append(artistNames, artist.Name)
		}
		if artist.ID != "" {
			artistIDs = append(artistIDs, string(artist.ID))
		}
	}

	imageURL := ""
	if len(ft.Album.Images) > 0 {
		imageURL = ft.Album.Images[0].URL
	}

	return track.Track{
		ID:            string(ft.ID),
		Name:          ft.Name,
		Artists:       strings.Join(artistNames, ", "),
		ArtistIDs:     artistIDs,
		ArtistNames:   artistNames,
		AlbumName:     ft.Album.Name,
		AlbumImageURL: imageURL,
		Year:          releaseYear(ft.Album.ReleaseDate),
		DurationMS:    int(ft.Duration),
		Popularity:    int(ft.Popularity),
		Markets:       ft.AvailableMarkets,
	}
}

// fromSimpleTrack нормализует усеченные метаданные (история прослушиваний)
func fromSimpleTrack(st spotifyapi.SimpleTrack) track.Track {
	artistNames := make([]string, 0, len(st.Artists))
	artistIDs := make([]string, 0, len(st.Artists))
	for _, artist := range st.Artists {
		if artist.Name != "" {
			artistNames = append(artistNames, artist.Name)
		}
		if artist.ID != "" {
			artistIDs = append(artistIDs, string(artist.ID))
		}
	}

	imageURL := ""
	if len(st.Album.Images) > 0 {
		imageURL = st.Album.Images[0].URL
	}

	return track.Track{
		ID:            string(st.ID),
		Name:          st.Name,
		Artists:       strings.Join(artistNames, ", "),
		ArtistIDs:     artistIDs,
		ArtistNames:   artistNames,
		AlbumName:     st.Album.Name,
		AlbumImageURL: imageURL,
		Year:          releaseYear(st.Album.ReleaseDate),
		DurationMS:    int(st.Duration),
		Markets:       st.AvailableMarkets,
	}
}
