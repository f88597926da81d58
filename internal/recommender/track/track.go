// Package track содержит базовые типы треков для пайплайна рекомендаций.
package track

import "fmt"

// Track представляет трек, сопоставленный с записью каталога Spotify
type Track struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Artists       string             `json:"artists"`
	ArtistIDs     []string           `json:"artist_ids,omitempty"`
	ArtistNames   []string           `json:"artist_names,omitempty"`
	AlbumName     string             `json:"album_name,omitempty"`
	AlbumImageURL string             `json:"album_image_url,omitempty"`
	Year          int                `json:"year,omitempty"`
	DurationMS    int                `json:"duration_ms"`
	Popularity    int                `json:"popularity"`
	Markets       []string           `json:"-"`
	Source        string             `json:"source,omitempty"`
	Score         float64            `json:"score,omitempty"`
	Breakdown     map[string]float64 `json:"score_breakdown,omitempty"`
}

// Display возвращает строковое представление "Название - Исполнители"
func (t Track) Display() string {
	name := t.Name
	if name == "" {
		name = "Unknown"
	}
	artists := t.Artists
	if artists == "" {
		artists = "Unknown"
	}
	return fmt.Sprintf("%s - %s", name, artists)
}

// Key возвращает ключ дедупликации: ID трека или пара название/исполнители
func (t Track) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s::%s", t.Name, t.Artists)
}

// Displays возвращает строковые представления для списка треков
func Displays(tracks []Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.Display())
	}
	return out
}

// IDs возвращает идентификаторы треков, пропуская пустые
func IDs(tracks []Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			out = append(out, t.ID)
		}
	}
	return out
}
