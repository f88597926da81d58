// Package profile содержит снимок истории прослушиваний пользователя.
// Снимок собирается один раз за сессию и дальше используется только на
// чтение как источник весов и пересечений для скоринга и статистики.
package profile

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/genre"
	"aiplaylist/internal/recommender/track"
)

// perGenreTrackLimit сколько треков хранится в жанровой корзине
const perGenreTrackLimit = 12

// topTrackLimit сколько идентификаторов попадает в общий топ снимка
const topTrackLimit = 50

// Catalog определяет вызовы каталога, нужные для сборки снимка
type Catalog interface {
	CurrentUserTopTracks(ctx context.Context, limit int) ([]track.Track, error)
	CurrentUserRecentlyPlayed(ctx context.Context, limit int) ([]track.Track, error)
	GetArtists(ctx context.Context, ids []string) ([]spotify.Artist, error)
}

// GenreBucket представляет агрегат треков снимка под одним жанром
type GenreBucket struct {
	TrackIDs      []string `json:"track_ids"`
	ArtistIDs     []string `json:"artist_ids"`
	AvgPopularity float64  `json:"avg_popularity"`
	AvgYear       float64  `json:"avg_year,omitempty"`
	TrackCount    int      `json:"track_count"`
}

// ArtistInfo представляет исполнителя из истории прослушиваний
type ArtistInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  int      `json:"followers"`
	ImageURL   string   `json:"image_url,omitempty"`
	PlayCount  int      `json:"play_count"`
}

// Snapshot представляет снимок истории прослушиваний пользователя
type Snapshot struct {
	CreatedAt     time.Time              `json:"created_at"`
	Source        string                 `json:"source"`
	SampleSize    int                    `json:"sample_size"`
	Tracks        map[string]track.Track `json:"tracks"`
	GenreBuckets  map[string]GenreBucket `json:"genre_buckets"`
	ArtistCounts  map[string]int         `json:"artist_counts"`
	Artists       map[string]ArtistInfo  `json:"artists"`
	ArtistNameMap map[string]string      `json:"artist_name_map"`
	TopTrackIDs   []string               `json:"top_track_ids"`
}

// NormalizeArtistKey возвращает упрощенный ключ для нечеткого сравнения
// имен исполнителей: ASCII, нижний регистр, только буквы и цифры
func NormalizeArtistKey(name string) string {
	if name == "" {
		return ""
	}
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		lower := unicode.ToLower(r)
		if (lower >= 'a' && lower <= 'z') || (lower >= '0' && lower <= '9') {
			b.WriteRune(lower)
		}
	}
	return b.String()
}

// TracksForGenre возвращает треки жанровой корзины снимка
func (s *Snapshot) TracksForGenre(normalizedGenre string, limit int) []track.Track {
	if s == nil || normalizedGenre == "" || limit <= 0 {
		return nil
	}
	bucket, ok := s.GenreBuckets[normalizedGenre]
	if !ok {
		return nil
	}

	results := make([]track.Track, 0, limit)
	for _, trackID := range bucket.TrackIDs {
		t, ok := s.Tracks[trackID]
		if !ok {
			continue
		}
		results = append(results, t)
		if len(results) >= limit {
			break
		}
	}
	return results
}

// TracksForArtist возвращает треки исполнителя из снимка по убыванию
// популярности
func (s *Snapshot) TracksForArtist(artistID string, limit int) []track.Track {
	if s == nil || artistID == "" || limit <= 0 {
		return nil
	}

	var matches []track.Track
	for _, t := range s.Tracks {
		for _, id := range t.ArtistIDs {
			if id == artistID {
				matches = append(matches, t)
				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Popularity != matches[j].Popularity {
			return matches[i].Popularity > matches[j].Popularity
		}
		return matches[i].Year > matches[j].Year
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ArtistIDForHint резолвит идентификатор исполнителя по текстовой подсказке
// через снимок: сначала точное совпадение ключа, затем вхождение
func (s *Snapshot) ArtistIDForHint(hint string) string {
	if s == nil || hint == "" {
		return ""
	}
	key := NormalizeArtistKey(hint)
	if key == "" {
		return ""
	}

	if id, ok := s.ArtistNameMap[key]; ok && id != "" {
		return id
	}

	for id, info := range s.Artists {
		name := NormalizeArtistKey(info.Name)
		if name == "" {
			continue
		}
		if name == key || strings.Contains(name, key) {
			return id
		}
	}
	return ""
}

// ArtistPlayCount возвращает число прослушиваний исполнителя в снимке
func (s *Snapshot) ArtistPlayCount(artistID string) (int, bool) {
	if s == nil || s.ArtistCounts == nil {
		return 0, false
	}
	count, ok := s.ArtistCounts[artistID]
	return count, ok
}

// HasTrack проверяет, присутствует ли трек в снимке
func (s *Snapshot) HasTrack(trackID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Tracks[trackID]
	return ok
}

// BuildSnapshot собирает снимок истории прослушиваний: сначала топ-треки
// пользователя, при их отсутствии недавно прослушанные. Возвращает nil,
// если историю получить не удалось; снимок не обязателен для генерации.
func BuildSnapshot(ctx context.Context, catalog Catalog, limit, recentLimit int, logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 50
	}
	if recentLimit <= 0 {
		recentLimit = 50
	}

	rawTracks, err := catalog.CurrentUserTopTracks(ctx, limit)
	sourceLabel := "top_tracks"
	if err != nil {
		logger.Warn("Failed to fetch user top tracks", zap.Error(err))
		rawTracks = nil
	}

	if len(rawTracks) == 0 {
		recent, err := catalog.CurrentUserRecentlyPlayed(ctx, recentLimit)
		if err != nil {
			logger.Warn("Failed to fetch recently played tracks", zap.Error(err))
		} else if len(recent) > 0 {
			rawTracks = recent
			sourceLabel = "recently_played"
		}
	}

	if len(rawTracks) == 0 {
		logger.Debug("Listening snapshot unavailable; no tracks retrieved")
		return nil
	}

	trackLookup := make(map[string]track.Track)
	var orderedIDs []string
	artistCounts := make(map[string]int)
	var artistOrder []string

	for _, t := range rawTracks {
		if t.ID == "" {
			continue
		}
		if _, ok := trackLookup[t.ID]; ok {
			continue
		}
		t.Source = sourceLabel
		trackLookup[t.ID] = t
		orderedIDs = append(orderedIDs, t.ID)
		for _, artistID := range t.ArtistIDs {
			if artistID == "" {
				continue
			}
			if _, seen := artistCounts[artistID]; !seen {
				artistOrder = append(artistOrder, artistID)
			}
			artistCounts[artistID]++
		}
	}

	if len(trackLookup) == 0 || len(artistOrder) == 0 {
		logger.Debug("Listening snapshot stopped; no eligible tracks or artists")
		return nil
	}

	catalogArtists, err := catalog.GetArtists(ctx, artistOrder)
	if err != nil {
		logger.Warn("Failed to fetch artist metadata for snapshot", zap.Error(err))
		return nil
	}
	if len(catalogArtists) == 0 {
		return nil
	}

	artists := make(map[string]ArtistInfo, len(catalogArtists))
	artistNameMap := make(map[string]string)
	for _, a := range catalogArtists {
		normalizedGenres := normalizeGenres(a.Genres)
		artists[a.ID] = ArtistInfo{
			ID:         a.ID,
			Name:       a.Name,
			Genres:     normalizedGenres,
			Popularity: a.Popularity,
			Followers:  a.Followers,
			ImageURL:   a.ImageURL,
			PlayCount:  artistCounts[a.ID],
		}
		if key := NormalizeArtistKey(a.Name); key != "" {
			artistNameMap[key] = a.ID
		}
	}

	buckets := buildGenreBuckets(orderedIDs, trackLookup, artists)

	topIDs := make([]string, len(orderedIDs))
	copy(topIDs, orderedIDs)
	sort.SliceStable(topIDs, func(i, j int) bool {
		a, b := trackLookup[topIDs[i]], trackLookup[topIDs[j]]
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		return a.Year > b.Year
	})
	if len(topIDs) > topTrackLimit {
		topIDs = topIDs[:topTrackLimit]
	}

	logger.Info("Listening snapshot built",
		zap.String("source", sourceLabel),
		zap.Int("tracks", len(trackLookup)),
		zap.Int("artists", len(artists)),
		zap.Int("genres", len(buckets)))

	return &Snapshot{
		CreatedAt:     time.Now(),
		Source:        sourceLabel,
		SampleSize:    len(trackLookup),
		Tracks:        trackLookup,
		GenreBuckets:  buckets,
		ArtistCounts:  artistCounts,
		Artists:       artists,
		ArtistNameMap: artistNameMap,
		TopTrackIDs:   topIDs,
	}
}

// buildGenreBuckets раскладывает треки снимка по жанровым корзинам
func buildGenreBuckets(orderedIDs []string, trackLookup map[string]track.Track, artists map[string]ArtistInfo) map[string]GenreBucket {
	type accumulator struct {
		trackIDs        []string
		artistIDs       []string
		popularityTotal int
		yearTotal       int
		yearCount       int
	}
	acc := make(map[string]*accumulator)

	for _, trackID := range orderedIDs {
		t := trackLookup[trackID]

		genreSet := map[string]struct{}{}
		for _, artistID := range t.ArtistIDs {
			info, ok := artists[artistID]
			if !ok {
				continue
			}
			for _, g := range info.Genres {
				genreSet[g] = struct{}{}
			}
		}

		for g := range genreSet {
			bucket := acc[g]
			if bucket == nil {
				bucket = &accumulator{}
				acc[g] = bucket
			}
			bucket.trackIDs = append(bucket.trackIDs, trackID)
			bucket.artistIDs = append(bucket.artistIDs, t.ArtistIDs...)
			bucket.popularityTotal += t.Popularity
			if t.Year > 0 {
				bucket.yearTotal += t.Year
				bucket.yearCount++
			}
		}
	}

	buckets := make(map[string]GenreBucket, len(acc))
	for g, bucket := range acc {
		sortedIDs := make([]string, len(bucket.trackIDs))
		copy(sortedIDs, bucket.trackIDs)
		sort.SliceStable(sortedIDs, func(i, j int) bool {
			a, b := trackLookup[sortedIDs[i]], trackLookup[sortedIDs[j]]
			if a.Popularity != b.Popularity {
				return a.Popularity > b.Popularity
			}
			return a.Year > b.Year
		})
		if len(sortedIDs) > perGenreTrackLimit {
			sortedIDs = sortedIDs[:perGenreTrackLimit]
		}

		seenArtists := map[string]struct{}{}
		uniqueArtists := make([]string, 0, len(bucket.artistIDs))
		for _, id := range bucket.artistIDs {
			if id == "" {
				continue
			}
			if _, ok := seenArtists[id]; ok {
				continue
			}
			seenArtists[id] = struct{}{}
			uniqueArtists = append(uniqueArtists, id)
			if len(uniqueArtists) >= perGenreTrackLimit*2 {
				break
			}
		}

		trackCount := len(bucket.trackIDs)
		avgYear := 0.0
		if bucket.yearCount > 0 {
			avgYear = float64(bucket.yearTotal) / float64(bucket.yearCount)
		}
		buckets[g] = GenreBucket{
			TrackIDs:      sortedIDs,
			ArtistIDs:     uniqueArtists,
			AvgPopularity: float64(bucket.popularityTotal) / float64(max(trackCount, 1)),
			AvgYear:       avgYear,
			TrackCount:    trackCount,
		}
	}
	return buckets
}

// normalizeGenres приводит жанровые теги к канонической форме без дублей
func normalizeGenres(raw []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, g := range raw {
		normalized := genre.Normalize(g)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}
