// Package stats вычисляет объяснимые метрики готового плейлиста.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"aiplaylist/internal/recommender/genre"
	"aiplaylist/internal/recommender/profile"
	"aiplaylist/internal/recommender/track"
)

// highlightLimit сколько треков попадает в списки самых и наименее популярных
const highlightLimit = 3

// topGenreLimit сколько жанров показывается до сворачивания остатка
const topGenreLimit = 3

// Человекочитаемые подписи источников треков
var sourceLabels = map[string]string{
	"llm_seed":          "LLM Seeds",
	"resolved_seed":     "LLM Seeds",
	"similarity":        "Similarity Engine",
	"genre_discovery":   "Genre Discovery",
	"remix_seed":        "Remix Seeds",
	"playlist":          "Playlist",
	"profile_cache":     "Listening History",
	"artist_top_tracks": "Artist Top Tracks",
}

// GenreShare представляет долю жанра в плейлисте
type GenreShare struct {
	Genre      string  `json:"genre"`
	Percentage float64 `json:"percentage"`
}

// SourceShare представляет долю источника треков в плейлисте
type SourceShare struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TrackHighlight представляет трек в списках популярности
type TrackHighlight struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Artists       string `json:"artists"`
	Popularity    int    `json:"popularity"`
	AlbumImageURL string `json:"album_image_url"`
}

// Statistics представляет метрики готового плейлиста
type Statistics struct {
	TotalTracks         int                `json:"total_tracks"`
	TotalDuration       string             `json:"total_duration"`
	TotalDurationMS     int                `json:"total_duration_ms"`
	AvgPopularity       *float64           `json:"avg_popularity"`
	Novelty             float64            `json:"novelty"`
	GenreDistribution   map[string]float64 `json:"genre_distribution"`
	GenreTop            []GenreShare       `json:"genre_top"`
	GenreRemaining      []GenreShare       `json:"genre_remaining"`
	NoveltyReferenceIDs []string           `json:"novelty_reference_ids"`
	SourceMix           []SourceShare      `json:"source_mix"`
	SourceTotal         int                `json:"source_total"`
	TopPopularTracks    []TrackHighlight   `json:"top_popular_tracks"`
	LeastPopularTracks  []TrackHighlight   `json:"least_popular_tracks"`
}

// empty возвращает статистику пустого плейлиста с инициализированными
// коллекциями, чтобы JSON отдавал [] и {} вместо null
func empty() Statistics {
	return Statistics{
		TotalDuration:       "00:00:00",
		Novelty:             100.0,
		GenreDistribution:   map[string]float64{},
		GenreTop:            []GenreShare{},
		GenreRemaining:      []GenreShare{},
		NoveltyReferenceIDs: []string{},
		SourceMix:           []SourceShare{},
		TopPopularTracks:    []TrackHighlight{},
		LeastPopularTracks:  []TrackHighlight{},
	}
}

// FormatDuration форматирует длительность в миллисекундах как HH:MM:SS
func FormatDuration(totalMS int) string {
	if totalMS < 0 {
		totalMS = 0
	}
	totalSeconds := totalMS / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// Compute вычисляет метрики плейлиста. Снимок прослушиваний и список ранее
// закешированных треков задают базу новизны; без них новизна максимальна.
// Жанровое распределение заполняется только при доступном каталоге и
// открыто при отказе: ошибка обогащения оставляет распределение пустым,
// не ломая остальные метрики.
func Compute(ctx context.Context, lookup genre.ArtistLookup, tracks []track.Track, snapshot *profile.Snapshot, cachedTrackIDs []string, logger *zap.Logger) Statistics {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := empty()
	if len(tracks) == 0 {
		return result
	}

	result.TotalTracks = len(tracks)

	totalMS := 0
	popularitySum := 0
	popularityCount := 0
	for _, t := range tracks {
		totalMS += t.DurationMS
		// Нулевая популярность означает отсутствие значения в каталоге
		// и не участвует в среднем
		if t.Popularity > 0 {
			popularitySum += t.Popularity
			popularityCount++
		}
	}
	result.TotalDurationMS = totalMS
	result.TotalDuration = FormatDuration(totalMS)

	if popularityCount > 0 {
		avg := round1(float64(popularitySum) / float64(popularityCount))
		result.AvgPopularity = &avg
	}

	result.NoveltyReferenceIDs = noveltyReferenceIDs(snapshot, cachedTrackIDs)
	result.Novelty = computeNovelty(tracks, result.NoveltyReferenceIDs)

	result.GenreDistribution, result.GenreTop, result.GenreRemaining = genreDistribution(ctx, lookup, tracks, logger)
	result.SourceMix, result.SourceTotal = sourceMix(tracks)
	result.TopPopularTracks, result.LeastPopularTracks = popularityHighlights(tracks)

	return result
}

// noveltyReferenceIDs собирает базу новизны: треки снимка прослушиваний,
// его топ и треки предыдущей генерации
func noveltyReferenceIDs(snapshot *profile.Snapshot, cachedTrackIDs []string) []string {
	seen := map[string]struct{}{}
	add := func(id string) {
		if id == "" {
			return
		}
		seen[id] = struct{}{}
	}

	if snapshot != nil {
		for id := range snapshot.Tracks {
			add(id)
		}
		for _, id := range snapshot.TopTrackIDs {
			add(id)
		}
	}
	for _, id := range cachedTrackIDs {
		add(id)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// computeNovelty возвращает долю треков плейлиста вне базы новизны.
// Пустая база означает максимальную новизну.
func computeNovelty(tracks []track.Track, referenceIDs []string) float64 {
	if len(tracks) == 0 || len(referenceIDs) == 0 {
		return 100.0
	}

	reference := make(map[string]struct{}, len(referenceIDs))
	for _, id := range referenceIDs {
		reference[id] = struct{}{}
	}

	known := 0
	for _, t := range tracks {
		if _, ok := reference[t.ID]; ok {
			known++
		}
	}
	return round1(100.0 * float64(len(tracks)-known) / float64(len(tracks)))
}

// genreDistribution подтягивает жанровые теги исполнителей и раскладывает
// их по долям: первые три жанра отдельно, остальные в свернутый остаток
func genreDistribution(ctx context.Context, lookup genre.ArtistLookup, tracks []track.Track, logger *zap.Logger) (map[string]float64, []GenreShare, []GenreShare) {
	distribution := map[string]float64{}
	top := []GenreShare{}
	remaining := []GenreShare{}

	if lookup == nil {
		return distribution, top, remaining
	}

	seen := map[string]struct{}{}
	var artistIDs []string
	for _, t := range tracks {
		for _, id := range t.ArtistIDs {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			artistIDs = append(artistIDs, id)
		}
	}
	if len(artistIDs) == 0 {
		return distribution, top, remaining
	}

	artists, err := lookup.GetArtists(ctx, artistIDs)
	if err != nil {
		logger.Warn("Artist genre lookup failed for statistics", zap.Error(err))
		return distribution, top, remaining
	}

	genresByArtist := make(map[string][]string, len(artists))
	for _, a := range artists {
		genresByArtist[a.ID] = a.Genres
	}

	tally := map[string]int{}
	totalWeight := 0
	for _, t := range tracks {
		for _, artistID := range t.ArtistIDs {
			for _, raw := range genresByArtist[artistID] {
				normalized := genre.Normalize(raw)
				if normalized == "" {
					continue
				}
				tally[normalized]++
				totalWeight++
			}
		}
	}
	if totalWeight == 0 {
		return distribution, top, remaining
	}

	shares := make([]GenreShare, 0, len(tally))
	for g, count := range tally {
		percentage := round1(100.0 * float64(count) / float64(totalWeight))
		distribution[g] = percentage
		shares = append(shares, GenreShare{Genre: g, Percentage: percentage})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Percentage != shares[j].Percentage {
			return shares[i].Percentage > shares[j].Percentage
		}
		return shares[i].Genre < shares[j].Genre
	})

	if len(shares) > topGenreLimit {
		top = shares[:topGenreLimit]
		remaining = shares[topGenreLimit:]
	} else {
		top = shares
	}
	return distribution, top, remaining
}

// sourceMix агрегирует происхождение треков по меткам стадий пайплайна.
// Треки без метки считаются взятыми из готового плейлиста.
func sourceMix(tracks []track.Track) ([]SourceShare, int) {
	counts := map[string]int{}
	for _, t := range tracks {
		key := t.Source
		if key == "" {
			key = "playlist"
		}
		counts[key]++
	}

	total := len(tracks)
	mix := make([]SourceShare, 0, len(counts))
	for key, count := range counts {
		mix = append(mix, SourceShare{
			Key:        key,
			Label:      sourceLabel(key),
			Count:      count,
			Percentage: round1(100.0 * float64(count) / float64(total)),
		})
	}
	sort.Slice(mix, func(i, j int) bool {
		if mix[i].Count != mix[j].Count {
			return mix[i].Count > mix[j].Count
		}
		return mix[i].Key < mix[j].Key
	})
	return mix, total
}

// sourceLabel возвращает подпись источника, для неизвестных меток
// формирует ее из ключа
func sourceLabel(key string) string {
	if label, ok := sourceLabels[key]; ok {
		return label
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// popularityHighlights возвращает самые и наименее популярные треки
func popularityHighlights(tracks []track.Track) ([]TrackHighlight, []TrackHighlight) {
	sorted := make([]track.Track, len(tracks))
	copy(sorted, tracks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Popularity > sorted[j].Popularity
	})

	topCount := highlightLimit
	if topCount > len(sorted) {
		topCount = len(sorted)
	}
	top := make([]TrackHighlight, 0, topCount)
	for _, t := range sorted[:topCount] {
		top = append(top, highlight(t))
	}

	least := make([]TrackHighlight, 0, topCount)
	for i := len(sorted) - 1; i >= 0 && len(least) < highlightLimit; i-- {
		least = append(least, highlight(sorted[i]))
	}
	return top, least
}

func highlight(t track.Track) TrackHighlight {
	return TrackHighlight{
		ID:            t.ID,
		Name:          t.Name,
		Artists:       t.Artists,
		Popularity:    t.Popularity,
		AlbumImageURL: t.AlbumImageURL,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
