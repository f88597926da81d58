// Package suggest собирает короткие подсказки запросов для дашборда
// на основе недавних прослушиваний и истории генераций.
package suggest

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aiplaylist/internal/model"
	"aiplaylist/internal/recommender/profile"
)

// defaultMaxPrompts сколько подсказок показывается по умолчанию
const defaultMaxPrompts = 9

// profileGenreLimit сколько жанров берется из снимка прослушиваний
const profileGenreLimit = 5

// profileArtistLimit сколько исполнителей берется из снимка прослушиваний
const profileArtistLimit = 4

var titleCaser = cases.Title(language.English)

// StatsSource определяет доступ к сводке истории генераций
type StatsSource interface {
	Summarize(userIdentifier string) (*model.GenerationSummary, error)
	GetGenreBreakdown(userIdentifier string) ([]model.GenreWeight, error)
}

// formatGenreLabel превращает сохраненный ключ жанра в подпись для подсказки
func formatGenreLabel(value string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, "-", " "))
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}

// mergeUnique дедуплицирует подписи без учета регистра, сохраняя порядок
func mergeUnique(items []string) []string {
	seen := map[string]struct{}{}
	merged := make([]string, 0, len(items))
	for _, item := range items {
		label := strings.TrimSpace(item)
		if label == "" {
			continue
		}
		lowered := strings.ToLower(label)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		merged = append(merged, label)
	}
	return merged
}

// topGenresFromProfile возвращает самые наполненные жанры снимка
func topGenresFromProfile(snapshot *profile.Snapshot, limit int) []string {
	if snapshot == nil || len(snapshot.GenreBuckets) == 0 {
		return nil
	}

	type ranked struct {
		genre  string
		weight int
	}
	buckets := make([]ranked, 0, len(snapshot.GenreBuckets))
	for g, bucket := range snapshot.GenreBuckets {
		weight := bucket.TrackCount
		if weight == 0 {
			weight = len(bucket.TrackIDs)
		}
		buckets = append(buckets, ranked{genre: g, weight: weight})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].weight != buckets[j].weight {
			return buckets[i].weight > buckets[j].weight
		}
		return buckets[i].genre < buckets[j].genre
	})

	labels := make([]string, 0, limit)
	for _, entry := range buckets {
		if label := formatGenreLabel(entry.genre); label != "" {
			labels = append(labels, label)
		}
		if len(labels) >= limit {
			break
		}
	}
	return labels
}

// topArtistsFromProfile возвращает исполнителей по убыванию прослушиваний
func topArtistsFromProfile(snapshot *profile.Snapshot, limit int) []string {
	if snapshot == nil || len(snapshot.Artists) == 0 {
		return nil
	}

	infos := make([]profile.ArtistInfo, 0, len(snapshot.Artists))
	for _, info := range snapshot.Artists {
		if strings.TrimSpace(info.Name) == "" {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].PlayCount != infos[j].PlayCount {
			return infos[i].PlayCount > infos[j].PlayCount
		}
		return infos[i].Name < infos[j].Name
	})

	names := make([]string, 0, limit)
	seen := map[string]struct{}{}
	for _, info := range infos {
		name := strings.TrimSpace(info.Name)
		lowered := strings.ToLower(name)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		names = append(names, name)
		if len(names) >= limit {
			break
		}
	}
	return names
}

// collector накапливает подсказки с дедупликацией и верхней границей
type collector struct {
	prompts []string
	seen    map[string]struct{}
	limit   int
}

func (c *collector) add(prompt string) {
	if len(c.prompts) >= c.limit {
		return
	}
	normalized := strings.TrimSpace(prompt)
	if normalized == "" {
		return
	}
	key := strings.ToLower(normalized)
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.prompts = append(c.prompts, normalized)
}

// Generate строит подсказки запросов из жанровой сводки, снимка
// прослушиваний и метрик истории. Возвращает пустой список при нехватке
// данных, чтобы интерфейс мог показать нейтральную заглушку.
func Generate(userIdentifier string, stats StatsSource, snapshot *profile.Snapshot, maxPrompts int) []string {
	if strings.TrimSpace(userIdentifier) == "" {
		return nil
	}
	if maxPrompts <= 0 {
		maxPrompts = defaultMaxPrompts
	}

	summary := &model.GenerationSummary{}
	var breakdown []model.GenreWeight
	if stats != nil {
		if s, err := stats.Summarize(userIdentifier); err == nil && s != nil {
			summary = s
		}
		if b, err := stats.GetGenreBreakdown(userIdentifier); err == nil {
			breakdown = b
		}
	}

	var labels []string
	for _, entry := range breakdown {
		if entry.Genre != "" {
			labels = append(labels, formatGenreLabel(entry.Genre))
		}
	}
	labels = append(labels, formatGenreLabel(summary.TopGenre))
	labels = append(labels, topGenresFromProfile(snapshot, profileGenreLimit)...)
	genres := mergeUnique(labels)

	artists := topArtistsFromProfile(snapshot, profileArtistLimit)

	hasHistory := summary.TotalPlaylists > 0 || snapshot != nil
	if len(genres) == 0 && len(artists) == 0 && !hasHistory {
		return nil
	}

	c := &collector{seen: map[string]struct{}{}, limit: maxPrompts}

	for i, g := range genres {
		if i >= 3 {
			break
		}
		c.add("My go-to " + g + " tracks lately")
	}
	if len(genres) >= 2 {
		c.add("Blend " + genres[0] + " and " + genres[1] + " like my recent listening")
	}
	if len(genres) >= 3 {
		c.add("Chill " + genres[2] + " session inspired by my stats")
	}

	for i, artist := range artists {
		if i >= 3 {
			break
		}
		c.add("Something like " + artist + " with fresh finds")
		c.add("Deep cuts inspired by " + artist)
	}

	if len(genres) > 0 && len(artists) > 0 {
		c.add(genres[0] + " vibes featuring " + artists[0] + " influences")
	}

	if snapshot != nil {
		switch snapshot.Source {
		case "recently_played":
			c.add("Replay my recent listens with new discoveries")
		case "top_tracks":
			c.add("High-energy mix from my top tracks")
		}
	}

	if summary.AvgNovelty != nil {
		if *summary.AvgNovelty < 70 {
			c.add("Blend familiar favorites with deeper cuts I've missed")
		} else {
			c.add("Keep the discovery streak from my recent playlists")
		}
	} else if summary.TotalPlaylists > 0 {
		c.add("Remix what I've been generating lately")
	}

	return c.prompts
}
