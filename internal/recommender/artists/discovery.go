package artists

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aiplaylist/internal/gateway/llm"
	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/llmtext"
	"aiplaylist/internal/recommender/profile"
	"aiplaylist/internal/recommender/track"
)

const (
	// minArtistFollowers нижняя граница аудитории для AI-находки
	minArtistFollowers = 1000
	// minArtistPopularity нижняя граница популярности для AI-находки
	minArtistPopularity = 15
	// promptGenreLimit сколько жанров попадает в промпт открытия
	promptGenreLimit = 5
)

var genreTitleCaser = cases.Title(language.English)

// Catalog определяет вызовы каталога для обогащения AI-находок
type Catalog interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]spotify.Artist, error)
	GetArtistTopTracks(ctx context.Context, artistID, market string) ([]track.Track, error)
}

// candidate представляет предложенного моделью исполнителя
type candidate struct {
	Name   string
	Reason string
}

// Discovery подбирает свежих исполнителей через LLM и проверяет находки
// по каталогу. Пустой ответ модели закрывается сидами из истории.
type Discovery struct {
	dispatcher llm.Dispatcher
	catalog    Catalog
	market     string
	logger     *zap.Logger
}

// NewDiscovery создает движок AI-подбора исполнителей
func NewDiscovery(dispatcher llm.Dispatcher, catalog Catalog, market string, logger *zap.Logger) *Discovery {
	if market == "" {
		market = "US"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{
		dispatcher: dispatcher,
		catalog:    catalog,
		market:     market,
		logger:     logger,
	}
}

// Cards возвращает карточки AI-находок, обогащенные метаданными каталога.
// Невалидные находки (маленькая аудитория, нет доступных треков)
// отбрасываются; остаток до лимита добирается сидами из истории.
func (d *Discovery) Cards(ctx context.Context, snapshot *profile.Snapshot, limit int) []Card {
	if limit <= 0 {
		return nil
	}

	seedLimit := limit + 2
	if seedLimit < 10 {
		seedLimit = 10
	}
	seeds := SeedArtists(snapshot, seedLimit)
	candidates := d.candidates(ctx, seeds, topGenres(snapshot, promptGenreLimit), limit)
	lookup := artistLookup(snapshot)

	cards := make([]Card, 0, limit)
	seen := map[string]struct{}{}

	for _, c := range candidates {
		if len(cards) >= limit {
			break
		}
		meta, ok := d.resolveMetadata(ctx, c.Name, lookup)
		if !ok {
			continue
		}
		if _, dup := seen[meta.ID]; dup {
			continue
		}
		if !d.artistIsValid(ctx, meta) {
			continue
		}
		seen[meta.ID] = struct{}{}
		cards = append(cards, newCard(meta, c.Reason, 0, nil, nil))
	}

	cards = d.appendSeedFallbacks(ctx, cards, seeds, seen, limit)
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

// candidates запрашивает у модели список исполнителей; при пустом или
// нечитаемом ответе возвращает сиды как кандидатов
func (d *Discovery) candidates(ctx context.Context, seeds []profile.ArtistInfo, genres []string, limit int) []candidate {
	promptLimit := limit * 2
	if promptLimit < limit+6 {
		promptLimit = limit + 6
	}

	response := ""
	if d.dispatcher != nil {
		completion, err := d.dispatcher.Dispatch(ctx, renderDiscoveryPrompt(seeds, genres, promptLimit), llm.Options{})
		if err != nil {
			d.logger.Warn("Artist discovery LLM request failed", zap.Error(err))
		} else {
			response = completion.Text
		}
	}

	if parsed := parseCandidates(response); len(parsed) > 0 {
		return parsed
	}

	fallbacks := make([]candidate, 0, len(seeds))
	for _, seed := range seeds {
		if seed.Name == "" {
			continue
		}
		fallbacks = append(fallbacks, candidate{Name: seed.Name, Reason: "From your listening history"})
	}
	return fallbacks
}

// renderDiscoveryPrompt строит промпт открытия новых исполнителей
func renderDiscoveryPrompt(seeds []profile.ArtistInfo, genres []string, limit int) string {
	var artistLines []string
	for _, seed := range seeds {
		name := seed.Name
		if name == "" {
			name = "Unknown"
		}
		if len(seed.Genres) > 0 {
			tagged := strings.Join(seed.Genres[:min(len(seed.Genres), 2)], ", ")
			artistLines = append(artistLines, fmt.Sprintf("- %s (%s)", name, tagged))
		} else {
			artistLines = append(artistLines, "- "+name)
		}
	}

	artistSummary := strings.Join(artistLines, "\n")
	if artistSummary == "" {
		artistSummary = "No artists provided"
	}
	genreLine := strings.Join(genres, ", ")
	if genreLine == "" {
		genreLine = "varied styles"
	}

	return fmt.Sprintf(
		"You are an AI music curator helping a Spotify power user discover new artists.\n"+
			"Their current top artists are:\n%s\n\n"+
			"Their favorite genres lean toward %s.\n"+
			"Suggest %d fresh artists that complement their taste but aren't obvious duplicates.\n"+
			"Return strictly JSON: an array where each entry is {\"name\": \"Artist\", \"reason\": \"Short why\"}.\n"+
			"Prioritize globally available artists with enough discography to build playlists.",
		artistSummary, genreLine, limit)
}

// parseCandidates извлекает кандидатов из JSON-ответа модели
func parseCandidates(response string) []candidate {
	result := llmtext.ParseJSONResponse(response)
	if result.Kind != llmtext.ParseOK {
		return nil
	}
	list, ok := result.Value.([]interface{})
	if !ok {
		return nil
	}

	var candidates []candidate
	for _, entry := range list {
		switch v := entry.(type) {
		case map[string]interface{}:
			name, _ := v["name"].(string)
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			reason, _ := v["reason"].(string)
			reason = strings.TrimSpace(reason)
			if reason == "" {
				reason = "AI discovery pick"
			}
			candidates = append(candidates, candidate{Name: name, Reason: reason})
		case string:
			if name := strings.TrimSpace(v); name != "" {
				candidates = append(candidates, candidate{Name: name, Reason: "AI discovery pick"})
			}
		}
	}
	return candidates
}

// topGenres возвращает самые плотные жанры снимка в человекочитаемой форме
func topGenres(snapshot *profile.Snapshot, limit int) []string {
	if snapshot == nil || limit <= 0 {
		return nil
	}
	type weighted struct {
		genre  string
		weight int
	}
	ranked := make([]weighted, 0, len(snapshot.GenreBuckets))
	for g, weight := range genreWeights(snapshot) {
		ranked = append(ranked, weighted{genre: g, weight: weight})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].genre < ranked[j].genre
	})

	genres := make([]string, 0, limit)
	for _, entry := range ranked {
		cleaned := genreTitleCaser.String(strings.ReplaceAll(entry.genre, "-", " "))
		if cleaned == "" {
			continue
		}
		genres = append(genres, cleaned)
		if len(genres) >= limit {
			break
		}
	}
	return genres
}

// artistLookup индексирует исполнителей снимка по нормализованному имени
func artistLookup(snapshot *profile.Snapshot) map[string]profile.ArtistInfo {
	lookup := map[string]profile.ArtistInfo{}
	if snapshot == nil {
		return lookup
	}
	for _, info := range snapshot.Artists {
		if key := profile.NormalizeArtistKey(info.Name); key != "" {
			lookup[key] = info
		}
	}
	return lookup
}

// resolveMetadata ищет метаданные кандидата: сначала в снимке, затем в
// каталоге
func (d *Discovery) resolveMetadata(ctx context.Context, name string, lookup map[string]profile.ArtistInfo) (profile.ArtistInfo, bool) {
	if info, ok := lookup[profile.NormalizeArtistKey(name)]; ok && info.ID != "" {
		return info, true
	}
	if d.catalog == nil || name == "" {
		return profile.ArtistInfo{}, false
	}

	found, err := d.catalog.SearchArtists(ctx, fmt.Sprintf("artist:%q", name), 1)
	if err != nil {
		d.logger.Debug("Artist search failed", zap.String("artist", name), zap.Error(err))
		return profile.ArtistInfo{}, false
	}
	if len(found) == 0 || found[0].ID == "" {
		return profile.ArtistInfo{}, false
	}
	a := found[0]
	return profile.ArtistInfo{
		ID:         a.ID,
		Name:       a.Name,
		Genres:     a.Genres,
		Popularity: a.Popularity,
		Followers:  a.Followers,
		ImageURL:   a.ImageURL,
	}, true
}

// artistIsValid проверяет пороги аудитории и наличие доступных треков.
// Отказ каталога трактуется в пользу кандидата.
func (d *Discovery) artistIsValid(ctx context.Context, info profile.ArtistInfo) bool {
	if info.Followers < minArtistFollowers || info.Popularity < minArtistPopularity {
		return false
	}
	if d.catalog == nil || info.ID == "" {
		return true
	}
	topTracks, err := d.catalog.GetArtistTopTracks(ctx, info.ID, d.market)
	if err != nil {
		return true
	}
	for _, t := range topTracks {
		if t.ID != "" {
			return true
		}
	}
	return false
}

// appendSeedFallbacks добирает карточки сидами из истории, когда находок
// меньше лимита
func (d *Discovery) appendSeedFallbacks(ctx context.Context, cards []Card, seeds []profile.ArtistInfo, seen map[string]struct{}, limit int) []Card {
	for _, seed := range seeds {
		if len(cards) >= limit {
			break
		}
		if seed.ID == "" {
			continue
		}
		if _, dup := seen[seed.ID]; dup {
			continue
		}
		if !d.artistIsValid(ctx, seed) {
			continue
		}
		seen[seed.ID] = struct{}{}
		cards = append(cards, newCard(seed, "From your listening history", 0, nil, nil))
	}
	return cards
}
