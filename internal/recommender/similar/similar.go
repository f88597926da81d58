// Package similar реализует подбор и скоринг треков, похожих на сиды.
package similar

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"go.uber.org/zap"

	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/genre"
	"aiplaylist/internal/recommender/llmtext"
	"aiplaylist/internal/recommender/profile"
	"aiplaylist/internal/recommender/trace"
	"aiplaylist/internal/recommender/track"
)

// Веса каналов скоринга. Значения подобраны эмпирически; существенен
// только знак и относительный порядок вкладов, а не точные величины.
const (
	popularityWeight   = 0.45
	seedOverlapBonus   = 0.2
	focusArtistBonus   = 0.3
	keywordHitBonus    = 0.05
	maxKeywordHits     = 2
	yearAlignWeight    = 0.18
	yearAlignWindow    = 18.0
	yearAlignSpan      = 36.0
	energyBias         = 0.05
	cacheTrackBonus    = 0.18
	cacheGenreBonus    = 0.12
	noveltyUnplayed    = 0.05
	noveltyLight       = 0.02
	noveltyModerate    = -0.01
	noveltyHeavy       = -0.03
	perArtistResultCap = 2
)

// PlaylistMiner определяет сбор кандидатов из публичных плейлистов
type PlaylistMiner interface {
	MinePlaylists(ctx context.Context, normalizedGenre string, playlistLimit, trackLimit int) []track.Track
}

// ScoreInput содержит контекст скоринга одного кандидата
type ScoreInput struct {
	SeedArtistIDs  map[string]struct{}
	SeedYearAvg    float64
	Energy         string
	PromptKeywords []string
	Snapshot       *profile.Snapshot
	FocusArtistIDs map[string]struct{}
	TargetGenre    string
}

// Query описывает один запрос подбора похожих треков
type Query struct {
	SeedTrackIDs   []string
	SeedArtistIDs  map[string]struct{}
	SeedYearAvg    float64
	Attributes     llmtext.Attributes
	PromptKeywords []string
	Limit          int
	Snapshot       *profile.Snapshot
	FocusArtistIDs map[string]struct{}
}

// Config задает политику движка похожих треков
type Config struct {
	Market         string
	LatinThreshold float64
	Thresholds     genre.Thresholds
}

// Engine представляет движок подбора похожих треков
type Engine struct {
	catalog spotify.Interface
	miner   PlaylistMiner
	config  Config
	trace   *trace.Trace
	logger  *zap.Logger
}

// NewEngine создает движок подбора похожих треков
func NewEngine(catalog spotify.Interface, miner PlaylistMiner, config Config, tr *trace.Trace, logger *zap.Logger) *Engine {
	if config.Market == "" {
		config.Market = "US"
	}
	if config.Thresholds.Default == 0 {
		config.Thresholds = genre.DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{catalog: catalog, miner: miner, config: config, trace: tr, logger: logger}
}

func (e *Engine) log(message string) {
	if e.trace != nil {
		e.trace.Log(message)
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.trace != nil {
		e.trace.Logf(format, args...)
	}
}

// ScoreTrack оценивает кандидата взвешенной суммой независимых каналов.
// Каждый канал попадает в разбивку отдельно, чтобы оценку можно было
// объяснить пользователю. Отсутствие любого входа (снимок, год, энергия)
// лишь обнуляет вклад канала, оценка всегда определена.
func ScoreTrack(t track.Track, in ScoreInput) (float64, map[string]float64) {
	breakdown := make(map[string]float64, 9)

	popularityScore := float64(t.Popularity) / 100.0 * popularityWeight
	score := popularityScore
	breakdown["popularity"] = round4(popularityScore)

	overlap := false
	for _, artistID := range t.ArtistIDs {
		if _, ok := in.SeedArtistIDs[artistID]; ok {
			overlap = true
			break
		}
	}
	if overlap {
		score += seedOverlapBonus
		breakdown["seed_overlap"] = seedOverlapBonus
	} else {
		breakdown["seed_overlap"] = 0
	}

	focus := false
	for _, artistID := range t.ArtistIDs {
		if _, ok := in.FocusArtistIDs[artistID]; ok {
			focus = true
			break
		}
	}
	if focus {
		score += focusArtistBonus
		breakdown["focus_artist"] = focusArtistBonus
	} else {
		breakdown["focus_artist"] = 0
	}

	keywordBonus := 0.0
	if len(in.PromptKeywords) > 0 {
		nameLower := strings.ToLower(t.Name)
		hits := 0
		for _, kw := range in.PromptKeywords {
			if kw != "" && strings.Contains(nameLower, kw) {
				hits++
			}
		}
		if hits > maxKeywordHits {
			hits = maxKeywordHits
		}
		keywordBonus = float64(hits) * keywordHitBonus
		score += keywordBonus
	}
	breakdown["keyword_match"] = round4(keywordBonus)

	yearBonus := 0.0
	energyBonus := 0.0
	if in.SeedYearAvg > 0 && t.Year > 0 {
		yearDiff := math.Abs(float64(t.Year) - in.SeedYearAvg)
		yearBonus = math.Max(0, (yearAlignWindow-yearDiff)/yearAlignSpan) * yearAlignWeight
		score += yearBonus

		energy := strings.ToLower(in.Energy)
		if energy == "high" && float64(t.Year) >= in.SeedYearAvg {
			energyBonus = energyBias
		} else if energy == "low" && float64(t.Year) <= in.SeedYearAvg {
			energyBonus = energyBias
		}
		score += energyBonus
	}
	breakdown["year_alignment"] = round4(yearBonus)
	breakdown["energy_bias"] = round4(energyBonus)

	cacheBonus := 0.0
	genreAlignBonus := 0.0
	noveltyBonus := 0.0
	if in.Snapshot != nil {
		if in.Snapshot.HasTrack(t.ID) {
			cacheBonus = cacheTrackBonus
			score += cacheBonus
		}

		if in.TargetGenre != "" {
			if bucket, ok := in.Snapshot.GenreBuckets[in.TargetGenre]; ok {
				for _, trackID := range bucket.TrackIDs {
					if trackID == t.ID {
						genreAlignBonus = cacheGenreBonus
						score += genreAlignBonus
						break
					}
				}
			}
		}

		for _, artistID := range t.ArtistIDs {
			playCount, _ := in.Snapshot.ArtistPlayCount(artistID)
			switch {
			case playCount == 0:
				noveltyBonus += noveltyUnplayed
			case playCount <= 2:
				noveltyBonus += noveltyLight
			case playCount >= 6:
				noveltyBonus += noveltyHeavy
			default:
				noveltyBonus += noveltyModerate
			}
		}
		score += noveltyBonus
	}
	breakdown["cache_track_hit"] = round4(cacheBonus)
	breakdown["cache_genre_alignment"] = round4(genreAlignBonus)
	breakdown["novelty"] = round4(noveltyBonus)

	total := math.Max(score, 0)
	breakdown["total"] = round4(total)
	return total, breakdown
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// GetSimilarTracks возвращает ранжированный список треков, похожих на сиды.
// При пустом наборе сидов сразу возвращает пустой список без обращений к
// каталогу, поэтому вызов дешев и безопасен на любом пути пайплайна.
func (e *Engine) GetSimilarTracks(ctx context.Context, q Query) []track.Track {
	if len(q.SeedTrackIDs) == 0 {
		e.log("No seed track IDs available; skipping local recommendations.")
		return nil
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}

	genreLabel := q.Attributes.Genre
	if genreLabel == "" {
		genreLabel = "pop"
	}
	normalizedGenre := genre.Normalize(genreLabel)
	threshold := e.config.Thresholds.For(normalizedGenre)

	var candidates []track.Track
	if e.miner != nil {
		candidates = append(candidates, e.miner.MinePlaylists(ctx, normalizedGenre, 4, 40)...)
	}

	searchQueries := []string{fmt.Sprintf("genre:%q year:2015-2025", normalizedGenre)}
	if q.Attributes.Mood != "" {
		searchQueries = append(searchQueries, fmt.Sprintf("%q %s", q.Attributes.Mood, normalizedGenre))
	}

	searchLimit := q.Limit * 4
	if searchLimit > 50 {
		searchLimit = 50
	}
	for _, searchQuery := range searchQueries {
		offset := 0
		if offsetCap := 100 - searchLimit; offsetCap > 0 {
			offset = rand.IntN(offsetCap + 1)
		}
		e.logf("Spotify API → search tracks: q='%s', limit=%d, market=%s, offset=%d",
			searchQuery, searchLimit, e.config.Market, offset)

		found, err := e.catalog.SearchTracks(ctx, searchQuery, searchLimit, e.config.Market, offset)
		if err != nil {
			e.logf("Spotify search error for '%s': %v.", searchQuery, err)
			continue
		}
		found = genre.FilterByMarket(found, e.config.Market)
		found = genre.FilterTracksByArtistGenre(ctx, e.catalog, found, normalizedGenre, threshold, e.logger)
		found = genre.FilterNonLatin(found, e.config.LatinThreshold)
		candidates = append(candidates, found...)
		e.logf("Search returned %d candidates for query '%s'.", len(found), searchQuery)
	}

	seen := make(map[string]struct{}, len(q.SeedTrackIDs))
	for _, id := range q.SeedTrackIDs {
		seen[id] = struct{}{}
	}
	unique := make([]track.Track, 0, len(candidates))
	for _, t := range candidates {
		if t.ID == "" {
			continue
		}
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		unique = append(unique, t)
	}
	e.logf("Local recommender candidate pool size after filtering: %d.", len(unique))

	input := ScoreInput{
		SeedArtistIDs:  q.SeedArtistIDs,
		SeedYearAvg:    q.SeedYearAvg,
		Energy:         q.Attributes.Energy,
		PromptKeywords: q.PromptKeywords,
		Snapshot:       q.Snapshot,
		FocusArtistIDs: q.FocusArtistIDs,
		TargetGenre:    normalizedGenre,
	}

	type scored struct {
		track     track.Track
		score     float64
		breakdown map[string]float64
	}
	scoredTracks := make([]scored, 0, len(unique))
	for _, t := range unique {
		score, breakdown := ScoreTrack(t, input)
		scoredTracks = append(scoredTracks, scored{track: t, score: score, breakdown: breakdown})
	}
	e.logf("Local recommender scored %d candidates.", len(scoredTracks))

	sort.SliceStable(scoredTracks, func(i, j int) bool {
		if scoredTracks[i].score != scoredTracks[j].score {
			return scoredTracks[i].score > scoredTracks[j].score
		}
		return scoredTracks[i].track.Popularity > scoredTracks[j].track.Popularity
	})

	artistCounts := map[string]int{}
	recommendations := make([]track.Track, 0, q.Limit)
	for _, candidate := range scoredTracks {
		if len(recommendations) >= q.Limit {
			break
		}
		names := candidate.track.ArtistNames
		capped := false
		for _, name := range names {
			if name != "" && artistCounts[name] >= perArtistResultCap {
				capped = true
				break
			}
		}
		if capped {
			continue
		}

		t := candidate.track
		t.Source = "similarity"
		t.Score = round4(candidate.score)
		t.Breakdown = candidate.breakdown
		recommendations = append(recommendations, t)

		for _, name := range names {
			if name != "" {
				artistCounts[name]++
			}
		}
	}

	e.logf("Local recommender selected %d similarity-based tracks.", len(recommendations))
	return recommendations
}
