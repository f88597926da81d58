// Package seed реализует поиск сид-треков: резолв предложений LLM в записи
// каталога и независимое открытие треков жанра через публичные плейлисты.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
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

// resolveSearchLimit сколько кандидатов запрашивается на одно предложение
const resolveSearchLimit = 5

var artistSplitRe = regexp.MustCompile(`\s*(?:,|&|feat\.?|ft\.?|with)\s*`)

// Config задает политику поиска сидов
type Config struct {
	Market         string
	LatinThreshold float64
	Thresholds     genre.Thresholds
	PlaylistLimit  int
	TrackLimit     int
}

// Discovery представляет движок поиска сид-треков
type Discovery struct {
	catalog spotify.Interface
	config  Config
	trace   *trace.Trace
	logger  *zap.Logger
}

// ArtistSeed представляет сиды явно запрошенного исполнителя
type ArtistSeed struct {
	ArtistID   string
	ArtistName string
	Tracks     []track.Track
	Source     string
}

// NewDiscovery создает движок поиска сидов
func NewDiscovery(catalog spotify.Interface, config Config, tr *trace.Trace, logger *zap.Logger) *Discovery {
	if config.Market == "" {
		config.Market = "US"
	}
	if config.PlaylistLimit <= 0 {
		config.PlaylistLimit = 3
	}
	if config.TrackLimit <= 0 {
		config.TrackLimit = 40
	}
	if config.Thresholds.Default == 0 {
		config.Thresholds = genre.DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{catalog: catalog, config: config, trace: tr, logger: logger}
}

func (d *Discovery) log(message string) {
	if d.trace != nil {
		d.trace.Log(message)
	}
}

func (d *Discovery) logf(format string, args ...interface{}) {
	if d.trace != nil {
		d.trace.Logf(format, args...)
	}
}

// primaryArtistHint выделяет основного исполнителя из строки с соавторами
func primaryArtistHint(artist string) string {
	if artist == "" {
		return ""
	}
	parts := artistSplitRe.Split(artist, 2)
	return strings.TrimSpace(parts[0])
}

// ResolveSeedTracks резолвит предложения в конкретные треки каталога.
// Для каждого предложения берется первый подходящий результат поиска;
// нерезолвленные предложения молча пропускаются.
func (d *Discovery) ResolveSeedTracks(ctx context.Context, suggestions []llmtext.Suggestion, limit int, sourceLabel string) []track.Track {
	if limit <= 0 {
		limit = 5
	}
	if sourceLabel == "" {
		sourceLabel = "llm_seed"
	}

	var resolved []track.Track
	for _, suggestion := range suggestions {
		if len(resolved) >= limit {
			break
		}

		title := strings.TrimSpace(suggestion.Title)
		artist := strings.TrimSpace(suggestion.Artist)
		if title == "" {
			continue
		}

		query := fmt.Sprintf("track:%q", title)
		if artist != "" {
			query += fmt.Sprintf(" artist:%q", artist)
		}

		tracks := d.searchScoped(ctx, query)

		if len(tracks) == 0 {
			if primary := primaryArtistHint(artist); primary != "" && primary != artist {
				fallbackQuery := fmt.Sprintf("track:%q artist:%q", title, primary)
				tracks = d.searchScoped(ctx, fallbackQuery)
			}
		}

		if len(tracks) == 0 {
			found, err := d.catalog.SearchTracks(ctx, query, resolveSearchLimit, "", 0)
			if err != nil {
				d.logf("Spotify search retry without market failed for '%s': %v.", query, err)
				continue
			}
			tracks = genre.FilterNonLatin(found, d.config.LatinThreshold)
		}

		if len(tracks) == 0 {
			d.logf("No search results found for '%s' (%s).", title, artist)
			continue
		}

		hit := tracks[0]
		hit.Source = sourceLabel
		resolved = append(resolved, hit)
	}

	d.logf("Resolved %d seed tracks via catalog search.", len(resolved))
	return resolved
}

// searchScoped выполняет поиск треков в рамках рынка с фильтрами
func (d *Discovery) searchScoped(ctx context.Context, query string) []track.Track {
	found, err := d.catalog.SearchTracks(ctx, query, resolveSearchLimit, d.config.Market, 0)
	if err != nil {
		d.logf("Spotify search failed for '%s' with market %s: %v.", query, d.config.Market, err)
		return nil
	}
	found = genre.FilterByMarket(found, d.config.Market)
	return genre.FilterNonLatin(found, d.config.LatinThreshold)
}

// MinePlaylists собирает кандидатов из публичных плейлистов жанра.
// Плейлисты самого Spotify пропускаются: их содержимое через API урезано.
func (d *Discovery) MinePlaylists(ctx context.Context, normalizedGenre string, playlistLimit, trackLimit int) []track.Track {
	if playlistLimit <= 0 {
		playlistLimit = d.config.PlaylistLimit
	}
	if trackLimit <= 0 {
		trackLimit = d.config.TrackLimit
	}

	baseLabel := strings.TrimSpace(strings.ReplaceAll(normalizedGenre, "-", " "))
	if baseLabel == "" {
		baseLabel = "popular"
	}
	queries := []string{
		baseLabel + " hits",
		"top " + baseLabel,
		"best of " + baseLabel,
		baseLabel + " mix",
	}
	query := queries[rand.IntN(len(queries))]

	d.logf("Spotify API → search playlists: q='%s', limit=%d", query, playlistLimit)
	playlists, err := d.catalog.SearchPlaylists(ctx, query, playlistLimit)
	if err != nil {
		d.logf("Spotify playlist search failed: %v.", err)
		return nil
	}

	var collected []track.Track
	seen := map[string]struct{}{}

	for _, pl := range playlists {
		if pl.ID == "" {
			continue
		}
		if strings.EqualFold(pl.OwnerID, "spotify") {
			continue
		}

		d.logf("Spotify API → playlist items: playlist_id=%s, limit=%d, market=%s", pl.ID, trackLimit, d.config.Market)
		items, err := d.catalog.GetPlaylistItems(ctx, pl.ID, trackLimit, d.config.Market)
		if err != nil {
			items, err = d.catalog.GetPlaylistItems(ctx, pl.ID, trackLimit, "")
			if err != nil {
				continue
			}
		}
		for _, t := range items {
			if t.ID == "" {
				continue
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			collected = append(collected, t)
		}
	}

	d.logf("Collected %d tracks from playlists for genre '%s'.", len(collected), normalizedGenre)
	return collected
}

// DiscoverTopTracksForGenre подбирает треки жанра в два этапа: сначала
// публичные плейлисты, затем прямой поиск по жанровому тегу. Плейлисты
// идут первыми, потому что жанровый поиск каталога заметно беднее
// живых подборок.
func (d *Discovery) DiscoverTopTracksForGenre(ctx context.Context, attributes llmtext.Attributes, seedLimit, searchLimit int) []track.Track {
	if seedLimit <= 0 {
		seedLimit = 5
	}
	if searchLimit <= 0 {
		searchLimit = 50
	}

	genreLabel := attributes.Genre
	if genreLabel == "" {
		genreLabel = "pop"
	}
	normalizedGenre := genre.Normalize(genreLabel)
	threshold := d.config.Thresholds.For(normalizedGenre)

	playlistTracks := d.MinePlaylists(ctx, normalizedGenre, 0, 0)
	playlistTracks = genre.FilterTracksByArtistGenre(ctx, d.catalog, playlistTracks, normalizedGenre, threshold, d.logger)
	playlistTracks = genre.FilterNonLatin(playlistTracks, d.config.LatinThreshold)
	sortByPopularity(playlistTracks)

	set := track.NewOrderedSet()
	collect := func(tracks []track.Track) {
		for _, t := range tracks {
			if set.Len() >= seedLimit {
				return
			}
			t.Source = "genre_discovery"
			set.Add(t)
		}
	}
	collect(playlistTracks)

	if set.Len() < seedLimit {
		query := fmt.Sprintf("genre:%q", normalizedGenre)
		offset := 0
		if searchLimit < 100 {
			offset = rand.IntN(100 - searchLimit + 1)
		}

		d.logf("Spotify API → search tracks (genre seed): q='%s', limit=%d, market=%s, offset=%d",
			query, searchLimit, d.config.Market, offset)
		tracks, err := d.catalog.SearchTracks(ctx, query, searchLimit, d.config.Market, offset)
		if err != nil {
			d.logf("Spotify search for genre seeds failed: %v.", err)
			tracks = nil
		} else {
			tracks = genre.FilterByMarket(tracks, d.config.Market)
		}

		if len(tracks) == 0 {
			d.logf("Spotify API → search tracks (no market): q='%s', limit=%d", query, searchLimit)
			tracks, err = d.catalog.SearchTracks(ctx, query, searchLimit, "", 0)
			if err != nil {
				d.logf("Spotify search without market failed: %v.", err)
				tracks = nil
			}
		}

		if len(tracks) > 0 {
			tracks = genre.FilterTracksByArtistGenre(ctx, d.catalog, tracks, normalizedGenre, threshold, d.logger)
			tracks = genre.FilterNonLatin(tracks, d.config.LatinThreshold)
			sortByPopularity(tracks)
			collect(tracks)
		}
	}

	selected := set.Items()
	d.logf("Discovered %d top tracks for genre '%s'.", len(selected), normalizedGenre)
	return selected
}

// EnsureArtistSeed гарантирует, что явно запрошенный исполнитель даст сиды.
// Сначала пробуются треки из снимка прослушиваний, затем топ-треки каталога.
func (d *Discovery) EnsureArtistSeed(ctx context.Context, artistHint string, snapshot *profile.Snapshot, seedLimit int) *ArtistSeed {
	if artistHint == "" {
		return nil
	}
	if seedLimit <= 0 {
		seedLimit = 5
	}

	resolvedID := snapshot.ArtistIDForHint(artistHint)
	resolvedName := ""
	if resolvedID != "" && snapshot != nil {
		if info, ok := snapshot.Artists[resolvedID]; ok {
			resolvedName = info.Name
		}
	}

	if resolvedID == "" {
		query := fmt.Sprintf("artist:%q", artistHint)
		candidates, err := d.catalog.SearchArtists(ctx, query, 3)
		if err != nil {
			d.logf("Spotify artist search failed for '%s': %v.", artistHint, err)
			candidates = nil
		}

		hintKey := profile.NormalizeArtistKey(artistHint)
		for _, candidate := range candidates {
			if candidate.ID == "" {
				continue
			}
			candidateKey := profile.NormalizeArtistKey(candidate.Name)
			if candidateKey == hintKey || strings.Contains(candidateKey, hintKey) {
				resolvedID = candidate.ID
				resolvedName = candidate.Name
				break
			}
		}
		if resolvedID == "" && len(candidates) > 0 {
			resolvedID = candidates[0].ID
			resolvedName = candidates[0].Name
		}
	}

	if resolvedID == "" {
		d.logf("Unable to resolve artist for hint '%s'.", artistHint)
		return nil
	}
	if resolvedName == "" {
		resolvedName = artistHint
	}

	if cached := snapshot.TracksForArtist(resolvedID, seedLimit); len(cached) > 0 {
		d.logf("Using %d cached tracks for artist '%s'.", len(cached), resolvedName)
		for i := range cached {
			cached[i].Source = "profile_cache"
		}
		return &ArtistSeed{
			ArtistID:   resolvedID,
			ArtistName: resolvedName,
			Tracks:     cached,
			Source:     "profile_cache",
		}
	}

	topTracks, err := d.catalog.GetArtistTopTracks(ctx, resolvedID, d.config.Market)
	if err != nil {
		d.logf("Spotify top tracks failed for artist '%s': %v.", resolvedID, err)
		return nil
	}
	if len(topTracks) == 0 {
		d.logf("No top tracks returned for artist '%s'.", resolvedID)
		return nil
	}

	set := track.NewOrderedSet()
	for _, t := range topTracks {
		if set.Len() >= seedLimit {
			break
		}
		if t.ID == "" {
			continue
		}
		t.Source = "artist_top_tracks"
		set.Add(t)
	}
	tracks := set.Items()
	if len(tracks) == 0 {
		return nil
	}

	d.logf("Collected %d top tracks for artist '%s'.", len(tracks), resolvedName)
	return &ArtistSeed{
		ArtistID:   resolvedID,
		ArtistName: resolvedName,
		Tracks:     tracks,
		Source:     "artist_top_tracks",
	}
}

// sortByPopularity сортирует треки по убыванию популярности на месте
func sortByPopularity(tracks []track.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Popularity > tracks[j].Popularity
	})
}
