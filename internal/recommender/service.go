package recommender

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aiplaylist/internal/gateway/llm"
	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/infrastructure/cache"
	"aiplaylist/internal/infrastructure/metrics"
	"aiplaylist/internal/model"
	"aiplaylist/internal/recommender/artists"
	"aiplaylist/internal/recommender/genre"
	"aiplaylist/internal/recommender/llmtext"
	"aiplaylist/internal/recommender/profile"
	"aiplaylist/internal/recommender/seed"
	"aiplaylist/internal/recommender/similar"
	"aiplaylist/internal/recommender/stats"
	"aiplaylist/internal/recommender/suggest"
	"aiplaylist/internal/recommender/trace"
	"aiplaylist/internal/recommender/track"
)

// playlistNameMaxLength предел длины имени плейлиста в Spotify
const playlistNameMaxLength = 100

// Ошибки уровня запроса, транслируемые обработчиками в HTTP-статусы
var (
	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrNotAuthenticated    = errors.New("spotify authentication required")
	ErrSessionExpired      = errors.New("playlist session expired")
	ErrNotOwned            = errors.New("playlist session does not belong to the requester")
	ErrNoTracks            = errors.New("no tracks available")
	ErrTrackNotFound       = errors.New("track could not be located")
	ErrEmptyPlaylistName   = errors.New("playlist name is required")
	ErrPlaylistNameTooLong = fmt.Errorf("playlist names must be %d characters or fewer", playlistNameMaxLength)
	ErrNoListeningHistory  = errors.New("no listening history available")
)

var (
	keywordRe  = regexp.MustCompile(`[a-z0-9]+`)
	nameJunkRe = regexp.MustCompile(`[\r\n\t]+`)
	titleCaser = cases.Title(language.English)
)

// Config задает политику пайплайна генерации
type Config struct {
	SeedLimit          int
	SimilarLimit       int
	CacheTTL           time.Duration
	ProfileTTL         time.Duration
	ProfileTopLimit    int
	ProfileRecentLimit int
	Market             string
	LatinThreshold     float64
	Thresholds         genre.Thresholds
	PlaylistPrefix     string
	PlaylistPublic     bool
	DebugEnabled       bool
	Defaults           llmtext.Attributes
}

// Service представляет сервис генерации плейлистов
type Service struct {
	cache      cache.Cache
	dispatcher llm.Dispatcher
	config     Config
	logger     *zap.Logger

	statsRepo model.GenerationStatRepository
	savedRepo model.SavedPlaylistRepository
	metrics   metrics.Interface

	newCatalog func(accessToken string) (spotify.Interface, error)
}

// NewService создает сервис генерации плейлистов
func NewService(store cache.Cache, dispatcher llm.Dispatcher, config Config, logger *zap.Logger) *Service {
	if config.SeedLimit <= 0 {
		config.SeedLimit = 5
	}
	if config.SimilarLimit <= 0 {
		config.SimilarLimit = 10
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 15 * time.Minute
	}
	if config.ProfileTTL <= 0 {
		config.ProfileTTL = 6 * time.Hour
	}
	if config.ProfileTopLimit <= 0 {
		config.ProfileTopLimit = 50
	}
	if config.ProfileRecentLimit <= 0 {
		config.ProfileRecentLimit = 50
	}
	if config.Market == "" {
		config.Market = "US"
	}
	if config.Thresholds.Default == 0 {
		config.Thresholds = genre.DefaultThresholds()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		cache:      store,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
	}
	s.newCatalog = func(accessToken string) (spotify.Interface, error) {
		return spotify.NewClient(accessToken, logger)
	}
	return s
}

// SetRepositories подключает хранилище статистики и сохраненных плейлистов
func (s *Service) SetRepositories(statsRepo model.GenerationStatRepository, savedRepo model.SavedPlaylistRepository) {
	s.statsRepo = statsRepo
	s.savedRepo = savedRepo
}

// SetMetrics подключает систему метрик
func (s *Service) SetMetrics(m metrics.Interface) {
	s.metrics = m
}

// SetCatalogFactory заменяет фабрику каталожных клиентов
func (s *Service) SetCatalogFactory(factory func(accessToken string) (spotify.Interface, error)) {
	s.newCatalog = factory
}

// resolveUserID возвращает стабильный идентификатор пользователя
func resolveUserID(id Identity) string {
	if strings.TrimSpace(id.UserID) != "" {
		return id.UserID
	}
	return "anonymous"
}

// profileSnapshot достает снимок прослушиваний пользователя из кэша
func (s *Service) profileSnapshot(userID string) *profile.Snapshot {
	cached, ok := s.cache.Get(ProfileCacheKey(userID))
	if !ok {
		return nil
	}
	snapshot, valid := cached.(*profile.Snapshot)
	if !valid {
		return nil
	}
	return snapshot
}

// ownedPayload возвращает кэшированный результат, принадлежащий запросившему
func (s *Service) ownedPayload(id Identity, cacheKey string) (*Payload, error) {
	if strings.TrimSpace(cacheKey) == "" {
		return nil, ErrSessionExpired
	}
	cached, ok := s.cache.Get(cacheKey)
	if !ok {
		return nil, ErrSessionExpired
	}
	payload, valid := cached.(*Payload)
	if !valid {
		return nil, ErrSessionExpired
	}
	if !payload.OwnedBy(resolveUserID(id), id.SessionKey) {
		return nil, ErrNotOwned
	}
	return payload, nil
}

// promptArtistCandidates собирает уникальные имена исполнителей из атрибутов
func promptArtistCandidates(attributes llmtext.Attributes) []string {
	var candidates []string
	seen := map[string]struct{}{}
	add := func(name string) {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return
		}
		lowered := strings.ToLower(trimmed)
		if _, ok := seen[lowered]; ok {
			return
		}
		seen[lowered] = struct{}{}
		candidates = append(candidates, trimmed)
	}
	add(attributes.Artist)
	for _, name := range attributes.Artists {
		add(name)
	}
	return candidates
}

// extractKeywords вытаскивает значимые слова запроса для скоринга
func extractKeywords(prompt string) []string {
	matches := keywordRe.FindAllString(strings.ToLower(prompt), -1)
	seen := map[string]struct{}{}
	var keywords []string
	for _, kw := range matches {
		if len(kw) <= 2 {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

// seedAggregates считает производные сидов для похожих треков
func seedAggregates(seeds []track.Track) (map[string]struct{}, float64) {
	artistIDs := map[string]struct{}{}
	yearSum := 0
	yearCount := 0
	for _, t := range seeds {
		for _, id := range t.ArtistIDs {
			if id != "" {
				artistIDs[id] = struct{}{}
			}
		}
		if t.Year > 0 {
			yearSum += t.Year
			yearCount++
		}
	}
	avg := 0.0
	if yearCount > 0 {
		avg = float64(yearSum) / float64(yearCount)
	}
	return artistIDs, avg
}

// suggestedPlaylistName строит имя плейлиста из текста запроса
func suggestedPlaylistName(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "AI Playlist"
	}
	name := titleCaser.String(trimmed)
	runes := []rune(name)
	if len(runes) > playlistNameMaxLength {
		return string(runes[:playlistNameMaxLength])
	}
	return name
}

// formatCacheTimeout возвращает человекочитаемую подпись срока кэша
func formatCacheTimeout(ttl time.Duration) string {
	seconds := int(ttl.Seconds())
	if seconds%60 == 0 {
		minutes := seconds / 60
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

// Generate выполняет полный пайплайн генерации для текстового запроса.
// Повторный запрос с тем же текстом от того же владельца возвращает
// кэшированный результат без обращений к LLM и каталогу; чужой
// кэшированный результат игнорируется и пайплайн выполняется заново.
func (s *Service) Generate(ctx context.Context, id Identity, prompt string) (*Payload, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if id.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	userID := resolveUserID(id)

	key := CacheKey(userID, prompt)
	if cached, ok := s.cache.Get(key); ok {
		if payload, valid := cached.(*Payload); valid {
			if payload.OwnedBy(userID, id.SessionKey) {
				hit := *payload
				hit.CacheHit = true
				return &hit, nil
			}
			s.logger.Warn("Cache ownership mismatch", zap.String("cache_key", key))
		}
	}

	tr := trace.New("generate_playlist", s.logger)
	tr.Logf("Prompt received (%d chars).", len(prompt))

	catalog, err := s.newCatalog(id.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	snapshot := s.profileSnapshot(userID)
	session := llmtext.NewSession(s.dispatcher, s.config.Defaults, tr, s.logger)

	attributes := session.ExtractAttributes(ctx, prompt)
	tr.Logf("Attributes after normalization: mood=%s genre=%s energy=%s.",
		attributes.Mood, attributes.Genre, attributes.Energy)

	genreLabel := attributes.Genre
	if genreLabel == "" {
		genreLabel = "pop"
	}
	normalizedGenre := genre.Normalize(genreLabel)

	candidates := promptArtistCandidates(attributes)
	discovery := seed.NewDiscovery(catalog, seed.Config{
		Market:         s.config.Market,
		LatinThreshold: s.config.LatinThreshold,
		Thresholds:     s.config.Thresholds,
	}, tr, s.logger)

	seeds := track.NewOrderedSet()
	seedSources := map[string]int{}
	appendSeed := func(t track.Track, label string) {
		if t.Source == "" {
			t.Source = label
		}
		if seeds.Add(t) {
			seedSources[t.Source]++
		}
	}

	var promptArtistIDs []string
	if len(candidates) > 0 {
		if artistSeed := discovery.EnsureArtistSeed(ctx, candidates[0], snapshot, s.config.SeedLimit); artistSeed != nil {
			if artistSeed.ArtistID != "" {
				promptArtistIDs = append(promptArtistIDs, artistSeed.ArtistID)
			}
			for _, t := range artistSeed.Tracks {
				appendSeed(t, artistSeed.Source)
			}
			tr.Logf("Artist seed ensured %d tracks for '%s'.", len(artistSeed.Tracks), artistSeed.ArtistName)
		}
	}

	if snapshot != nil && normalizedGenre != "" {
		cachedGenreTracks := snapshot.TracksForGenre(normalizedGenre, 5)
		for _, t := range cachedGenreTracks {
			appendSeed(t, "user_genre_cache")
		}
		if len(cachedGenreTracks) > 0 {
			tr.Logf("User cache contributed %d seed tracks for genre '%s'.", len(cachedGenreTracks), normalizedGenre)
		}
	}

	suggestions := session.SuggestSeedTracks(ctx, prompt, attributes, s.config.SeedLimit)
	llmSeeds := discovery.ResolveSeedTracks(ctx, suggestions, s.config.SeedLimit, "llm_seed")
	for _, t := range llmSeeds {
		appendSeed(t, "llm_seed")
	}
	if len(llmSeeds) > 0 {
		tr.Logf("LLM resolved %d seed tracks via Spotify search.", len(llmSeeds))
	}

	if seeds.Len() == 0 {
		tr.Log("Seed count below threshold; discovering top tracks from Spotify.")
		fallback := discovery.DiscoverTopTracksForGenre(ctx, attributes, s.config.SeedLimit, 0)
		for _, t := range fallback {
			appendSeed(t, "genre_discovery")
		}
		if len(llmSeeds) == 0 && len(fallback) > 0 {
			suggestions = suggestions[:0]
			for _, t := range fallback {
				suggestions = append(suggestions, llmtext.Suggestion{Title: t.Name, Artist: t.Artists})
			}
		}
	} else if seeds.Len() < s.config.SeedLimit {
		tr.Log("Seed count below threshold but primary sources provided seeds; skipping genre discovery.")
	}

	seedTracks := seeds.Items()
	seedDisplay := track.Displays(seedTracks)
	tr.Logf("Resolved seed tracks (%d).", len(seedDisplay))

	seedTrackIDs := track.IDs(seedTracks)
	seedArtistIDs, seedYearAvg := seedAggregates(seedTracks)
	promptKeywords := extractKeywords(prompt)

	final := track.NewOrderedSet()
	for _, t := range seedTracks {
		final.Add(t)
	}

	var similarTracks []track.Track
	if len(seedTrackIDs) == 0 {
		tr.Log("No seed track IDs resolved; skipping local recommendation.")
	} else {
		focus := map[string]struct{}{}
		for _, artistID := range promptArtistIDs {
			focus[artistID] = struct{}{}
		}
		engine := similar.NewEngine(catalog, discovery, similar.Config{
			Market:         s.config.Market,
			LatinThreshold: s.config.LatinThreshold,
			Thresholds:     s.config.Thresholds,
		}, tr, s.logger)
		similarTracks = engine.GetSimilarTracks(ctx, similar.Query{
			SeedTrackIDs:   seedTrackIDs,
			SeedArtistIDs:  seedArtistIDs,
			SeedYearAvg:    seedYearAvg,
			Attributes:     attributes,
			PromptKeywords: promptKeywords,
			Limit:          s.config.SimilarLimit,
			Snapshot:       snapshot,
			FocusArtistIDs: focus,
		})
		tr.Logf("Similarity engine produced %d tracks.", len(similarTracks))
		for _, t := range similarTracks {
			final.Add(t)
		}
	}

	ordered := final.Items()
	tr.Logf("Final playlist (%d tracks) compiled from seeds and similar tracks.", len(ordered))

	playlistStats := stats.Compute(ctx, catalog, ordered, snapshot, nil, s.logger)
	usage := session.Usage()
	s.persistStat(userID, prompt, ordered, playlistStats, usage)
	if s.metrics != nil {
		s.metrics.RecordGeneration(len(ordered), usage.TotalTokens)
	}

	payload := &Payload{
		Playlist:               track.Displays(ordered),
		Prompt:                 prompt,
		Attributes:             attributes,
		LLMSuggestions:         suggestions,
		SeedTracks:             seedTracks,
		SeedSources:            seedSources,
		SeedDisplay:            seedDisplay,
		SimilarTracks:          similarTracks,
		SimilarDisplay:         track.Displays(similarTracks),
		Tracks:                 ordered,
		TrackIDs:               track.IDs(ordered),
		PromptArtistIDs:        promptArtistIDs,
		PromptArtistCandidates: candidates,
		SuggestedName:          suggestedPlaylistName(prompt),
		Stats:                  playlistStats,
		Errors:                 tr.Errors(),
		CacheKey:               key,
		OwnerUserID:            userID,
		OwnerSessionKey:        id.SessionKey,
	}
	tr.Logf("Playlist cached for %s.", formatCacheTimeout(s.config.CacheTTL))
	if s.config.DebugEnabled {
		payload.DebugSteps = tr.Steps()
	}
	s.cache.SetWithTTL(key, payload, s.config.CacheTTL)

	return payload, nil
}

// Remix пересобирает кэшированный плейлист, используя текущие треки как
// сиды. Длина результата совпадает с исходной: недобор закрывается
// похожими треками, затем исходными треками плейлиста.
func (s *Service) Remix(ctx context.Context, id Identity, cacheKey string) (*Payload, error) {
	payload, err := s.ownedPayload(id, cacheKey)
	if err != nil {
		return nil, err
	}
	if len(payload.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	if id.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	userID := resolveUserID(id)

	tr := trace.New("remix_playlist", s.logger)

	catalog, err := s.newCatalog(id.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	snapshot := s.profileSnapshot(userID)
	session := llmtext.NewSession(s.dispatcher, s.config.Defaults, tr, s.logger)

	prompt := strings.TrimSpace(payload.Prompt)
	attributes := payload.Attributes
	if attributes.Mood == "" && attributes.Genre == "" && attributes.Energy == "" {
		tr.Log("Cached attributes missing; extracting again from prompt.")
		attributes = session.ExtractAttributes(ctx, prompt)
	}

	targetCount := len(payload.Tracks)
	seedSnapshot := track.Displays(payload.Tracks)
	tr.Logf("Remix target track count: %d.", targetCount)

	remixSuggestions := session.SuggestRemixTracks(ctx, seedSnapshot, attributes, prompt, targetCount)

	discovery := seed.NewDiscovery(catalog, seed.Config{
		Market:         s.config.Market,
		LatinThreshold: s.config.LatinThreshold,
		Thresholds:     s.config.Thresholds,
	}, tr, s.logger)
	resolved := discovery.ResolveSeedTracks(ctx, remixSuggestions, targetCount, "remix_seed")
	tr.Logf("Resolved %d remix tracks via Spotify search.", len(resolved))

	set := track.NewOrderedSet()
	for _, t := range resolved {
		set.Add(t)
	}

	var similarUsed []track.Track
	seedTrackIDs := track.IDs(resolved)
	if set.Len() < targetCount && len(seedTrackIDs) > 0 {
		tr.Log("Resolved remix seeds below target; fetching Spotify similarity tracks.")
		seedArtistIDs, seedYearAvg := seedAggregates(resolved)
		limit := targetCount - set.Len()
		if limit < 5 {
			limit = 5
		}
		engine := similar.NewEngine(catalog, discovery, similar.Config{
			Market:         s.config.Market,
			LatinThreshold: s.config.LatinThreshold,
			Thresholds:     s.config.Thresholds,
		}, tr, s.logger)
		candidates := engine.GetSimilarTracks(ctx, similar.Query{
			SeedTrackIDs:   seedTrackIDs,
			SeedArtistIDs:  seedArtistIDs,
			SeedYearAvg:    seedYearAvg,
			Attributes:     attributes,
			PromptKeywords: extractKeywords(prompt),
			Limit:          limit,
			Snapshot:       snapshot,
		})
		for _, candidate := range candidates {
			if set.Len() >= targetCount {
				break
			}
			if set.Add(candidate) {
				similarUsed = append(similarUsed, candidate)
			}
		}
	}

	if set.Len() < targetCount {
		tr.Log("Falling back to original playlist tracks to maintain length.")
		for _, entry := range payload.Tracks {
			if set.Len() >= targetCount {
				break
			}
			if entry.Source == "" {
				entry.Source = "playlist"
			}
			set.AddForced(entry)
		}
	}

	ordered := set.Items()
	playlistStats := stats.Compute(ctx, catalog, ordered, snapshot, payload.Stats.NoveltyReferenceIDs, s.logger)

	updated := *payload
	updated.Playlist = track.Displays(ordered)
	updated.Tracks = ordered
	updated.TrackIDs = track.IDs(ordered)
	updated.SeedTracks = resolved
	updated.LLMSuggestions = remixSuggestions
	updated.SeedDisplay = seedSnapshot
	updated.SimilarTracks = similarUsed
	updated.SimilarDisplay = track.Displays(similarUsed)
	updated.Attributes = attributes
	updated.Stats = playlistStats
	updated.Errors = tr.Errors()
	updated.CacheKey = cacheKey
	updated.OwnerUserID = userID
	updated.OwnerSessionKey = id.SessionKey
	tr.Logf("Remixed playlist cached for %s.", formatCacheTimeout(s.config.CacheTTL))
	if s.config.DebugEnabled {
		updated.DebugSteps = tr.Steps()
	} else {
		updated.DebugSteps = nil
	}

	s.cache.SetWithTTL(cacheKey, &updated, s.config.CacheTTL)
	return &updated, nil
}

// RemoveTrack удаляет трек из кэшированного плейлиста по идентификатору
// или позиции и пересчитывает статистику
func (s *Service) RemoveTrack(ctx context.Context, id Identity, cacheKey, trackID string, position *int) (*Payload, error) {
	payload, err := s.ownedPayload(id, cacheKey)
	if err != nil {
		return nil, err
	}

	removed := false
	updatedTracks := make([]track.Track, 0, len(payload.Tracks))
	trackID = strings.TrimSpace(trackID)
	if trackID != "" {
		for _, entry := range payload.Tracks {
			if !removed && entry.ID == trackID {
				removed = true
				continue
			}
			updatedTracks = append(updatedTracks, entry)
		}
	} else {
		updatedTracks = append(updatedTracks, payload.Tracks...)
	}

	if !removed && position != nil {
		index := *position
		if index >= 0 && index < len(payload.Tracks) {
			removed = true
			updatedTracks = updatedTracks[:0]
			updatedTracks = append(updatedTracks, payload.Tracks[:index]...)
			updatedTracks = append(updatedTracks, payload.Tracks[index+1:]...)
		}
	}

	if !removed {
		return nil, ErrTrackNotFound
	}

	var lookup genre.ArtistLookup
	if id.AccessToken != "" {
		if catalog, catalogErr := s.newCatalog(id.AccessToken); catalogErr == nil {
			lookup = catalog
		}
	}

	userID := resolveUserID(id)
	snapshot := s.profileSnapshot(userID)

	updated := *payload
	updated.Tracks = updatedTracks
	updated.TrackIDs = track.IDs(updatedTracks)
	updated.Playlist = track.Displays(updatedTracks)
	updated.Stats = stats.Compute(ctx, lookup, updatedTracks, snapshot, payload.Stats.NoveltyReferenceIDs, s.logger)
	updated.OwnerUserID = userID
	updated.OwnerSessionKey = id.SessionKey

	s.cache.SetWithTTL(cacheKey, &updated, s.config.CacheTTL)
	return &updated, nil
}

// SaveResult описывает плейлист, созданный в Spotify
type SaveResult struct {
	PlaylistID      string `json:"playlist_id"`
	PlaylistName    string `json:"playlist_name"`
	UserID          string `json:"user_id"`
	UserDisplayName string `json:"user_display_name"`
}

// SavePlaylist экспортирует кэшированный плейлист в Spotify и сохраняет
// запись об экспорте
func (s *Service) SavePlaylist(ctx context.Context, id Identity, cacheKey, playlistName string) (*SaveResult, error) {
	name := strings.TrimSpace(nameJunkRe.ReplaceAllString(playlistName, " "))
	if name == "" {
		return nil, ErrEmptyPlaylistName
	}
	if len([]rune(name)) > playlistNameMaxLength {
		return nil, ErrPlaylistNameTooLong
	}

	payload, err := s.ownedPayload(id, cacheKey)
	if err != nil {
		return nil, err
	}
	if len(payload.TrackIDs) == 0 {
		return nil, ErrNoTracks
	}
	if id.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	catalog, err := s.newCatalog(id.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	user, err := catalog.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	fullName := s.config.PlaylistPrefix + name
	description := "Generated from prompt: " + payload.Prompt
	created, err := catalog.CreatePlaylistWithTracks(ctx, user.ID, fullName, description, payload.TrackIDs, s.config.PlaylistPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	if s.savedRepo != nil {
		record := &model.SavedPlaylist{
			UserIdentifier:    resolveUserID(id),
			SpotifyPlaylistID: created.ID,
			Name:              created.Name,
			Prompt:            payload.Prompt,
			TrackCount:        len(payload.TrackIDs),
			TrackIDs:          payload.TrackIDs,
		}
		if saveErr := s.savedRepo.Create(record); saveErr != nil {
			s.logger.Warn("Failed to persist saved playlist", zap.Error(saveErr))
		}
	}

	return &SaveResult{
		PlaylistID:      created.ID,
		PlaylistName:    created.Name,
		UserID:          user.ID,
		UserDisplayName: user.DisplayName,
	}, nil
}

// RefreshProfile пересобирает снимок прослушиваний пользователя и кладет
// его в кэш для последующих генераций
func (s *Service) RefreshProfile(ctx context.Context, id Identity) (*profile.Snapshot, error) {
	if id.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	userID := resolveUserID(id)

	catalog, err := s.newCatalog(id.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SetProfileRefreshStatus(true)
	}
	snapshot := profile.BuildSnapshot(ctx, catalog, s.config.ProfileTopLimit, s.config.ProfileRecentLimit, s.logger)
	if s.metrics != nil {
		s.metrics.SetProfileRefreshStatus(false)
	}
	if snapshot == nil {
		return nil, ErrNoListeningHistory
	}

	s.cache.SetWithTTL(ProfileCacheKey(userID), snapshot, s.config.ProfileTTL)
	return snapshot, nil
}

// RecommendedArtists возвращает карточки рекомендуемых исполнителей.
// Первый запрос пользователя строит карточки через AI-подбор с каталожной
// проверкой; когда подбор пуст, в ход идет профильный скоринг снимка.
// Результат кэшируется, повторные запросы отдают его без обращений к LLM.
func (s *Service) RecommendedArtists(ctx context.Context, id Identity, limit int) ([]artists.Card, error) {
	if id.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = artists.DefaultRecommendLimit
	}
	userID := resolveUserID(id)

	key := ArtistSuggestionsCacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		if cards, valid := cached.([]artists.Card); valid {
			return cards, nil
		}
	}

	catalog, err := s.newCatalog(id.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	snapshot := s.profileSnapshot(userID)
	discovery := artists.NewDiscovery(s.dispatcher, catalog, s.config.Market, s.logger)
	cards := discovery.Cards(ctx, snapshot, limit)
	if len(cards) == 0 {
		cards = artists.Recommend(snapshot, limit)
	}
	if cards == nil {
		cards = []artists.Card{}
	}

	s.cache.SetWithTTL(key, cards, s.config.CacheTTL)
	s.logger.Info("Recommended artists assembled",
		zap.String("user", userID),
		zap.Int("cards", len(cards)))
	return cards, nil
}

// ListeningSuggestions возвращает подсказки запросов для дашборда
func (s *Service) ListeningSuggestions(userIdentifier string, maxPrompts int) []string {
	var source suggest.StatsSource
	if s.statsRepo != nil {
		source = s.statsRepo
	}
	return suggest.Generate(userIdentifier, source, s.profileSnapshot(userIdentifier), maxPrompts)
}

// GenerationSummary возвращает сводку истории генераций пользователя
func (s *Service) GenerationSummary(userIdentifier string) (*model.GenerationSummary, error) {
	if s.statsRepo == nil {
		return &model.GenerationSummary{}, nil
	}
	return s.statsRepo.Summarize(userIdentifier)
}

// persistStat сохраняет запись о генерации, не прерывая пайплайн при сбое
func (s *Service) persistStat(userID, prompt string, ordered []track.Track, playlistStats stats.Statistics, usage llm.Usage) {
	if s.statsRepo == nil || userID == "" {
		return
	}

	totalDuration := int64(playlistStats.TotalDurationMS)
	if totalDuration == 0 {
		for _, t := range ordered {
			totalDuration += int64(t.DurationMS)
		}
	}

	topGenre := ""
	if len(playlistStats.GenreTop) > 0 {
		topGenre = playlistStats.GenreTop[0].Genre
	}
	if len(topGenre) > 128 {
		topGenre = topGenre[:128]
	}

	genreTop := make([]model.GenreWeight, 0, len(playlistStats.GenreTop))
	for _, share := range playlistStats.GenreTop {
		genreTop = append(genreTop, model.GenreWeight{Genre: share.Genre, Percentage: share.Percentage})
	}

	novelty := playlistStats.Novelty
	stat := &model.GenerationStat{
		UserIdentifier:  userID,
		Prompt:          prompt,
		TrackCount:      len(ordered),
		TotalDurationMS: totalDuration,
		TopGenre:        topGenre,
		AvgNovelty:      &novelty,
		Tokens:          usage.TotalTokens,
		GenreTop:        genreTop,
	}
	if err := s.statsRepo.Create(stat); err != nil {
		s.logger.Warn("Failed to record playlist generation stat", zap.Error(err))
	}
}
