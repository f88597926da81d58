// Package genre содержит нормализацию жанров и фильтры треков каталога.
package genre

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/track"
)

// DefaultLatinThreshold минимальная доля латинских букв в названии трека
const DefaultLatinThreshold = 0.4

// Нерегулярные синонимы, которые не выводятся из канонической формы
var irregularAliases = map[string][]string{
	"r-b":           {"r&b", "rb", "rnb"},
	"hip-hop":       {"hiphop", "rap"},
	"lo-fi":         {"lofi"},
	"drum-and-bass": {"dnb", "drum&bass"},
}

// ArtistLookup определяет доступ к жанровым тегам исполнителей каталога
type ArtistLookup interface {
	GetArtists(ctx context.Context, ids []string) ([]spotify.Artist, error)
}

// Normalize приводит жанр к канонической форме: нижний регистр, обрезка
// пробелов, удаление диакритики, пробелы заменяются дефисами
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = stripDiacritics(s)
	return strings.Join(strings.Fields(s), "-")
}

// stripDiacritics раскладывает строку по NFKD и отбрасывает комбинируемые знаки
func stripDiacritics(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Aliases возвращает множество эквивалентных форм канонического жанра.
// Тег исполнителя "R&B" должен совпадать с запрошенным жанром "r-b".
func Aliases(canonical string) map[string]struct{} {
	canonical = Normalize(canonical)
	aliases := map[string]struct{}{}
	if canonical == "" {
		return aliases
	}

	add := func(form string) {
		if form != "" {
			aliases[form] = struct{}{}
		}
	}

	add(canonical)
	add(strings.ReplaceAll(canonical, "-", ""))
	add(strings.ReplaceAll(canonical, "-", " "))

	if trimmed := strings.TrimSuffix(canonical, "-music"); trimmed != canonical {
		add(trimmed)
		add(strings.ReplaceAll(trimmed, "-", ""))
		add(strings.ReplaceAll(trimmed, "-", " "))
	}

	for _, alias := range irregularAliases[canonical] {
		add(alias)
	}

	return aliases
}

// Matches проверяет, совпадает ли жанровый тег исполнителя с одной из форм
// запрошенного жанра (точно или как подстрока)
func Matches(tag string, aliases map[string]struct{}) bool {
	normalized := Normalize(tag)
	if normalized == "" {
		return false
	}
	if _, ok := aliases[normalized]; ok {
		return true
	}
	for alias := range aliases {
		if strings.Contains(normalized, alias) || strings.Contains(alias, normalized) {
			return true
		}
	}
	return false
}

// FilterByMarket оставляет треки без ограничений по рынкам или доступные
// на указанном рынке
func FilterByMarket(tracks []track.Track, market string) []track.Track {
	if market == "" {
		return tracks
	}

	filtered := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if len(t.Markets) == 0 {
			filtered = append(filtered, t)
			continue
		}
		for _, m := range t.Markets {
			if strings.EqualFold(m, market) {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered
}

// IsMostlyLatin проверяет, что доля латинских букв в тексте не ниже порога.
// Текст без букв считается латинским.
func IsMostlyLatin(text string, threshold float64) bool {
	letters := 0
	latin := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Latin, r) {
			latin++
		}
	}
	if letters == 0 {
		return true
	}
	return float64(latin)/float64(letters) >= threshold
}

// FilterNonLatin отбрасывает треки с преимущественно нелатинскими названиями
func FilterNonLatin(tracks []track.Track, threshold float64) []track.Track {
	if threshold <= 0 {
		return tracks
	}
	filtered := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if IsMostlyLatin(t.Name, threshold) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Thresholds задает минимальную популярность трека по жанрам.
// Нишевые жанры получают пониженный порог, иначе фильтр выедает их целиком.
type Thresholds struct {
	Default   int
	Overrides map[string]int
}

// DefaultThresholds возвращает пороги популярности по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{
		Default: 45,
		Overrides: map[string]int{
			"ambient":           25,
			"lo-fi":             25,
			"lofi":              25,
			"jazz":              30,
			"classical":         30,
			"folk":              35,
			"singer-songwriter": 35,
		},
	}
}

// For возвращает порог популярности для канонического жанра
func (t Thresholds) For(canonical string) int {
	if v, ok := t.Overrides[Normalize(canonical)]; ok {
		return v
	}
	return t.Default
}

// FilterTracksByArtistGenre оставляет треки, чьи исполнители несут жанровый
// тег запрошенного жанра и чья популярность не ниже порога. Фильтр открыт
// при отказе: если запрос жанров исполнителей провалился или фильтрация
// опустошила список, возвращается исходный список без изменений.
func FilterTracksByArtistGenre(ctx context.Context, lookup ArtistLookup, tracks []track.Track, canonical string, popularityThreshold int, logger *zap.Logger) []track.Track {
	if len(tracks) == 0 || canonical == "" {
		return tracks
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := map[string]struct{}{}
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		for _, id := range t.ArtistIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return tracks
	}

	artists, err := lookup.GetArtists(ctx, ids)
	if err != nil {
		logger.Warn("Artist genre lookup failed, skipping genre filter", zap.Error(err))
		return tracks
	}

	genresByArtist := make(map[string][]string, len(artists))
	for _, a := range artists {
		genresByArtist[a.ID] = a.Genres
	}

	aliases := Aliases(canonical)

	filtered := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Popularity < popularityThreshold {
			continue
		}
		matched := false
		for _, artistID := range t.ArtistIDs {
			for _, tag := range genresByArtist[artistID] {
				if Matches(tag, aliases) {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if matched {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		logger.Debug("Genre filter removed all tracks, returning unfiltered input",
			zap.String("genre", canonical),
			zap.Int("candidates", len(tracks)))
		return tracks
	}
	return filtered
}
