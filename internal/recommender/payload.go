// Package recommender собирает пайплайн генерации плейлистов: извлечение
// атрибутов, поиск сидов, подбор похожих треков, статистику и кэширование.
package recommender

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"aiplaylist/internal/recommender/llmtext"
	"aiplaylist/internal/recommender/stats"
	"aiplaylist/internal/recommender/track"
)

// Identity идентифицирует инициатора запроса
type Identity struct {
	UserID      string
	SessionKey  string
	AccessToken string
}

// Payload представляет кэшированный результат генерации.
// Владелец фиксируется в самом значении, поэтому проверка доступа не
// зависит от того, как значение попало в кэш.
type Payload struct {
	Playlist               []string             `json:"playlist"`
	Prompt                 string               `json:"prompt"`
	Attributes             llmtext.Attributes   `json:"attributes"`
	LLMSuggestions         []llmtext.Suggestion `json:"llm_suggestions"`
	SeedTracks             []track.Track        `json:"seed_track_details"`
	SeedSources            map[string]int       `json:"seed_sources"`
	SeedDisplay            []string             `json:"seed_track_display"`
	SimilarTracks          []track.Track        `json:"similar_tracks"`
	SimilarDisplay         []string             `json:"similar_tracks_display"`
	Tracks                 []track.Track        `json:"track_details"`
	TrackIDs               []string             `json:"track_ids"`
	PromptArtistIDs        []string             `json:"prompt_artist_ids"`
	PromptArtistCandidates []string             `json:"prompt_artist_candidates"`
	SuggestedName          string               `json:"suggested_playlist_name"`
	Stats                  stats.Statistics     `json:"playlist_stats"`
	DebugSteps             []string             `json:"debug_steps"`
	Errors                 []string             `json:"errors"`
	CacheKey               string               `json:"cache_key"`
	OwnerUserID            string               `json:"owner_user_id"`
	OwnerSessionKey        string               `json:"owner_session_key"`

	// CacheHit выставляется только на выдаче и в кэш не пишется
	CacheHit bool `json:"-"`
}

// OwnedBy сообщает, принадлежит ли результат указанной паре
// пользователь/сессия. Результат без метаданных владельца не
// принадлежит никому.
func (p Payload) OwnedBy(userID, sessionKey string) bool {
	if p.OwnerUserID == "" || p.OwnerSessionKey == "" {
		return false
	}
	return p.OwnerUserID == userID && p.OwnerSessionKey == sessionKey
}

// CacheKey возвращает детерминированный ключ кэша для пары
// пользователь/запрос
func CacheKey(userIdentifier, prompt string) string {
	digest := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("recommender:%s:%s", userIdentifier, hex.EncodeToString(digest[:]))
}

// ProfileCacheKey возвращает ключ кэша снимка прослушиваний пользователя
func ProfileCacheKey(userIdentifier string) string {
	return fmt.Sprintf("recommender:user-profile:%s", userIdentifier)
}

// ArtistSuggestionsCacheKey возвращает ключ кэша карточек рекомендуемых
// исполнителей пользователя
func ArtistSuggestionsCacheKey(userIdentifier string) string {
	return fmt.Sprintf("recommender:artist-suggestions:%s", userIdentifier)
}
