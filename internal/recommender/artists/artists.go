// Package artists строит карточки рекомендуемых исполнителей из снимка
// истории прослушиваний и AI-находок.
package artists

import (
	"sort"
	"strings"

	"aiplaylist/internal/recommender/profile"
)

const (
	// DefaultRecommendLimit сколько карточек выдает профильный скоринг
	DefaultRecommendLimit = 10
	// DefaultSeedLimit сколько самых прослушиваемых исполнителей берется в сиды
	DefaultSeedLimit = 12
)

// Card представляет карточку рекомендуемого исполнителя для дашборда
type Card struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Image           string   `json:"image"`
	Genres          []string `json:"genres"`
	Popularity      int      `json:"popularity"`
	Followers       int      `json:"followers"`
	URL             string   `json:"url"`
	SeedArtistIDs   []string `json:"seed_artist_ids"`
	SeedArtistNames []string `json:"seed_artist_names"`
	Reason          string   `json:"reason"`
	Score           int      `json:"score"`
}

// artistURL возвращает публичную ссылку на страницу исполнителя
func artistURL(artistID string) string {
	if artistID == "" {
		return ""
	}
	return "https://open.spotify.com/artist/" + artistID
}

// newCard нормализует метаданные исполнителя в форму карточки.
// Пустой список сидов заменяется самим исполнителем.
func newCard(info profile.ArtistInfo, reason string, score int, seedIDs, seedNames []string) Card {
	if len(seedIDs) == 0 && info.ID != "" {
		seedIDs = []string{info.ID}
	}
	genres := info.Genres
	if genres == nil {
		genres = []string{}
	}
	if seedIDs == nil {
		seedIDs = []string{}
	}
	if seedNames == nil {
		seedNames = []string{}
	}
	return Card{
		ID:              info.ID,
		Name:            info.Name,
		Image:           info.ImageURL,
		Genres:          genres,
		Popularity:      info.Popularity,
		Followers:       info.Followers,
		URL:             artistURL(info.ID),
		SeedArtistIDs:   seedIDs,
		SeedArtistNames: seedNames,
		Reason:          reason,
		Score:           score,
	}
}

// genreWeights возвращает плотность треков по жанрам снимка
func genreWeights(snapshot *profile.Snapshot) map[string]int {
	weights := map[string]int{}
	if snapshot == nil {
		return weights
	}
	for g, bucket := range snapshot.GenreBuckets {
		weight := bucket.TrackCount
		if weight == 0 {
			weight = len(bucket.TrackIDs)
		}
		if g != "" && weight > 0 {
			weights[g] = weight
		}
	}
	return weights
}

// scoreArtist возвращает балл рекомендации и ее текстовое обоснование.
// Вес складывается из повторов в истории, популярности и плотности
// первичного жанра; нулевой балл заменяется минимальным ненулевым.
func scoreArtist(info profile.ArtistInfo, weights map[string]int) (int, string) {
	primaryGenre := ""
	if len(info.Genres) > 0 {
		primaryGenre = info.Genres[0]
	}
	genreWeight := weights[primaryGenre]

	score := info.PlayCount*2 + info.Popularity + genreWeight
	if score == 0 {
		switch {
		case info.Popularity > 0:
			score = info.Popularity
		case genreWeight > 0:
			score = genreWeight
		default:
			score = 1
		}
	}

	var reason string
	switch {
	case primaryGenre != "":
		reason = "Heavily featured in your " + strings.ReplaceAll(primaryGenre, "-", " ") + " listening"
	case info.PlayCount > 0:
		reason = "Frequently appears in your recent listening"
	default:
		reason = "Discovered from your recent tracks"
	}
	return score, reason
}

// Recommend строит карточки исполнителей только из снимка прослушиваний,
// без обращений к каталогу и LLM
func Recommend(snapshot *profile.Snapshot, limit int) []Card {
	if snapshot == nil || limit <= 0 || len(snapshot.Artists) == 0 {
		return nil
	}

	weights := genreWeights(snapshot)
	cards := make([]Card, 0, len(snapshot.Artists))
	playCounts := make(map[string]int, len(snapshot.Artists))

	for _, info := range snapshot.Artists {
		if info.ID == "" || info.Name == "" {
			continue
		}
		score, reason := scoreArtist(info, weights)
		playCounts[info.ID] = info.PlayCount
		cards = append(cards, newCard(info, reason, score, []string{info.ID}, nil))
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Score != cards[j].Score {
			return cards[i].Score > cards[j].Score
		}
		if cards[i].Popularity != cards[j].Popularity {
			return cards[i].Popularity > cards[j].Popularity
		}
		if playCounts[cards[i].ID] != playCounts[cards[j].ID] {
			return playCounts[cards[i].ID] > playCounts[cards[j].ID]
		}
		return cards[i].Name < cards[j].Name
	})

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

// SeedArtists возвращает самых прослушиваемых исполнителей снимка
func SeedArtists(snapshot *profile.Snapshot, limit int) []profile.ArtistInfo {
	if snapshot == nil || limit <= 0 || len(snapshot.Artists) == 0 {
		return nil
	}

	ranked := make([]profile.ArtistInfo, 0, len(snapshot.Artists))
	for _, info := range snapshot.Artists {
		if info.ID == "" || info.Name == "" {
			continue
		}
		ranked = append(ranked, info)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PlayCount != ranked[j].PlayCount {
			return ranked[i].PlayCount > ranked[j].PlayCount
		}
		if ranked[i].Popularity != ranked[j].Popularity {
			return ranked[i].Popularity > ranked[j].Popularity
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
