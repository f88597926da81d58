package genre

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/track"
)

type fakeArtistLookup struct {
	artists []spotify.Artist
	err     error
	calls   int
}

func (f *fakeArtistLookup) GetArtists(_ context.Context, _ []string) ([]spotify.Artist, error) {
	f.calls++
	return f.artists, f.err
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "lowercase and hyphens",
			raw:      "  Hip Hop  ",
			expected: "hip-hop",
		},
		{
			name:     "already canonical",
			raw:      "lo-fi",
			expected: "lo-fi",
		},
		{
			name:     "diacritics stripped",
			raw:      "Électro Pop",
			expected: "electro-pop",
		},
		{
			name:     "collapses inner whitespace",
			raw:      "drum  and   bass",
			expected: "drum-and-bass",
		},
		{
			name:     "empty",
			raw:      "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestAliases(t *testing.T) {
	aliases := Aliases("r-b")

	assert.Contains(t, aliases, "r-b")
	assert.Contains(t, aliases, "rb")
	assert.Contains(t, aliases, "r b")
	assert.Contains(t, aliases, "r&b")
	assert.Contains(t, aliases, "rnb")

	hipHop := Aliases("hip-hop")
	assert.Contains(t, hipHop, "hiphop")
	assert.Contains(t, hipHop, "hip hop")
	assert.Contains(t, hipHop, "rap")

	popMusic := Aliases("pop-music")
	assert.Contains(t, popMusic, "pop")
}

func TestMatches(t *testing.T) {
	aliases := Aliases("r-b")

	assert.True(t, Matches("R&B", aliases))
	assert.True(t, Matches("rb", aliases))
	assert.True(t, Matches("contemporary r&b", aliases))
	assert.False(t, Matches("death metal", aliases))
	assert.False(t, Matches("", aliases))
}

func TestFilterByMarket(t *testing.T) {
	tracks := []track.Track{
		{ID: "unrestricted"},
		{ID: "available", Markets: []string{"DE", "US"}},
		{ID: "elsewhere", Markets: []string{"JP"}},
	}

	filtered := FilterByMarket(tracks, "US")
	require.Len(t, filtered, 2)
	assert.Equal(t, "unrestricted", filtered[0].ID)
	assert.Equal(t, "available", filtered[1].ID)

	assert.Len(t, FilterByMarket(tracks, ""), 3)
}

func TestIsMostlyLatin(t *testing.T) {
	assert.True(t, IsMostlyLatin("Bohemian Rhapsody", DefaultLatinThreshold))
	assert.True(t, IsMostlyLatin("12345 !!!", DefaultLatinThreshold))
	assert.True(t, IsMostlyLatin("", DefaultLatinThreshold))
	assert.False(t, IsMostlyLatin("群青日和", DefaultLatinThreshold))
	// Смешанное название проходит при достаточной доле латиницы
	assert.True(t, IsMostlyLatin("Plastic Love プラスチック", 0.4))
}

func TestFilterNonLatin(t *testing.T) {
	tracks := []track.Track{
		{ID: "a", Name: "September"},
		{ID: "b", Name: "夜に駆ける"},
	}

	filtered := FilterNonLatin(tracks, DefaultLatinThreshold)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a", filtered[0].ID)

	// Нулевой порог выключает фильтр
	assert.Len(t, FilterNonLatin(tracks, 0), 2)
}

func TestThresholdsFor(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 45, th.For("pop"))
	assert.Equal(t, 25, th.For("ambient"))
	assert.Equal(t, 30, th.For("Jazz"))
	assert.Equal(t, 35, th.For("singer-songwriter"))
}

func TestFilterTracksByArtistGenreAliasMatch(t *testing.T) {
	lookup := &fakeArtistLookup{
		artists: []spotify.Artist{
			{ID: "artist1", Genres: []string{"R&B"}},
			{ID: "artist2", Genres: []string{"rb"}},
			{ID: "artist3", Genres: []string{"death metal"}},
		},
	}
	tracks := []track.Track{
		{ID: "t1", ArtistIDs: []string{"artist1"}, Popularity: 60},
		{ID: "t2", ArtistIDs: []string{"artist2"}, Popularity: 60},
		{ID: "t3", ArtistIDs: []string{"artist3"}, Popularity: 60},
	}

	filtered := FilterTracksByArtistGenre(context.Background(), lookup, tracks, "r-b", 45, zap.NewNop())

	require.Len(t, filtered, 2)
	assert.Equal(t, "t1", filtered[0].ID)
	assert.Equal(t, "t2", filtered[1].ID)
}

func TestFilterTracksByArtistGenrePopularityThreshold(t *testing.T) {
	lookup := &fakeArtistLookup{
		artists: []spotify.Artist{
			{ID: "artist1", Genres: []string{"jazz"}},
		},
	}
	tracks := []track.Track{
		{ID: "popular", ArtistIDs: []string{"artist1"}, Popularity: 35},
		{ID: "obscure", ArtistIDs: []string{"artist1"}, Popularity: 10},
	}

	filtered := FilterTracksByArtistGenre(context.Background(), lookup, tracks, "jazz", 30, zap.NewNop())

	require.Len(t, filtered, 1)
	assert.Equal(t, "popular", filtered[0].ID)
}

func TestFilterTracksByArtistGenreFailOpen(t *testing.T) {
	lookup := &fakeArtistLookup{err: errors.New("catalog unavailable")}
	tracks := []track.Track{
		{ID: "t1", ArtistIDs: []string{"artist1"}, Popularity: 60},
		{ID: "t2", ArtistIDs: []string{"artist2"}, Popularity: 10},
	}

	filtered := FilterTracksByArtistGenre(context.Background(), lookup, tracks, "pop", 45, zap.NewNop())

	assert.Equal(t, tracks, filtered)
	assert.Equal(t, 1, lookup.calls)
}

func TestFilterTracksByArtistGenreEmptyResultFallsBack(t *testing.T) {
	lookup := &fakeArtistLookup{
		artists: []spotify.Artist{
			{ID: "artist1", Genres: []string{"polka"}},
		},
	}
	tracks := []track.Track{
		{ID: "t1", ArtistIDs: []string{"artist1"}, Popularity: 60},
	}

	filtered := FilterTracksByArtistGenre(context.Background(), lookup, tracks, "pop", 45, zap.NewNop())

	assert.Equal(t, tracks, filtered)
}
