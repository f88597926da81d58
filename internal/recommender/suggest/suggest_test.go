package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aiplaylist/internal/model"
	"aiplaylist/internal/recommender/profile"
)

type fakeStats struct {
	summary   *model.GenerationSummary
	breakdown []model.GenreWeight
}

func (f *fakeStats) Summarize(userIdentifier string) (*model.GenerationSummary, error) {
	return f.summary, nil
}

func (f *fakeStats) GetGenreBreakdown(userIdentifier string) ([]model.GenreWeight, error) {
	return f.breakdown, nil
}

func floatPtr(v float64) *float64 { return &v }

func TestGenerateWithProfileData(t *testing.T) {
	stats := &fakeStats{
		summary: &model.GenerationSummary{
			TopGenre:       "alt-pop",
			AvgNovelty:     floatPtr(82),
			TotalPlaylists: 3,
		},
		breakdown: []model.GenreWeight{
			{Genre: "indie-rock"},
			{Genre: "dream-pop"},
		},
	}
	snapshot := &profile.Snapshot{
		Source: "top_tracks",
		GenreBuckets: map[string]profile.GenreBucket{
			"indie-folk": {TrackCount: 8},
			"synth-pop":  {TrackCount: 4},
		},
		Artists: map[string]profile.ArtistInfo{
			"1": {ID: "1", Name: "Phoebe Bridgers", PlayCount: 12},
			"2": {ID: "2", Name: "The 1975", PlayCount: 9},
		},
	}

	prompts := Generate("user123", stats, snapshot, 9)

	require.GreaterOrEqual(t, len(prompts), 6)
	foundGenre := false
	foundArtist := false
	for _, prompt := range prompts {
		if strings.Contains(prompt, "Indie Rock") || strings.Contains(prompt, "Alt Pop") {
			foundGenre = true
		}
		if strings.Contains(prompt, "Phoebe Bridgers") {
			foundArtist = true
		}
	}
	assert.True(t, foundGenre, "expected a genre-driven prompt")
	assert.True(t, foundArtist, "expected an artist-driven prompt")
	assert.Contains(t, prompts, "High-energy mix from my top tracks")
	assert.Contains(t, prompts, "Keep the discovery streak from my recent playlists")
	assert.LessOrEqual(t, len(prompts), 9)
}

func TestGenerateWithoutIdentifier(t *testing.T) {
	prompts := Generate("", &fakeStats{}, nil, 9)
	assert.Empty(t, prompts)
}

func TestGenerateWithoutAnySignal(t *testing.T) {
	stats := &fakeStats{summary: &model.GenerationSummary{}}
	prompts := Generate("user123", stats, nil, 9)
	assert.Empty(t, prompts)
}

func TestGenerateLowNoveltyPrompt(t *testing.T) {
	stats := &fakeStats{
		summary: &model.GenerationSummary{
			TopGenre:       "jazz",
			AvgNovelty:     floatPtr(40),
			TotalPlaylists: 2,
		},
	}

	prompts := Generate("user123", stats, nil, 9)

	assert.Contains(t, prompts, "Blend familiar favorites with deeper cuts I've missed")
	assert.Contains(t, prompts, "My go-to Jazz tracks lately")
}

func TestGenerateRemixPromptWithoutNovelty(t *testing.T) {
	stats := &fakeStats{
		summary: &model.GenerationSummary{TotalPlaylists: 1},
	}

	prompts := Generate("user123", stats, nil, 9)

	assert.Contains(t, prompts, "Remix what I've been generating lately")
}

func TestGenerateRespectsPromptLimit(t *testing.T) {
	stats := &fakeStats{
		summary: &model.GenerationSummary{
			TopGenre:       "rock",
			AvgNovelty:     floatPtr(90),
			TotalPlaylists: 5,
		},
		breakdown: []model.GenreWeight{
			{Genre: "indie-rock"}, {Genre: "dream-pop"}, {Genre: "shoegaze"},
		},
	}
	snapshot := &profile.Snapshot{
		Source: "recently_played",
		Artists: map[string]profile.ArtistInfo{
			"1": {ID: "1", Name: "Slowdive", PlayCount: 10},
			"2": {ID: "2", Name: "Ride", PlayCount: 8},
			"3": {ID: "3", Name: "Lush", PlayCount: 6},
		},
	}

	prompts := Generate("user123", stats, snapshot, 4)

	assert.Len(t, prompts, 4)
}

func TestFormatGenreLabel(t *testing.T) {
	assert.Equal(t, "Indie Rock", formatGenreLabel("indie-rock"))
	assert.Equal(t, "Pop", formatGenreLabel(" pop "))
	assert.Equal(t, "", formatGenreLabel("  "))
	assert.Equal(t, "", formatGenreLabel(""))
}
