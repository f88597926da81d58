package artists

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aiplaylist/internal/gateway/llm"
	"aiplaylist/internal/gateway/spotify"
	"aiplaylist/internal/recommender/profile"
	"aiplaylist/internal/recommender/track"
)

type fakeDispatcher struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, prompt string, opts llm.Options) (llm.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: f.response}, nil
}

type fakeCatalog struct {
	found       []spotify.Artist
	searchErr   error
	searchCalls int
	topTracks   []track.Track
	topErr      error
}

func (f *fakeCatalog) SearchArtists(ctx context.Context, query string, limit int) ([]spotify.Artist, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.found, nil
}

func (f *fakeCatalog) GetArtistTopTracks(ctx context.Context, artistID, market string) ([]track.Track, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	return f.topTracks, nil
}

func snapshotWithArtist(info profile.ArtistInfo) *profile.Snapshot {
	return &profile.Snapshot{
		Artists: map[string]profile.ArtistInfo{info.ID: info},
	}
}

func TestDiscoveryUsesSnapshotMetadata(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Top Artist", "reason": "AI pick"}]`}
	catalog := &fakeCatalog{topTracks: []track.Track{{ID: "track-1"}}}
	snapshot := snapshotWithArtist(profile.ArtistInfo{
		ID:         "top1",
		Name:       "Top Artist",
		Genres:     []string{"indie"},
		Popularity: 65,
		Followers:  12345,
		ImageURL:   "https://img/top.jpg",
		PlayCount:  4,
	})

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), snapshot, 1)

	require.Len(t, cards, 1)
	assert.Equal(t, "Top Artist", cards[0].Name)
	assert.Equal(t, "AI pick", cards[0].Reason)
	assert.Equal(t, 12345, cards[0].Followers)
	assert.Equal(t, "https://img/top.jpg", cards[0].Image)
	assert.Zero(t, catalog.searchCalls)
}

func TestDiscoverySearchesCatalogWhenNotInSnapshot(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Newcomer", "reason": "Fresh sound"}]`}
	catalog := &fakeCatalog{
		found: []spotify.Artist{{
			ID:         "new-1",
			Name:       "Newcomer",
			Genres:     []string{"electronic"},
			Popularity: 70,
			Followers:  4000,
			ImageURL:   "https://img/new.jpg",
		}},
		topTracks: []track.Track{{ID: "track-1"}},
	}

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), &profile.Snapshot{}, 1)

	require.Len(t, cards, 1)
	assert.Equal(t, "new-1", cards[0].ID)
	assert.Equal(t, "Fresh sound", cards[0].Reason)
	assert.Equal(t, 1, catalog.searchCalls)
}

func TestDiscoverySkipsSmallAudiences(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Tiny Act", "reason": "Obscure"}]`}
	catalog := &fakeCatalog{
		found:     []spotify.Artist{{ID: "tiny-1", Name: "Tiny Act", Popularity: 70, Followers: 10}},
		topTracks: []track.Track{{ID: "track-1"}},
	}

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), &profile.Snapshot{}, 1)

	assert.Empty(t, cards)
}

func TestDiscoverySkipsArtistsWithoutListenableTracks(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Ghost Act", "reason": "No catalog"}]`}
	catalog := &fakeCatalog{
		found:     []spotify.Artist{{ID: "ghost-1", Name: "Ghost Act", Popularity: 70, Followers: 9000}},
		topTracks: nil,
	}

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), &profile.Snapshot{}, 1)

	assert.Empty(t, cards)
}

func TestDiscoveryTopTracksFailureKeepsCandidate(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Flaky", "reason": "Worth it"}]`}
	catalog := &fakeCatalog{
		found:  []spotify.Artist{{ID: "flaky-1", Name: "Flaky", Popularity: 70, Followers: 9000}},
		topErr: errors.New("catalog timeout"),
	}

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), &profile.Snapshot{}, 1)

	require.Len(t, cards, 1)
	assert.Equal(t, "flaky-1", cards[0].ID)
}

func TestDiscoveryFallsBackToSeedsWhenModelFails(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("llm unavailable")}
	catalog := &fakeCatalog{topTracks: []track.Track{{ID: "track-1"}}}
	snapshot := snapshotWithArtist(profile.ArtistInfo{
		ID:         "seed-1",
		Name:       "Seed One",
		Popularity: 40,
		Followers:  8000,
		PlayCount:  6,
	})

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), snapshot, 2)

	require.Len(t, cards, 1)
	assert.Equal(t, "seed-1", cards[0].ID)
	assert.Equal(t, "From your listening history", cards[0].Reason)
}

func TestDiscoveryDeduplicatesCandidates(t *testing.T) {
	dispatcher := &fakeDispatcher{
		response: `[{"name": "Top Artist", "reason": "First"}, {"name": "Top Artist", "reason": "Second"}]`,
	}
	catalog := &fakeCatalog{topTracks: []track.Track{{ID: "track-1"}}}
	snapshot := snapshotWithArtist(profile.ArtistInfo{
		ID:         "top1",
		Name:       "Top Artist",
		Popularity: 65,
		Followers:  12345,
	})

	cards := NewDiscovery(dispatcher, catalog, "US", zap.NewNop()).Cards(context.Background(), snapshot, 5)

	require.Len(t, cards, 1)
	assert.Equal(t, "First", cards[0].Reason)
}

func TestDiscoveryPromptCarriesSeedsAndGenres(t *testing.T) {
	dispatcher := &fakeDispatcher{response: ""}
	snapshot := &profile.Snapshot{
		Artists: map[string]profile.ArtistInfo{
			"a1": {ID: "a1", Name: "Indie Star", Genres: []string{"indie-rock"}, PlayCount: 3},
		},
		GenreBuckets: map[string]profile.GenreBucket{
			"indie-rock": {TrackCount: 5},
		},
	}

	NewDiscovery(dispatcher, &fakeCatalog{}, "US", zap.NewNop()).Cards(context.Background(), snapshot, 2)

	require.Len(t, dispatcher.prompts, 1)
	assert.Contains(t, dispatcher.prompts[0], "Indie Star")
	assert.Contains(t, dispatcher.prompts[0], "Indie Rock")
	assert.Contains(t, dispatcher.prompts[0], "Return strictly JSON")
}

func TestDiscoveryZeroLimit(t *testing.T) {
	dispatcher := &fakeDispatcher{response: `[{"name": "Anyone"}]`}

	assert.Empty(t, NewDiscovery(dispatcher, &fakeCatalog{}, "US", zap.NewNop()).Cards(context.Background(), nil, 0))
	assert.Empty(t, dispatcher.prompts)
}

func TestParseCandidatesHandlesStringsAndFences(t *testing.T) {
	candidates := parseCandidates("```json\n[\"Plain Name\", {\"name\": \"With Reason\", \"reason\": \"Because\"}]\n```")

	require.Len(t, candidates, 2)
	assert.Equal(t, "Plain Name", candidates[0].Name)
	assert.Equal(t, "AI discovery pick", candidates[0].Reason)
	assert.Equal(t, "With Reason", candidates[1].Name)
	assert.Equal(t, "Because", candidates[1].Reason)
}

func TestTopGenresTitleCasedByDensity(t *testing.T) {
	snapshot := &profile.Snapshot{
		GenreBuckets: map[string]profile.GenreBucket{
			"hip-hop":    {TrackCount: 9},
			"indie-rock": {TrackCount: 4},
			"jazz":       {TrackCount: 4},
		},
	}

	genres := topGenres(snapshot, 2)

	assert.Equal(t, []string{"Hip Hop", "Indie Rock"}, genres)
}
