package llmtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ParseKind
	}{
		{
			name:     "empty response",
			raw:      "   ",
			expected: ParseEmpty,
		},
		{
			name:     "plain object",
			raw:      `{"mood": "chill"}`,
			expected: ParseOK,
		},
		{
			name:     "fenced code block",
			raw:      "Here you go:\n```json\n[{\"title\": \"Dreams\"}]\n```",
			expected: ParseOK,
		},
		{
			name:     "object buried in commentary",
			raw:      "Sure! The attributes are {\"mood\": \"happy\", \"genre\": \"pop\"} as requested.",
			expected: ParseOK,
		},
		{
			name:     "no json at all",
			raw:      "I cannot help with that.",
			expected: ParseMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJSONResponse(tt.raw)
			assert.Equal(t, tt.expected, result.Kind)
			if tt.expected == ParseOK {
				assert.NotNil(t, result.Value)
			}
		})
	}
}

func TestParseJSONResponsePrefersFencedBlock(t *testing.T) {
	raw := "Commentary with stray braces { not json }\n```json\n{\"genre\": \"rock\"}\n```"

	result := ParseJSONResponse(raw)

	require.Equal(t, ParseOK, result.Kind)
	obj, ok := result.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "rock", obj["genre"])
}

func TestSuggestionsFromParsedWrappers(t *testing.T) {
	var got []Suggestion
	add := func(title, artist string) {
		got = append(got, Suggestion{Title: title, Artist: artist})
	}

	value := map[string]interface{}{
		"tracks": []interface{}{
			map[string]interface{}{"title": "Dreams", "artist": "Fleetwood Mac"},
			map[string]interface{}{"song": "Africa", "singer": "Toto"},
			map[string]interface{}{"name": "September", "artists": []interface{}{"Earth", "Wind & Fire"}},
			"Uptown Funk - Mark Ronson",
		},
	}

	ok := suggestionsFromParsed(value, add)

	require.True(t, ok)
	require.Len(t, got, 4)
	assert.Equal(t, Suggestion{Title: "Dreams", Artist: "Fleetwood Mac"}, got[0])
	assert.Equal(t, Suggestion{Title: "Africa", Artist: "Toto"}, got[1])
	assert.Equal(t, Suggestion{Title: "September", Artist: "Earth, Wind & Fire"}, got[2])
	assert.Equal(t, Suggestion{Title: "Uptown Funk", Artist: "Mark Ronson"}, got[3])
}

func TestSuggestionsFromParsedNonList(t *testing.T) {
	ok := suggestionsFromParsed(map[string]interface{}{"mood": "chill"}, func(string, string) {})
	assert.False(t, ok)
}

func TestSuggestionsFromLines(t *testing.T) {
	var got []Suggestion
	add := func(title, artist string) {
		got = append(got, Suggestion{Title: title, Artist: artist})
	}

	response := "Dreams - Fleetwood Mac\njust a comment line\nAfrica - Toto\n"
	suggestionsFromLines(response, true, add)

	require.Len(t, got, 2)
	assert.Equal(t, "Dreams", got[0].Title)
	assert.Equal(t, "Toto", got[1].Artist)
}
