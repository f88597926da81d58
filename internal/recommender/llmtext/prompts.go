package llmtext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// remixSnapshotLimit сколько существующих треков показывается модели при ремиксе
const remixSnapshotLimit = 25

// ExtractAttributes извлекает настроение, жанр и энергию из свободного
// текста запроса. При пустом или неразбираемом ответе модели возвращает
// значения по умолчанию вместо ошибки.
func (s *Session) ExtractAttributes(ctx context.Context, prompt string) Attributes {
	query := "Extract the mood, genre, energy level, and any explicitly referenced primary artists " +
		"or bands from this user playlist request. Respond with JSON containing the keys " +
		"`mood`, `genre`, and `energy`, plus optional `artist` (string) and `artists` " +
		"(array of strings) when specific performers are mentioned. " +
		"If no artist is present, set those fields to null or an empty list. " +
		"Request: " + prompt

	s.log("LLM prompt (attribute extraction): " + query)
	response := s.dispatch(ctx, query)
	s.log("LLM raw response (attributes): " + snippet(response, 300))

	result := ParseJSONResponse(response)
	switch result.Kind {
	case ParseEmpty:
		s.log("LLM attribute extraction failed; using default attributes.")
		return s.defaults
	case ParseMalformed:
		s.log("Failed to parse LLM attribute response; using defaults.")
		return s.defaults
	}

	obj, ok := result.Value.(map[string]interface{})
	if !ok {
		s.log("Failed to parse LLM attribute response; using defaults.")
		return s.defaults
	}

	lowered := make(map[string]interface{}, len(obj))
	for key, value := range obj {
		lowered[strings.ToLower(key)] = value
	}

	attributes := Attributes{
		Mood:   firstString(lowered, "mood"),
		Genre:  firstString(lowered, "genre", "music_genre"),
		Energy: firstString(lowered, "energy", "energy_level", "energylevel"),
	}
	if attributes.Mood == "" {
		attributes.Mood = s.defaults.Mood
	}
	if attributes.Genre == "" {
		attributes.Genre = s.defaults.Genre
	}
	if attributes.Energy == "" {
		attributes.Energy = s.defaults.Energy
	}

	attributes.Artist = artistHint(lowered)
	attributes.Artists = artistList(lowered, attributes.Artist)

	s.logf("LLM parsed attributes: mood=%s genre=%s energy=%s artist=%q",
		attributes.Mood, attributes.Genre, attributes.Energy, attributes.Artist)
	return attributes
}

// artistHint извлекает основного исполнителя из разобранных атрибутов
func artistHint(lowered map[string]interface{}) string {
	for _, key := range []string{"artist", "primary_artist"} {
		value, ok := lowered[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case []interface{}:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

// artistList собирает список исполнителей, ставя основного первым
func artistList(lowered map[string]interface{}, hint string) []string {
	var artists []string
	for _, key := range []string{"artists", "artist_list"} {
		value, ok := lowered[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				artists = append(artists, trimmed)
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					artists = append(artists, strings.TrimSpace(s))
				}
			}
		}
		if len(artists) > 0 {
			break
		}
	}

	if hint != "" {
		present := false
		for _, name := range artists {
			if strings.EqualFold(name, hint) {
				present = true
				break
			}
		}
		if !present {
			artists = append([]string{hint}, artists...)
		}
	}
	return artists
}

// SuggestSeedTracks просит модель предложить сиды в виде пар (название,
// исполнитель). При недоступности модели возвращает встроенный запасной
// список для жанра: у пайплайна всегда есть хотя бы один путь к сидам.
func (s *Session) SuggestSeedTracks(ctx context.Context, prompt string, attributes Attributes, maxSuggestions int) []Suggestion {
	suggestionCap := maxSuggestions
	if suggestionCap < 1 {
		suggestionCap = 5
	}

	attrLabel, _ := json.Marshal(attributes)
	query := fmt.Sprintf(
		"You are selecting seed songs for a Spotify playlist.\n"+
			"Playlist request: %q\n"+
			"Extracted attributes: %s\n"+
			"Return a JSON array with at most %d objects, each containing the keys "+
			"\"title\" and \"artist\". Choose well-known songs that fit the mood/genre/"+
			"energy and are likely available on Spotify.",
		prompt, attrLabel, suggestionCap)

	s.log("LLM prompt (seed suggestions): " + query)
	response := s.dispatch(ctx, query)
	s.log("LLM raw response (seed suggestions): " + snippet(response, 400))

	var suggestions []Suggestion
	add := func(title, artist string) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		suggestions = append(suggestions, Suggestion{Title: title, Artist: strings.TrimSpace(artist)})
	}

	result := ParseJSONResponse(response)
	if result.Kind == ParseOK {
		if !suggestionsFromParsed(result.Value, add) {
			suggestionsFromLines(response, true, add)
		}
	} else if result.Kind == ParseMalformed {
		suggestionsFromLines(response, true, add)
	}

	if len(suggestions) == 0 {
		s.log("LLM seed suggestions unavailable; will rely on catalog fallback.")
		suggestions = fallbackSuggestions(attributes.Genre, suggestionCap)
		s.logf("Provided fallback seed suggestions for genre '%s'.", attributes.Genre)
	} else {
		s.logf("LLM parsed %d seed suggestions.", len(suggestions))
	}

	if len(suggestions) > suggestionCap {
		suggestions = suggestions[:suggestionCap]
	}
	return suggestions
}

// SuggestRemixTracks просит модель пересобрать плейлист, показывая текущие
// треки как контекст. При нехватке предложений добирает их из существующих
// треков: ремикс деградирует до no-op, а не до ошибки.
func (s *Session) SuggestRemixTracks(ctx context.Context, existingTracks []string, attributes Attributes, prompt string, targetCount int) []Suggestion {
	if targetCount <= 0 {
		return nil
	}

	var uniqueExisting []string
	seenExisting := map[string]struct{}{}
	for _, entry := range existingTracks {
		normalized := strings.TrimSpace(entry)
		if normalized == "" {
			continue
		}
		lowered := strings.ToLower(normalized)
		if _, ok := seenExisting[lowered]; ok {
			continue
		}
		seenExisting[lowered] = struct{}{}
		uniqueExisting = append(uniqueExisting, normalized)
	}

	snapshotLimit := targetCount
	if snapshotLimit > remixSnapshotLimit {
		snapshotLimit = remixSnapshotLimit
	}
	snapshot := uniqueExisting
	if len(snapshot) > snapshotLimit {
		snapshot = snapshot[:snapshotLimit]
	}
	if len(snapshot) == 0 {
		snapshot = []string{"(playlist currently empty)"}
	}

	var numbered strings.Builder
	for i, entry := range snapshot {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, entry)
	}

	promptLabel := prompt
	if promptLabel == "" {
		promptLabel = "Unnamed playlist request"
	}
	attrLabel, _ := json.Marshal(attributes)
	query := fmt.Sprintf(
		"You are refreshing an existing Spotify playlist for a user.\n"+
			"Original request: %q\n"+
			"Target attributes: %s\n"+
			"Current playlist tracks:\n%s\n"+
			"Remix the playlist by returning exactly %d songs that match the same "+
			"mood, genre, and energy. You may keep some of the existing songs, but "+
			"avoid duplicates overall and ensure the list feels refreshed. Return a "+
			"JSON array where each object contains the keys \"title\" and \"artist\". "+
			"Prefer well-known tracks that are likely available on Spotify US.",
		promptLabel, attrLabel, numbered.String(), targetCount)

	s.log("LLM prompt (remix suggestions): " + query)
	response := s.dispatch(ctx, query)
	s.log("LLM raw response (remix suggestions): " + snippet(response, 400))

	var suggestions []Suggestion
	seenPairs := map[string]struct{}{}
	add := func(title, artist string) {
		title = strings.TrimSpace(title)
		artist = strings.TrimSpace(artist)
		if title == "" {
			return
		}
		key := strings.ToLower(title) + "\x00" + strings.ToLower(artist)
		if _, ok := seenPairs[key]; ok {
			return
		}
		seenPairs[key] = struct{}{}
		suggestions = append(suggestions, Suggestion{Title: title, Artist: artist})
	}

	result := ParseJSONResponse(response)
	if result.Kind == ParseOK {
		if !suggestionsFromParsed(result.Value, add) {
			suggestionsFromLines(response, false, add)
		}
	} else if result.Kind == ParseMalformed {
		suggestionsFromLines(response, false, add)
	}

	if len(suggestions) < targetCount {
		s.log("LLM remix suggestions insufficient; filling with existing playlist tracks.")
		for _, entry := range uniqueExisting {
			title, artist := splitTitleArtist(entry)
			add(title, artist)
			if len(suggestions) >= targetCount {
				break
			}
		}
	}

	if len(suggestions) == 0 {
		s.log("Remix suggestions unavailable; returning empty list.")
		return nil
	}
	if len(suggestions) > targetCount {
		suggestions = suggestions[:targetCount]
	}
	s.logf("LLM parsed %d remix suggestions.", len(suggestions))
	return suggestions
}

// RefinePlaylist просит модель дополнить список сидов известными треками.
// Добавляются только строки, которых еще нет в списке; при пустом ответе
// список возвращается без изменений.
func (s *Session) RefinePlaylist(ctx context.Context, seedTracks []string, attributes Attributes) []string {
	attrLabel, _ := json.Marshal(attributes)
	query := fmt.Sprintf(
		"Given these seed tracks: %s, and attributes %s, "+
			"recommend 5 additional widely known songs that are available on Spotify US. "+
			"Return each song on a new line and prefer artists that match the requested genre.",
		strings.Join(seedTracks, "\n"), attrLabel)

	s.log("LLM prompt (playlist refinement): " + query)
	response := s.dispatch(ctx, query)
	s.log("LLM raw response (refinement): " + snippet(response, 400))

	if response == "" {
		s.log("LLM refinement returned no response; using seed tracks only.")
		return seedTracks
	}

	existing := map[string]struct{}{}
	for _, seed := range seedTracks {
		existing[seed] = struct{}{}
	}

	combined := append([]string{}, seedTracks...)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := existing[line]; ok {
			continue
		}
		combined = append(combined, line)
	}
	return combined
}
