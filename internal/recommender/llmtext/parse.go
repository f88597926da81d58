package llmtext

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseKind различает исходы разбора ответа модели
type ParseKind int

const (
	// ParseEmpty означает пустой ответ модели
	ParseEmpty ParseKind = iota
	// ParseMalformed означает ответ без извлекаемого JSON
	ParseMalformed
	// ParseOK означает успешно разобранное JSON-значение
	ParseOK
)

// ParseResult представляет размеченный результат разбора ответа модели.
// Каждая стадия пайплайна выбирает запасное поведение по виду результата,
// а не по вложенным проверкам на nil.
type ParseResult struct {
	Kind  ParseKind
	Value interface{}
}

var codeFenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// jsonCandidates выделяет правдоподобные JSON-фрагменты из ответа модели:
// сначала содержимое код-блоков, затем весь ответ целиком
func jsonCandidates(raw string) []string {
	var candidates []string
	for _, match := range codeFenceRe.FindAllStringSubmatch(raw, -1) {
		if cleaned := strings.TrimSpace(match[1]); cleaned != "" {
			candidates = append(candidates, cleaned)
		}
	}
	if stripped := strings.TrimSpace(raw); stripped != "" {
		candidates = append(candidates, stripped)
	}
	return candidates
}

// decodePrefix разбирает JSON-значение в начале строки, игнорируя хвост
func decodePrefix(candidate string) (interface{}, bool) {
	decoder := json.NewDecoder(strings.NewReader(candidate))
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

// ParseJSONResponse извлекает JSON из ответа модели, который может быть
// обернут комментариями или код-блоками
func ParseJSONResponse(raw string) ParseResult {
	if strings.TrimSpace(raw) == "" {
		return ParseResult{Kind: ParseEmpty}
	}

	for _, candidate := range jsonCandidates(raw) {
		if value, ok := decodePrefix(candidate); ok {
			return ParseResult{Kind: ParseOK, Value: value}
		}
		// Ищем первый вложенный объект или массив
		for idx, ch := range candidate {
			if ch != '{' && ch != '[' {
				continue
			}
			if value, ok := decodePrefix(candidate[idx:]); ok {
				return ParseResult{Kind: ParseOK, Value: value}
			}
		}
	}

	return ParseResult{Kind: ParseMalformed}
}

// unwrapTrackList снимает обертки вида {"tracks": [...]} с разобранного значения
func unwrapTrackList(value interface{}) interface{} {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return value
	}
	for _, key := range []string{"tracks", "playlist", "songs"} {
		if inner, ok := obj[key]; ok {
			return inner
		}
	}
	return value
}

// suggestionsFromParsed собирает предложения из разобранного JSON-списка.
// Элементы могут быть объектами с разными именами ключей или строками
// вида "Title - Artist".
func suggestionsFromParsed(value interface{}, add func(title, artist string)) bool {
	list, ok := unwrapTrackList(value).([]interface{})
	if !ok {
		return false
	}

	for _, item := range list {
		switch v := item.(type) {
		case map[string]interface{}:
			title := firstString(v, "title", "song", "name")
			artist := firstString(v, "artist", "artists", "singer")
			if title != "" {
				add(title, artist)
			}
		case string:
			title, artist := splitTitleArtist(v)
			add(title, artist)
		}
	}
	return true
}

// suggestionsFromLines собирает предложения из построчного ответа.
// requireSeparator управляет судьбой строк без " - ": при разборе сидов
// они отбрасываются, при ремиксе трактуются как название без исполнителя.
func suggestionsFromLines(response string, requireSeparator bool, add func(title, artist string)) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if requireSeparator && !strings.Contains(line, " - ") {
			continue
		}
		title, artist := splitTitleArtist(line)
		add(title, artist)
	}
}

// splitTitleArtist делит строку "Title - Artist" на части
func splitTitleArtist(line string) (string, string) {
	if idx := strings.Index(line, " - "); idx >= 0 {
		return line[:idx], line[idx+3:]
	}
	return line, ""
}

// firstString возвращает первое непустое строковое значение по списку ключей.
// Списки склеиваются через запятую (исполнители в поле "artists").
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := obj[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, part := range v {
				if s, ok := part.(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	}
	return ""
}
