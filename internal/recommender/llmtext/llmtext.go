// Package llmtext содержит промпты генерации плейлистов и разбор ответов LLM.
package llmtext

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"aiplaylist/internal/gateway/llm"
	"aiplaylist/internal/recommender/trace"
)

// Attributes представляет извлеченные из запроса характеристики плейлиста.
// Все три основных поля всегда заполнены: пробелы закрываются значениями
// по умолчанию.
type Attributes struct {
	Mood    string   `json:"mood"`
	Genre   string   `json:"genre"`
	Energy  string   `json:"energy"`
	Artist  string   `json:"artist,omitempty"`
	Artists []string `json:"artists,omitempty"`
}

// DefaultAttributes возвращает характеристики по умолчанию
func DefaultAttributes() Attributes {
	return Attributes{Mood: "chill", Genre: "pop", Energy: "medium"}
}

// Suggestion представляет предложенный моделью трек
type Suggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Display возвращает строку "Title - Artist" для промптов и дедупликации
func (s Suggestion) Display() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Title + " - " + s.Artist
}

// Session представляет цикл общения с LLM в рамках одного запуска генерации.
// Накапливает счетчики токенов всех запросов запуска.
type Session struct {
	dispatcher llm.Dispatcher
	defaults   Attributes
	trace      *trace.Trace
	logger     *zap.Logger
	usage      llm.Usage
}

// NewSession создает сессию запуска генерации
func NewSession(dispatcher llm.Dispatcher, defaults Attributes, tr *trace.Trace, logger *zap.Logger) *Session {
	if defaults.Mood == "" && defaults.Genre == "" && defaults.Energy == "" {
		defaults = DefaultAttributes()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		dispatcher: dispatcher,
		defaults:   defaults,
		trace:      tr,
		logger:     logger,
	}
}

// Usage возвращает накопленные счетчики токенов сессии
func (s *Session) Usage() llm.Usage {
	return s.usage
}

// dispatch отправляет промпт и возвращает текст ответа.
// Ошибка транспорта приравнивается к пустому ответу: у каждой стадии
// пайплайна есть запасное поведение.
func (s *Session) dispatch(ctx context.Context, prompt string) string {
	if s.dispatcher == nil {
		return ""
	}

	completion, err := s.dispatcher.Dispatch(ctx, prompt, llm.Options{})
	if err != nil {
		s.log("LLM request failed: " + err.Error())
		s.logger.Warn("LLM request failed", zap.Error(err))
		return ""
	}
	s.usage.Add(completion.Usage)
	return strings.TrimSpace(completion.Text)
}

func (s *Session) log(message string) {
	if s.trace != nil {
		s.trace.Log(message)
	}
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.trace != nil {
		s.trace.Logf(format, args...)
	}
}

// snippet укорачивает сырой ответ модели для журнала шагов
func snippet(response string, limit int) string {
	if len(response) <= limit {
		return response
	}
	return response[:limit-3] + "..."
}
