// Package llm реализует клиент для работы с OpenAI-совместимым LLM API.
package llm

import "context"

// Options определяет параметры одного запроса к модели
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Usage содержит счетчики токенов одного или нескольких запросов
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add суммирует счетчики токенов
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion представляет ответ модели вместе с потраченными токенами
type Completion struct {
	Text  string
	Usage Usage
}

// Dispatcher определяет интерфейс отправки промптов к LLM.
// Пустой текст ответа не является ошибкой: вызывающая сторона обязана
// иметь запасное поведение на этот случай.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt string, opts Options) (Completion, error)
}
