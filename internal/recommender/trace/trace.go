// Package trace содержит сбор диагностических шагов генерации плейлиста.
package trace

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Ключевые слова, по которым шаг дополнительно попадает в список ошибок
// для показа пользователю. Пайплайн при этом не останавливается.
var errorKeywords = []string{"error", "failed", "missing", "unavailable"}

// Trace представляет журнал шагов одного запуска генерации
type Trace struct {
	start  time.Time
	label  string
	logger *zap.Logger
	steps  []string
	errors []string
}

// New создает новый журнал шагов с меткой запуска
func New(label string, logger *zap.Logger) *Trace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trace{
		start:  time.Now(),
		label:  label,
		logger: logger,
	}
}

// Log записывает шаг с отметкой прошедшего времени
func (t *Trace) Log(message string) {
	elapsed := time.Since(t.start).Seconds()
	t.steps = append(t.steps, fmt.Sprintf("[%0.2fs] %s", elapsed, message))

	lower := strings.ToLower(message)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			t.errors = append(t.errors, message)
			break
		}
	}

	t.logger.Debug("pipeline step",
		zap.String("label", t.label),
		zap.Float64("elapsed_s", elapsed),
		zap.String("message", message))
}

// Logf записывает форматированный шаг
func (t *Trace) Logf(format string, args ...interface{}) {
	t.Log(fmt.Sprintf(format, args...))
}

// Steps возвращает все записанные шаги
func (t *Trace) Steps() []string {
	out := make([]string, len(t.steps))
	copy(out, t.steps)
	return out
}

// Errors возвращает шаги, помеченные как потенциальные ошибки
func (t *Trace) Errors() []string {
	out := make([]string, len(t.errors))
	copy(out, t.errors)
	return out
}
