package metrics

import "time"

// Interface определяет интерфейс для системы метрик
type Interface interface {
	// RecordRequest записывает обращение к эндпоинту
	RecordRequest(endpoint string, userID string)

	// RecordGeneration записывает завершенную генерацию плейлиста
	RecordGeneration(trackCount, tokens int)

	// RecordCacheHit записывает попадание в кэш
	RecordCacheHit()

	// RecordCacheMiss записывает промах кэша
	RecordCacheMiss()

	// RecordResponseTime записывает время ответа
	RecordResponseTime(duration time.Duration)

	// RecordError записывает ошибку
	RecordError()

	// SetProfileRefreshStatus устанавливает статус обновления снимка прослушиваний
	SetProfileRefreshStatus(updating bool)

	// GetStats возвращает все метрики в виде map
	GetStats() map[string]interface{}
}
