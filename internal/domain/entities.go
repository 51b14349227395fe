package domain

import (
	"time"

	"github.com/google/uuid"
)

// Метки тональности, которые возвращает анализатор.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentMixed    = "MIXED"
	SentimentNeutral  = "NEUTRAL"
)

// KnownSentimentLabel проверяет, что метка входит в закрытый набор.
func KnownSentimentLabel(label string) bool {
	switch label {
	case SentimentPositive, SentimentNegative, SentimentMixed, SentimentNeutral:
		return true
	}
	return false
}

// Entry описывает одну запись дневника. Содержимое и время создания
// после сохранения не меняются.
type Entry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Content   string
	Timestamp time.Time
}

// Sentiment содержит метку тональности и числовую оценку провайдера.
// Диапазон оценки не нормируется, значение передаётся как есть.
type Sentiment struct {
	Label string
	Score float64
}

// Analysis — результат анализа текста: тональность и темы.
type Analysis struct {
	Sentiment Sentiment
	Topics    []string
}

// Insight хранит результат анализа, привязанный к записи.
// У записи ноль или один инсайт, версионирование не моделируется.
type Insight struct {
	EntryID   uuid.UUID
	UserID    uuid.UUID
	Sentiment Sentiment
	Topics    []string
}

// EntryWithInsight — запись вместе с опциональным инсайтом.
// Insight == nil означает, что анализ недоступен, это штатное состояние.
type EntryWithInsight struct {
	Entry   Entry
	Insight *Insight
}

// BackfillJob — задача на повторный анализ записи без инсайта.
type BackfillJob struct {
	EntryID uuid.UUID `json:"entry_id"`
	UserID  uuid.UUID `json:"user_id"`
}
