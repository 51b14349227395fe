package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SortOrder задаёт порядок сортировки списка записей по времени.
type SortOrder string

const (
	// SortNewestFirst — сначала свежие записи (порядок по умолчанию).
	SortNewestFirst SortOrder = "desc"
	// SortOldestFirst — сначала старые записи.
	SortOldestFirst SortOrder = "asc"
)

// EntryRepo управляет записями дневника в реляционном хранилище.
type EntryRepo interface {
	CreateEntry(ctx context.Context, userID uuid.UUID, content string, ts time.Time) (Entry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (Entry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int, order SortOrder) ([]Entry, error)
	CountEntries(ctx context.Context, userID uuid.UUID) (int, error)
}

// InsightRepo управляет документами инсайтов в документном хранилище.
// Ключом всегда служит идентификатор записи.
type InsightRepo interface {
	SaveInsight(ctx context.Context, insight Insight) error
	GetInsight(ctx context.Context, entryID uuid.UUID) (Insight, error)
}

// Analyzer превращает текст в результат анализа или классифицированную
// ошибку (см. AnalysisError).
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// BackfillQueue — очередь задач на повторный анализ.
type BackfillQueue interface {
	Enqueue(ctx context.Context, job BackfillJob) error
	Pop(ctx context.Context) (BackfillJob, error)
}

// IngestionService реализует сценарии работы с записями дневника.
type IngestionService interface {
	CreateEntry(ctx context.Context, userID uuid.UUID, content string) (EntryWithInsight, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (EntryWithInsight, error)
	ListEntries(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]EntryWithInsight, int, error)
}
