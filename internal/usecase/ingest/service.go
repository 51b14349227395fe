package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aura-journal/internal/domain"
	"aura-journal/internal/infra/metrics"
)

const (
	defaultPageSize    = 20
	defaultPageSizeMax = 100
)

// Service реализует сценарии приёма записей дневника.
//
// Порядок внутри CreateEntry фиксированный: сначала durable-запись в
// реляционное хранилище, и только после её успеха — анализ и инсайт.
// Любой отказ на ветке анализа не считается отказом создания записи.
type Service struct {
	entries         domain.EntryRepo
	insights        domain.InsightRepo
	analyzer        domain.Analyzer
	backfill        domain.BackfillQueue
	log             zerolog.Logger
	analysisTimeout time.Duration
	pageSize        int
	pageSizeMax     int
}

var _ domain.IngestionService = (*Service)(nil)

// Options настраивает необязательные параметры сервиса.
type Options struct {
	// AnalysisTimeout ограничивает вызов анализатора в CreateEntry.
	AnalysisTimeout time.Duration
	// PageSize — размер страницы по умолчанию для ListEntries.
	PageSize int
	// PageSizeMax — верхняя граница размера страницы.
	PageSizeMax int
}

// NewService создаёт сервис приёма записей. Очередь backfill может быть nil,
// тогда повторный анализ не планируется.
func NewService(entries domain.EntryRepo, insights domain.InsightRepo, analyzer domain.Analyzer, backfill domain.BackfillQueue, logger zerolog.Logger, opts Options) *Service {
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 5 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PageSizeMax <= 0 {
		opts.PageSizeMax = defaultPageSizeMax
	}
	return &Service{
		entries:         entries,
		insights:        insights,
		analyzer:        analyzer,
		backfill:        backfill,
		log:             logger,
		analysisTimeout: opts.AnalysisTimeout,
		pageSize:        opts.PageSize,
		pageSizeMax:     opts.PageSizeMax,
	}
}

// CreateEntry сохраняет запись и пытается получить для неё инсайт.
func (s *Service) CreateEntry(ctx context.Context, userID uuid.UUID, content string) (domain.EntryWithInsight, error) {
	if strings.TrimSpace(content) == "" {
		return domain.EntryWithInsight{}, domain.ErrEmptyContent
	}
	if userID == uuid.Nil {
		return domain.EntryWithInsight{}, domain.ErrMissingUser
	}

	start := time.Now()
	entry, err := s.entries.CreateEntry(ctx, userID, content, time.Now().UTC())
	if err != nil {
		return domain.EntryWithInsight{}, fmt.Errorf("сохранение записи: %w", err)
	}
	metrics.IncEntryCreated()

	insight := s.tryAnalyze(ctx, entry)
	metrics.EntryCreateSeconds.Observe(time.Since(start).Seconds())
	return domain.EntryWithInsight{Entry: entry, Insight: insight}, nil
}

// tryAnalyze выполняет ветку анализа. Возвращает nil при любом отказе:
// запись уже сохранена, её создание не должно от этого пострадать.
func (s *Service) tryAnalyze(ctx context.Context, entry domain.Entry) *domain.Insight {
	actx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(actx, entry.Content)
	if err != nil {
		kind, ok := domain.AnalysisKind(err)
		if !ok {
			kind = domain.AnalysisRemote
		}
		metrics.IncAnalysisFailure(string(kind))
		s.log.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("kind", string(kind)).
			Msg("анализ недоступен, запись сохранена без инсайта")
		s.enqueueBackfill(ctx, entry)
		return nil
	}

	insight := domain.Insight{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Sentiment: analysis.Sentiment,
		Topics:    analysis.Topics,
	}
	if err := s.insights.SaveInsight(ctx, insight); err != nil {
		// Отличаем отказ хранилища инсайтов от отказа самого анализа:
		// в телеметрии это разные инциденты.
		metrics.IncInsightWriteFailure()
		s.log.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("инсайт получен, но не сохранён")
		s.enqueueBackfill(ctx, entry)
		return nil
	}
	return &insight
}

func (s *Service) enqueueBackfill(ctx context.Context, entry domain.Entry) {
	if s.backfill == nil {
		return
	}
	job := domain.BackfillJob{EntryID: entry.ID, UserID: entry.UserID}
	if err := s.backfill.Enqueue(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entry.ID.String()).Msg("не удалось запланировать повторный анализ")
	}
}

// GetEntry возвращает запись вместе с инсайтом, если он есть.
func (s *Service) GetEntry(ctx context.Context, entryID uuid.UUID) (domain.EntryWithInsight, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return domain.EntryWithInsight{}, err
		}
		return domain.EntryWithInsight{}, fmt.Errorf("получение записи: %w", err)
	}
	return domain.EntryWithInsight{Entry: entry, Insight: s.loadInsight(ctx, entryID)}, nil
}

// loadInsight возвращает nil и при отсутствии инсайта, и при ошибке
// документного хранилища: чтение записи деградирует так же, как создание.
func (s *Service) loadInsight(ctx context.Context, entryID uuid.UUID) *domain.Insight {
	insight, err := s.insights.GetInsight(ctx, entryID)
	if err != nil {
		if !errors.Is(err, domain.ErrInsightNotFound) {
			s.log.Warn().Err(err).Str("entry_id", entryID.String()).Msg("не удалось прочитать инсайт")
		}
		return nil
	}
	return &insight
}

// ListEntries возвращает страницу записей пользователя с инсайтами
// и общее количество записей.
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.EntryWithInsight, int, error) {
	if userID == uuid.Nil {
		return nil, 0, domain.ErrMissingUser
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > s.pageSizeMax {
		pageSize = s.pageSizeMax
	}
	offset := (page - 1) * pageSize

	entries, err := s.entries.ListEntries(ctx, userID, pageSize, offset, domain.SortNewestFirst)
	if err != nil {
		return nil, 0, fmt.Errorf("список записей: %w", err)
	}
	total, err := s.entries.CountEntries(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("количество записей: %w", err)
	}

	out := make([]domain.EntryWithInsight, 0, len(entries))
	for _, entry := range entries {
		out = append(out, domain.EntryWithInsight{Entry: entry, Insight: s.loadInsight(ctx, entry.ID)})
	}
	return out, total, nil
}

// BackfillEntry повторно анализирует запись из задачи очереди.
// Пропускает задачу если записи больше нет или инсайт уже сохранён.
func (s *Service) BackfillEntry(ctx context.Context, job domain.BackfillJob) error {
	entry, err := s.entries.GetEntry(ctx, job.EntryID)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			metrics.IncBackfillJob("orphan")
			s.log.Warn().Str("entry_id", job.EntryID.String()).Msg("backfill: запись не найдена, задача пропущена")
			return nil
		}
		return fmt.Errorf("backfill: получение записи: %w", err)
	}

	if _, err := s.insights.GetInsight(ctx, entry.ID); err == nil {
		metrics.IncBackfillJob("skipped")
		return nil
	} else if !errors.Is(err, domain.ErrInsightNotFound) {
		return fmt.Errorf("backfill: проверка инсайта: %w", err)
	}

	actx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()
	analysis, err := s.analyzer.Analyze(actx, entry.Content)
	if err != nil {
		metrics.IncBackfillJob("failed")
		return fmt.Errorf("backfill: анализ: %w", err)
	}

	insight := domain.Insight{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		Sentiment: analysis.Sentiment,
		Topics:    analysis.Topics,
	}
	if err := s.insights.SaveInsight(ctx, insight); err != nil {
		metrics.IncBackfillJob("failed")
		return fmt.Errorf("backfill: сохранение инсайта: %w", err)
	}
	metrics.IncBackfillJob("done")
	return nil
}
