package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aura-journal/internal/domain"
)

type stubEntryRepo struct {
	entries    map[uuid.UUID]domain.Entry
	failCreate bool
	failList   bool
}

func newStubEntryRepo() *stubEntryRepo {
	return &stubEntryRepo{entries: make(map[uuid.UUID]domain.Entry)}
}

func (s *stubEntryRepo) CreateEntry(_ context.Context, userID uuid.UUID, content string, ts time.Time) (domain.Entry, error) {
	if s.failCreate {
		return domain.Entry{}, errors.New("connection refused")
	}
	entry := domain.Entry{ID: uuid.New(), UserID: userID, Content: content, Timestamp: ts}
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *stubEntryRepo) GetEntry(_ context.Context, entryID uuid.UUID) (domain.Entry, error) {
	entry, ok := s.entries[entryID]
	if !ok {
		return domain.Entry{}, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (s *stubEntryRepo) ListEntries(_ context.Context, userID uuid.UUID, limit, offset int, _ domain.SortOrder) ([]domain.Entry, error) {
	if s.failList {
		return nil, errors.New("connection refused")
	}
	var out []domain.Entry
	for _, entry := range s.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubEntryRepo) CountEntries(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, entry := range s.entries {
		if entry.UserID == userID {
			count++
		}
	}
	return count, nil
}

type stubInsightRepo struct {
	insights map[uuid.UUID]domain.Insight
	failSave bool
	failGet  bool
}

func newStubInsightRepo() *stubInsightRepo {
	return &stubInsightRepo{insights: make(map[uuid.UUID]domain.Insight)}
}

func (s *stubInsightRepo) SaveInsight(_ context.Context, insight domain.Insight) error {
	if s.failSave {
		return errors.New("write failed")
	}
	s.insights[insight.EntryID] = insight
	return nil
}

func (s *stubInsightRepo) GetInsight(_ context.Context, entryID uuid.UUID) (domain.Insight, error) {
	if s.failGet {
		return domain.Insight{}, errors.New("read failed")
	}
	insight, ok := s.insights[entryID]
	if !ok {
		return domain.Insight{}, domain.ErrInsightNotFound
	}
	return insight, nil
}

type stubAnalyzer struct {
	analysis domain.Analysis
	err      error
	calls    int
}

func (s *stubAnalyzer) Analyze(context.Context, string) (domain.Analysis, error) {
	s.calls++
	if s.err != nil {
		return domain.Analysis{}, s.err
	}
	return s.analysis, nil
}

type stubQueue struct {
	jobs []domain.BackfillJob
	err  error
}

func (s *stubQueue) Enqueue(_ context.Context, job domain.BackfillJob) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubQueue) Pop(context.Context) (domain.BackfillJob, error) {
	return domain.BackfillJob{}, errors.New("not implemented")
}

func healthyAnalysis() domain.Analysis {
	return domain.Analysis{
		Sentiment: domain.Sentiment{Label: domain.SentimentPositive, Score: 0.92},
		Topics:    []string{"gratitude", "joy"},
	}
}

func newTestService(entries *stubEntryRepo, insights *stubInsightRepo, an *stubAnalyzer, q domain.BackfillQueue) *Service {
	return NewService(entries, insights, an, q, zerolog.Nop(), Options{})
}

func TestCreateEntryWithHealthyAnalyzer(t *testing.T) {
	entries := newStubEntryRepo()
	insights := newStubInsightRepo()
	an := &stubAnalyzer{analysis: healthyAnalysis()}
	service := newTestService(entries, insights, an, nil)

	userID := uuid.New()
	content := "Today was a wonderful day filled with gratitude and joy!"
	result, err := service.CreateEntry(context.Background(), userID, content)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Entry.Content != content {
		t.Fatalf("текст записи изменился: %q", result.Entry.Content)
	}
	if result.Insight == nil {
		t.Fatalf("ожидали инсайт при здоровом анализаторе")
	}
	if result.Insight.Sentiment.Label != domain.SentimentPositive {
		t.Fatalf("ожидали метку POSITIVE, получили %s", result.Insight.Sentiment.Label)
	}
	if _, ok := insights.insights[result.Entry.ID]; !ok {
		t.Fatalf("инсайт не сохранён в хранилище")
	}
}

func TestCreateEntryGeneratesUniqueIDs(t *testing.T) {
	entries := newStubEntryRepo()
	service := newTestService(entries, newStubInsightRepo(), &stubAnalyzer{analysis: healthyAnalysis()}, nil)

	userID := uuid.New()
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 10; i++ {
		result, err := service.CreateEntry(context.Background(), userID, "запись")
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if seen[result.Entry.ID] {
			t.Fatalf("идентификатор %s повторился", result.Entry.ID)
		}
		seen[result.Entry.ID] = true
	}
}

func TestCreateEntryValidation(t *testing.T) {
	service := newTestService(newStubEntryRepo(), newStubInsightRepo(), &stubAnalyzer{}, nil)

	if _, err := service.CreateEntry(context.Background(), uuid.New(), "   "); !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("ожидали ErrEmptyContent, получили %v", err)
	}
	if _, err := service.CreateEntry(context.Background(), uuid.Nil, "текст"); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("ожидали ErrMissingUser, получили %v", err)
	}
}

func TestCreateEntrySurvivesAnalyzerFailure(t *testing.T) {
	entries := newStubEntryRepo()
	insights := newStubInsightRepo()
	an := &stubAnalyzer{err: domain.NewAnalysisError(domain.AnalysisTimeout, errors.New("deadline exceeded"))}
	q := &stubQueue{}
	service := newTestService(entries, insights, an, q)

	result, err := service.CreateEntry(context.Background(), uuid.New(), "тяжёлый день")
	if err != nil {
		t.Fatalf("создание записи не должно падать из-за анализа: %v", err)
	}
	if result.Insight != nil {
		t.Fatalf("ожидали отсутствие инсайта")
	}
	if len(insights.insights) != 0 {
		t.Fatalf("инсайт не должен был сохраниться")
	}

	// Запись должна остаться читаемой.
	got, err := service.GetEntry(context.Background(), result.Entry.ID)
	if err != nil {
		t.Fatalf("запись должна существовать: %v", err)
	}
	if got.Entry.Content != "тяжёлый день" {
		t.Fatalf("содержимое записи изменилось: %q", got.Entry.Content)
	}
	if got.Insight != nil {
		t.Fatalf("инсайта быть не должно")
	}
	if len(q.jobs) != 1 || q.jobs[0].EntryID != result.Entry.ID {
		t.Fatalf("ожидали одну задачу backfill для записи")
	}
}

func TestCreateEntrySurvivesInsightStoreFailure(t *testing.T) {
	entries := newStubEntryRepo()
	insights := newStubInsightRepo()
	insights.failSave = true
	q := &stubQueue{}
	service := newTestService(entries, insights, &stubAnalyzer{analysis: healthyAnalysis()}, q)

	result, err := service.CreateEntry(context.Background(), uuid.New(), "запись")
	if err != nil {
		t.Fatalf("создание записи не должно падать из-за хранилища инсайтов: %v", err)
	}
	if result.Insight != nil {
		t.Fatalf("ожидали отсутствие инсайта при отказе записи")
	}
	if len(q.jobs) != 1 {
		t.Fatalf("ожидали задачу backfill")
	}
}

func TestCreateEntryAbortsOnEntryStoreFailure(t *testing.T) {
	entries := newStubEntryRepo()
	entries.failCreate = true
	insights := newStubInsightRepo()
	an := &stubAnalyzer{analysis: healthyAnalysis()}
	service := newTestService(entries, insights, an, nil)

	_, err := service.CreateEntry(context.Background(), uuid.New(), "запись")
	if err == nil {
		t.Fatalf("ожидали ошибку хранилища")
	}
	if an.calls != 0 {
		t.Fatalf("анализ не должен запускаться без сохранённой записи")
	}
	if len(insights.insights) != 0 {
		t.Fatalf("инсайт-сирота недопустим")
	}
}

func TestCreateEntryQueueFailureIsNotFatal(t *testing.T) {
	entries := newStubEntryRepo()
	an := &stubAnalyzer{err: domain.NewAnalysisError(domain.AnalysisRemote, errors.New("status 502"))}
	q := &stubQueue{err: errors.New("queue down")}
	service := newTestService(entries, newStubInsightRepo(), an, q)

	result, err := service.CreateEntry(context.Background(), uuid.New(), "запись")
	if err != nil {
		t.Fatalf("отказ очереди не должен ломать создание: %v", err)
	}
	if result.Insight != nil {
		t.Fatalf("инсайта быть не должно")
	}
}

func TestGetEntryNotFound(t *testing.T) {
	service := newTestService(newStubEntryRepo(), newStubInsightRepo(), &stubAnalyzer{}, nil)

	_, err := service.GetEntry(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("ожидали ErrEntryNotFound, получили %v", err)
	}
}

func TestGetEntryRepeatable(t *testing.T) {
	entries := newStubEntryRepo()
	service := newTestService(entries, newStubInsightRepo(), &stubAnalyzer{analysis: healthyAnalysis()}, nil)

	created, err := service.CreateEntry(context.Background(), uuid.New(), "одно и то же")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := service.GetEntry(context.Background(), created.Entry.ID)
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
		if got.Entry.Content != created.Entry.Content || !got.Entry.Timestamp.Equal(created.Entry.Timestamp) {
			t.Fatalf("повторное чтение вернуло другую запись")
		}
	}
}

func TestGetEntryInsightReadFailureDegrades(t *testing.T) {
	entries := newStubEntryRepo()
	insights := newStubInsightRepo()
	service := newTestService(entries, insights, &stubAnalyzer{analysis: healthyAnalysis()}, nil)

	created, err := service.CreateEntry(context.Background(), uuid.New(), "запись")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	insights.failGet = true
	got, err := service.GetEntry(context.Background(), created.Entry.ID)
	if err != nil {
		t.Fatalf("ошибка чтения инсайта не должна ломать GetEntry: %v", err)
	}
	if got.Insight != nil {
		t.Fatalf("при отказе хранилища инсайт должен отсутствовать")
	}
}

func TestListEntriesPaging(t *testing.T) {
	entries := newStubEntryRepo()
	service := newTestService(entries, newStubInsightRepo(), &stubAnalyzer{analysis: healthyAnalysis()}, nil)

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		if _, err := service.CreateEntry(context.Background(), userID, "запись"); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}

	page, total, err := service.ListEntries(context.Background(), userID, 1, 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if total != 5 {
		t.Fatalf("ожидали total=5, получили %d", total)
	}
	if len(page) != 3 {
		t.Fatalf("ожидали 3 записи на странице, получили %d", len(page))
	}

	page2, _, err := service.ListEntries(context.Background(), userID, 2, 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("ожидали 2 записи на второй странице, получили %d", len(page2))
	}

	if _, _, err := service.ListEntries(context.Background(), uuid.Nil, 1, 3); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("ожидали ErrMissingUser, получили %v", err)
	}
}

func TestBackfillEntry(t *testing.T) {
	entries := newStubEntryRepo()
	insights := newStubInsightRepo()
	an := &stubAnalyzer{err: domain.NewAnalysisError(domain.AnalysisRemote, errors.New("status 502"))}
	q := &stubQueue{}
	service := newTestService(entries, insights, an, q)

	created, err := service.CreateEntry(context.Background(), uuid.New(), "запись")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("ожидали задачу backfill")
	}

	// Провайдер восстановился — воркер дорабатывает инсайт.
	an.err = nil
	an.analysis = healthyAnalysis()
	if err := service.BackfillEntry(context.Background(), q.jobs[0]); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := insights.insights[created.Entry.ID]; !ok {
		t.Fatalf("инсайт должен появиться после backfill")
	}

	// Повторная задача по той же записи пропускается.
	callsBefore := an.calls
	if err := service.BackfillEntry(context.Background(), q.jobs[0]); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if an.calls != callsBefore {
		t.Fatalf("анализ не должен повторяться при существующем инсайте")
	}
}

func TestBackfillEntryOrphanJob(t *testing.T) {
	service := newTestService(newStubEntryRepo(), newStubInsightRepo(), &stubAnalyzer{}, nil)

	job := domain.BackfillJob{EntryID: uuid.New(), UserID: uuid.New()}
	if err := service.BackfillEntry(context.Background(), job); err != nil {
		t.Fatalf("задача по удалённой записи должна пропускаться: %v", err)
	}
}
