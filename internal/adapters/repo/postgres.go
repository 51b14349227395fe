package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aura-journal/internal/domain"
	"aura-journal/internal/infra/metrics"
)

// Postgres реализует domain.EntryRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.EntryRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// CreateEntry сохраняет новую запись и возвращает её целиком.
// Идентификатор генерируется здесь, время передаёт оркестратор.
func (p *Postgres) CreateEntry(ctx context.Context, userID uuid.UUID, content string, ts time.Time) (domain.Entry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	id := uuid.New()
	var entry domain.Entry
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO journal_entries (entry_id, user_id, content, ts)
VALUES ($1, $2, $3, $4)
RETURNING entry_id, user_id, content, ts
`, id, userID, content, ts).Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.Timestamp)
	metrics.ObserveNetworkRequest("postgres", "entries_insert", "journal_entries", start, err)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

// GetEntry возвращает запись по идентификатору.
func (p *Postgres) GetEntry(ctx context.Context, entryID uuid.UUID) (domain.Entry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var entry domain.Entry
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT entry_id, user_id, content, ts
FROM journal_entries
WHERE entry_id = $1
`, entryID).Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.Timestamp)
	metrics.ObserveNetworkRequest("postgres", "entries_get", "journal_entries", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Entry{}, domain.ErrEntryNotFound
		}
		return domain.Entry{}, fmt.Errorf("select entry: %w", err)
	}
	return entry, nil
}

// ListEntries возвращает страницу записей пользователя, отсортированных по времени.
func (p *Postgres) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int, order domain.SortOrder) ([]domain.Entry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	orderSQL := "DESC"
	if order == domain.SortOldestFirst {
		orderSQL = "ASC"
	}

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT entry_id, user_id, content, ts
FROM journal_entries
WHERE user_id = $1
ORDER BY ts `+orderSQL+`
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	metrics.ObserveNetworkRequest("postgres", "entries_list", "journal_entries", start, err)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var entry domain.Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// CountEntries возвращает количество записей пользователя.
func (p *Postgres) CountEntries(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT count(*) FROM journal_entries WHERE user_id = $1
`, userID).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "entries_count", "journal_entries", start, err)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}
