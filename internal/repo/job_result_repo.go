package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Foreman/internal/domain"
)

const jobResultsSchema = `
	CREATE TABLE IF NOT EXISTS job_results (
		id          UUID PRIMARY KEY,
		handle      TEXT NOT NULL,
		function    TEXT NOT NULL,
		unique_id   TEXT,
		client_id   TEXT,
		server      TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		result      BYTEA,
		error       TEXT,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS job_results_function_finished_idx
		ON job_results (function, finished_at DESC);
	CREATE INDEX IF NOT EXISTS job_results_handle_idx
		ON job_results (handle);
`

// pgUniqueViolation — код ошибки PostgreSQL при нарушении уникальности.
const pgUniqueViolation = "23505"

// JobResultRepo — журнал исходов заданий. Реализует worker.Recorder.
type JobResultRepo struct {
	pool *pgxpool.Pool
}

// NewJobResultRepo создаёт новый JobResultRepo.
func NewJobResultRepo(pool *pgxpool.Pool) *JobResultRepo {
	return &JobResultRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *JobResultRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, jobResultsSchema); err != nil {
		return fmt.Errorf("ensure job_results schema: %w", err)
	}
	return nil
}

// Record сохраняет исход задания. Пустой ID заполняется новым UUID.
func (r *JobResultRepo) Record(ctx context.Context, res *domain.JobResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}
	if res.StartedAt.IsZero() {
		res.StartedAt = res.FinishedAt
	}

	query := `
		INSERT INTO job_results (id, handle, function, unique_id, client_id, server,
		                         outcome, result, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.Handle,
		res.Function,
		nullString(res.Unique),
		nullString(res.ClientID),
		res.Server,
		res.Outcome,
		res.Result,
		nullString(res.Error),
		res.StartedAt,
		res.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, res.ID)
		}
		return fmt.Errorf("insert job result: %w", err)
	}
	return nil
}

// GetLatestByHandle возвращает последнюю запись для handle задания.
func (r *JobResultRepo) GetLatestByHandle(ctx context.Context, handle string) (*domain.JobResult, error) {
	query := `
		SELECT id, handle, function, unique_id, client_id, server,
		       outcome, result, error, started_at, finished_at
		FROM job_results
		WHERE handle = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`
	return r.scanJobResult(r.pool.QueryRow(ctx, query, handle))
}

// ListRecent возвращает последние записи, новые первыми.
// Пустой function — все функции. limit <= 0 — 50.
func (r *JobResultRepo) ListRecent(ctx context.Context, function string, limit int) ([]domain.JobResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, handle, function, unique_id, client_id, server,
		       outcome, result, error, started_at, finished_at
		FROM job_results
		WHERE ($1::text IS NULL OR function = $1)
		ORDER BY finished_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullString(function), limit)
	if err != nil {
		return nil, fmt.Errorf("query job results: %w", err)
	}
	defer rows.Close()

	var results []domain.JobResult
	for rows.Next() {
		res, err := r.scanJobResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job results: %w", err)
	}

	return results, nil
}

// scanJobResult сканирует одну строку в JobResult.
func (r *JobResultRepo) scanJobResult(row pgx.Row) (*domain.JobResult, error) {
	var res domain.JobResult
	var unique, clientID, resError *string

	err := row.Scan(
		&res.ID,
		&res.Handle,
		&res.Function,
		&unique,
		&clientID,
		&res.Server,
		&res.Outcome,
		&res.Result,
		&resError,
		&res.StartedAt,
		&res.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job result: %w", err)
	}

	if unique != nil {
		res.Unique = *unique
	}
	if clientID != nil {
		res.ClientID = *clientID
	}
	if resError != nil {
		res.Error = *resError
	}

	return &res, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
