package task

import (
	"context"
	"database/sql"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	MarkRunning(ctx context.Context, id string) error
	SaveResult(ctx context.Context, id, status string, result []byte) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, t *Task) error {
	query := `INSERT INTO ingest_tasks (url, status) VALUES ($1, $2) RETURNING id, created_at`
	t.Status = StatusQueued
	return r.db.QueryRowContext(ctx, query, t.URL, t.Status).Scan(&t.ID, &t.CreatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Task, error) {
	t := &Task{}
	var result []byte
	query := `SELECT id, url, status, COALESCE(result, 'null'), created_at FROM ingest_tasks WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.URL, &t.Status, &result, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if string(result) != "null" {
		t.Result = result
	}
	return t, nil
}

func (r *PostgresRepo) MarkRunning(ctx context.Context, id string) error {
	query := `UPDATE ingest_tasks SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, StatusRunning, id)
	return err
}

func (r *PostgresRepo) SaveResult(ctx context.Context, id, status string, result []byte) error {
	query := `UPDATE ingest_tasks SET status = $1, result = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, result, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ingest_tasks`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
