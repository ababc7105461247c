package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/knoguchi/recommender/internal/repository"
)

// EvaluationRunRepo implements repository.EvaluationRunRepository
type EvaluationRunRepo struct {
	db *DB
}

// NewEvaluationRunRepo creates a new evaluation run repository
func NewEvaluationRunRepo(db *DB) *EvaluationRunRepo {
	return &EvaluationRunRepo{db: db}
}

// Create stores the run and its results in one transaction
func (r *EvaluationRunRepo) Create(ctx context.Context, run *repository.EvaluationRun) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO evaluation_runs (id, dataset, api_url, k, recall, hits, processed, skipped, failed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.Exec(ctx, query,
		run.ID, run.Dataset, run.APIURL, run.K, run.Recall, run.Hits,
		run.Processed, run.Skipped, run.Failed, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create evaluation run: %w", err)
	}

	if len(run.Results) > 0 {
		batch := &pgx.Batch{}
		for _, res := range run.Results {
			urls := res.URLs
			if urls == nil {
				urls = []string{}
			}
			batch.Queue(`
				INSERT INTO evaluation_results (run_id, row_number, query, expected_slug, status, top_slug, urls, error_message)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, run.ID, res.Row, res.Query, res.ExpectedSlug, res.Status, res.TopSlug, urls, res.ErrorMessage)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert evaluation results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit evaluation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run and its results
func (r *EvaluationRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.EvaluationRun, error) {
	query := `
		SELECT id, dataset, api_url, k, recall, hits, processed, skipped, failed, started_at, completed_at
		FROM evaluation_runs
		WHERE id = $1
	`
	var run repository.EvaluationRun
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Dataset, &run.APIURL, &run.K, &run.Recall, &run.Hits,
		&run.Processed, &run.Skipped, &run.Failed, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation run: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT row_number, query, expected_slug, status, top_slug, urls, error_message
		FROM evaluation_results
		WHERE run_id = $1
		ORDER BY row_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res repository.EvaluationResult
		if err := rows.Scan(&res.Row, &res.Query, &res.ExpectedSlug, &res.Status,
			&res.TopSlug, &res.URLs, &res.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation result: %w", err)
		}
		run.Results = append(run.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read evaluation results: %w", err)
	}

	return &run, nil
}

// List retrieves run summaries with pagination
func (r *EvaluationRunRepo) List(ctx context.Context, limit, offset int) ([]*repository.EvaluationRun, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM evaluation_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count evaluation runs: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, dataset, api_url, k, recall, hits, processed, skipped, failed, started_at, completed_at
		FROM evaluation_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []*repository.EvaluationRun
	for rows.Next() {
		var run repository.EvaluationRun
		if err := rows.Scan(&run.ID, &run.Dataset, &run.APIURL, &run.K, &run.Recall, &run.Hits,
			&run.Processed, &run.Skipped, &run.Failed, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan evaluation run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list evaluation runs: %w", err)
	}

	return runs, total, nil
}

// Ensure EvaluationRunRepo implements repository.EvaluationRunRepository.
var _ repository.EvaluationRunRepository = (*EvaluationRunRepo)(nil)
