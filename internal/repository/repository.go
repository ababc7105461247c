// Package repository defines domain models and data access interfaces for
// evaluation runs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// EvaluationRun is the persisted summary of one evaluation.
type EvaluationRun struct {
	ID          uuid.UUID
	Dataset     string
	APIURL      string
	K           int
	Recall      float64
	Hits        int
	Processed   int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
	Results     []EvaluationResult
}

// EvaluationResult is the outcome of one dataset row within a run.
type EvaluationResult struct {
	Row          int
	Query        string
	ExpectedSlug string
	Status       string // found, missed, skipped, failed
	TopSlug      string
	URLs         []string
	ErrorMessage string
}

// EvaluationRunRepository defines operations for evaluation run persistence
type EvaluationRunRepository interface {
	// Create stores a run together with its results.
	Create(ctx context.Context, run *EvaluationRun) error

	// GetByID returns a run with its results, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*EvaluationRun, error)

	// List returns run summaries, newest first, without results.
	List(ctx context.Context, limit, offset int) ([]*EvaluationRun, int, error)
}
