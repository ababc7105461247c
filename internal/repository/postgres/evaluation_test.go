package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/recommender/internal/repository"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestEvaluationRunRepo_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewEvaluationRunRepo(db)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &repository.EvaluationRun{
		ID:          uuid.New(),
		Dataset:     "train.csv",
		APIURL:      "http://127.0.0.1:8001/recommend",
		K:           10,
		Recall:      0.5,
		Hits:        1,
		Processed:   2,
		Skipped:     1,
		StartedAt:   started,
		CompletedAt: started.Add(3 * time.Second),
		Results: []repository.EvaluationResult{
			{Row: 1, Query: "java", ExpectedSlug: "java-8", Status: "found", TopSlug: "java-8", URLs: []string{"https://e.com/java-8/"}},
			{Row: 2, Query: "sql", ExpectedSlug: "sql", Status: "missed", TopSlug: "python"},
			{Row: 3, Status: "skipped", ErrorMessage: "missing query or target"},
		},
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM evaluation_runs WHERE id = $1`, run.ID)
	})

	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Recall, got.Recall)
	assert.Equal(t, run.Processed, got.Processed)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Results, 3)
	assert.Equal(t, []string{"https://e.com/java-8/"}, got.Results[0].URLs)
	assert.Empty(t, got.Results[1].URLs)
	assert.Equal(t, "missing query or target", got.Results[2].ErrorMessage)

	runs, total, err := repo.List(ctx, 50, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, runs)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
