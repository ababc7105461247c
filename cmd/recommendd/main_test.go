package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knoguchi/recommender/internal/evaluation"
	"github.com/knoguchi/recommender/internal/slug"
)

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger := newLogger("debug", "text")
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = newLogger("warn", "json")
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = newLogger("nonsense", "json")
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestPrintReport(t *testing.T) {
	report := evaluation.Report{
		K:         10,
		Recall:    0.5,
		Hits:      1,
		Processed: 2,
		Skipped:   1,
		Results: []evaluation.Result{
			{Row: 0, Status: evaluation.StatusFound, URLs: []string{"https://x/view/java-8/"}},
			{Row: 1, Status: evaluation.StatusMissed, ExpectedSlug: "python", TopSlug: "java-8", URLs: []string{"https://x/products/product-catalog/view/Java-8%20(New)/"}},
			{Row: 3, Status: evaluation.StatusMissed, ExpectedSlug: "sql"},
			{Row: 2, Status: evaluation.StatusSkipped, Error: "empty query"},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Query 0: Found  (recs=1)")
	assert.Contains(t, out, "Query 1: Missed  (recs=1)")
	assert.Contains(t, out, "Expected name: python")
	assert.Contains(t, out, "Got Top name:  java-8")
	assert.Contains(t, out, "1. raw=`https://x/products/product-catalog/view/Java-8%20(New)/`  name=`"+
		slug.Normalize("https://x/products/product-catalog/view/Java-8%20(New)/")+"`")
	assert.Contains(t, out, "Query 3: Missed  (recs=0)")
	assert.Contains(t, out, "Got Top name:  None")
	assert.Contains(t, out, "Skipping row 2: empty query")
	assert.Contains(t, out, report.Summary())
}
