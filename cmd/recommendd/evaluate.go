package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/evaluation"
	"github.com/knoguchi/recommender/internal/repository/postgres"
	"github.com/knoguchi/recommender/internal/slug"
)

var (
	evalDataset     string
	evalAPIURL      string
	evalTimeout     time.Duration
	evalK           int
	evalConcurrency int
	evalRPS         float64
	evalNoPersist   bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure recall@K of a running recommend endpoint",
	Long: "Send every query in a ground-truth CSV (Query,Assessment_url) to the recommend endpoint and " +
		"report the fraction whose expected assessment appears in the top K results. The run is stored " +
		"in PostgreSQL when DATABASE_URL is set.",
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalDataset, "dataset", "", "Path to ground-truth CSV (default: DATASET_PATH)")
	evaluateCmd.Flags().StringVar(&evalAPIURL, "api-url", "", "Recommend endpoint (default: RECOMMEND_API_URL)")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", evaluation.DefaultTimeout, "Timeout per recommend call")
	evaluateCmd.Flags().IntVar(&evalK, "k", evaluation.DefaultK, "Recall cutoff")
	evaluateCmd.Flags().IntVar(&evalConcurrency, "concurrency", 1, "Queries evaluated in parallel")
	evaluateCmd.Flags().Float64Var(&evalRPS, "rps", 0, "Maximum requests per second (0 = unlimited)")
	evaluateCmd.Flags().BoolVar(&evalNoPersist, "no-persist", false, "Do not store the run even if DATABASE_URL is set")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dataset := cfg.DatasetPath
	if evalDataset != "" {
		dataset = evalDataset
	}
	apiURL := cfg.RecommendAPIURL
	if evalAPIURL != "" {
		apiURL = evalAPIURL
	}

	records, err := evaluation.LoadDataset(dataset)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loaded %d test queries from %s\n", len(records), dataset)

	harness := evaluation.NewHarness(
		evaluation.NewHTTPSource(apiURL, evalTimeout),
		evaluation.WithK(evalK),
		evaluation.WithConcurrency(evalConcurrency),
		evaluation.WithRateLimit(evalRPS),
		evaluation.WithLogger(slog.Default()),
	)
	report := harness.Evaluate(ctx, records)

	printReport(out, report)

	if cfg.DatabaseURL != "" && !evalNoPersist {
		if err := persistReport(ctx, cfg.DatabaseURL, report, dataset, apiURL); err != nil {
			// the score is already printed; storage problems do not fail the run
			slog.Error("failed to store evaluation run", "run_id", report.RunID, "error", err)
		}
	}
	return nil
}

func printReport(w io.Writer, report evaluation.Report) {
	for _, res := range report.Results {
		switch res.Status {
		case evaluation.StatusFound:
			fmt.Fprintf(w, "Query %d: Found  (recs=%d)\n", res.Row, len(res.URLs))
		case evaluation.StatusMissed:
			top := res.TopSlug
			if top == "" {
				top = "None"
			}
			fmt.Fprintf(w, "Query %d: Missed  (recs=%d)\n", res.Row, len(res.URLs))
			fmt.Fprintf(w, "   Expected name: %s\n", res.ExpectedSlug)
			fmt.Fprintf(w, "   Got Top name:  %s\n", top)
			for i, u := range res.URLs {
				fmt.Fprintf(w, "    %d. raw=`%s`  name=`%s`\n", i+1, u, slug.Normalize(u))
			}
		case evaluation.StatusSkipped:
			fmt.Fprintf(w, "Skipping row %d: %s\n", res.Row, res.Error)
		case evaluation.StatusFailed:
			fmt.Fprintf(w, "Request error for query %d: %s\n", res.Row, res.Error)
		}
	}
	fmt.Fprintln(w, report.Summary())
}

func persistReport(ctx context.Context, databaseURL string, report evaluation.Report, dataset, apiURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := postgres.NewEvaluationRunRepo(db).Create(ctx, report.Run(dataset, apiURL)); err != nil {
		return err
	}
	slog.Info("stored evaluation run", "run_id", report.RunID)
	return nil
}
