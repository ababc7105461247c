package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/repository"
	"github.com/knoguchi/recommender/internal/repository/postgres"
)

var (
	runsLimit  int
	runsOffset int
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List stored evaluation runs, or show one run in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	runsCmd.Flags().IntVar(&runsOffset, "offset", 0, "Runs to skip")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	var id uuid.UUID
	if len(args) == 1 {
		parsed, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		id = parsed
	}

	ctx := cmd.Context()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	repo := postgres.NewEvaluationRunRepo(db)
	out := cmd.OutOrStdout()

	if id != uuid.Nil {
		run, err := repo.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("run %s not found", id)
		}
		if err != nil {
			return err
		}
		return printRun(out, run)
	}

	runs, total, err := repo.List(ctx, runsLimit, runsOffset)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tK\tRECALL\tHITS\tPROCESSED\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.K, r.Recall, r.Hits, r.Processed, r.Skipped, r.Failed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d runs\n", len(runs), total)
	return nil
}

func printRun(w io.Writer, run *repository.EvaluationRun) error {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  dataset:  %s\n", run.Dataset)
	fmt.Fprintf(w, "  endpoint: %s\n", run.APIURL)
	fmt.Fprintf(w, "  started:  %s (%s)\n", run.StartedAt.Format(time.RFC3339), run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  recall@%d: %.2f (%d/%d, skipped %d, failed %d)\n\n",
		run.K, run.Recall, run.Hits, run.Processed, run.Skipped, run.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tEXPECTED\tTOP")
	for _, res := range run.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", res.Row, res.Status, res.ExpectedSlug, res.TopSlug)
	}
	return tw.Flush()
}
