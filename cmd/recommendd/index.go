package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/ingestion"
)

var (
	indexCorpus    string
	indexBatchSize int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the retrieval index from the corpus CSV",
	Long: "Drop the configured collection and re-embed every assessment in the corpus CSV " +
		"(name,url,description,duration,test_type,remote_support,adaptive_support).",
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCorpus, "corpus", "", "Path to corpus CSV (default: CORPUS_PATH)")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", ingestion.DefaultBatchSize, "Documents per upsert")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	path := cfg.CorpusPath
	if indexCorpus != "" {
		path = indexCorpus
	}

	assessments, err := catalog.LoadCorpus(path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	slog.Info("loaded corpus", "path", path, "assessments", len(assessments))

	deps, err := buildComponents(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer deps.Close()

	pipeline := ingestion.NewPipeline(deps.index, ingestion.PipelineConfig{
		BatchSize: indexBatchSize,
		Logger:    slog.Default(),
	})
	stats, err := pipeline.Rebuild(cmd.Context(), assessments)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d assessments into %q in %s\n",
		stats.Indexed, stats.Assessments, cfg.CollectionName, stats.ProcessingTime.Round(time.Millisecond))
	return nil
}
