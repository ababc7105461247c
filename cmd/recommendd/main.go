// Command recommendd serves and evaluates assessment recommendations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "recommendd",
	Short: "Assessment recommendation service",
	Long: "recommendd recommends assessments for free-text job queries using semantic retrieval " +
		"and LLM reranking, builds the retrieval index, and measures recall against a ground-truth dataset.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: JSON on stdout unless format is "text".
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
