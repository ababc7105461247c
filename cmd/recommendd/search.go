package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/metrics"
)

var (
	searchType     string
	searchLimit    int
	searchNoRerank bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the recommendation pipeline for one query",
	Long:  "Run retrieval, type filtering and reranking in-process and print the recommendations.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Keep only this test type (e.g. \"Knowledge & Skills\")")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum recommendations (1-10)")
	searchCmd.Flags().BoolVar(&searchNoRerank, "no-rerank", false, "Skip LLM reranking")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	deps, err := buildComponents(ctx, cfg, !searchNoRerank)
	if err != nil {
		return err
	}
	defer deps.Close()

	svc := newRecommendService(cfg, deps, metrics.New(prometheus.NewRegistry()))
	results := svc.Recommend(ctx, query, searchType, searchLimit)

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No recommendations.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tDURATION\tURL")
	for i, c := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, c.Name, c.TestType, c.Duration, c.URL)
	}
	return tw.Flush()
}
