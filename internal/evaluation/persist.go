package evaluation

import (
	"github.com/knoguchi/recommender/internal/repository"
)

// Run converts the report into its persisted form.
func (r Report) Run(dataset, apiURL string) *repository.EvaluationRun {
	run := &repository.EvaluationRun{
		ID:          r.RunID,
		Dataset:     dataset,
		APIURL:      apiURL,
		K:           r.K,
		Recall:      r.Recall,
		Hits:        r.Hits,
		Processed:   r.Processed,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		StartedAt:   r.StartedAt,
		CompletedAt: r.StartedAt.Add(r.Duration),
		Results:     make([]repository.EvaluationResult, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		run.Results = append(run.Results, repository.EvaluationResult{
			Row:          res.Row,
			Query:        res.Query,
			ExpectedSlug: res.ExpectedSlug,
			Status:       string(res.Status),
			TopSlug:      res.TopSlug,
			URLs:         res.URLs,
			ErrorMessage: res.Error,
		})
	}
	return run
}
