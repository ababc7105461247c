package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/llm"
	"github.com/knoguchi/recommender/internal/metrics"
)

const (
	// DefaultTimeout bounds the LLM completion.
	DefaultTimeout = 30 * time.Second

	// DescriptionBudget is the number of description runes shown per candidate.
	DescriptionBudget = 500
)

var (
	errNoArray = errors.New("response contains no JSON array")
	errNoValid = errors.New("response contains no valid index")
)

// LLMReranker asks an LLM to select the best candidates by index.
type LLMReranker struct {
	llmClient llm.LLM
	model     string
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...Option) *LLMReranker {
	return newLLMReranker(llmClient, opts...)
}

func newLLMReranker(llmClient llm.LLM, opts ...Option) *LLMReranker {
	r := &LLMReranker{
		llmClient: llmClient,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank selects up to targetSize candidates in the model's order. On any
// failure it returns candidates[:targetSize].
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates catalog.RankedList, targetSize int) (out catalog.RankedList) {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if len(candidates) == 0 {
		return catalog.RankedList{}
	}
	if r.llmClient == nil {
		r.metrics.RerankFellBack(metrics.FallbackUnconfigured)
		return identity(candidates, targetSize)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("reranker panicked, using retrieval order", "panic", fmt.Sprint(p))
			r.metrics.RerankFellBack(metrics.FallbackLLMError)
			out = identity(candidates, targetSize)
		}
	}()

	start := time.Now()
	response, err := r.generate(ctx, query, candidates, targetSize)
	if err != nil {
		r.logger.Warn("LLM rerank failed, using retrieval order",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		r.metrics.RerankFellBack(metrics.FallbackLLMError)
		return identity(candidates, targetSize)
	}

	selected, err := parseIndices(response, len(candidates))
	if err != nil {
		reason := metrics.FallbackParse
		if errors.Is(err, errNoValid) {
			reason = metrics.FallbackNoValid
		}
		r.logger.Warn("unusable LLM selection, using retrieval order",
			"error", err,
			"reason", reason,
			"response", truncate(response, 200),
		)
		r.metrics.RerankFellBack(reason)
		return identity(candidates, targetSize)
	}

	if len(selected) > targetSize {
		selected = selected[:targetSize]
	}

	out = make(catalog.RankedList, 0, targetSize)
	for _, i := range selected {
		out = append(out, candidates[i])
	}

	if floor := min(MinResults, targetSize, len(candidates)); len(out) < floor {
		out = topUp(out, candidates, selected, floor)
		r.logger.Info("LLM selection topped up from retrieval order",
			"selected", len(selected),
			"returned", len(out),
		)
		r.metrics.RerankFellBack(metrics.FallbackTopUp)
	}

	r.logger.Debug("rerank complete",
		"candidates", len(candidates),
		"selected", len(selected),
		"returned", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (r *LLMReranker) generate(ctx context.Context, query string, candidates catalog.RankedList, targetSize int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.llmClient.Generate(ctx, buildPrompt(query, candidates, targetSize), llm.GenerateOptions{
		Model: r.model,
	})
}

// topUp appends unselected candidates in retrieval order until out reaches floor.
func topUp(out, candidates catalog.RankedList, selected []int, floor int) catalog.RankedList {
	taken := make(map[int]struct{}, len(selected))
	for _, i := range selected {
		taken[i] = struct{}{}
	}
	for i := 0; i < len(candidates) && len(out) < floor; i++ {
		if _, ok := taken[i]; ok {
			continue
		}
		out = append(out, candidates[i])
	}
	return out
}

func buildPrompt(query string, candidates catalog.RankedList, targetSize int) string {
	var sb strings.Builder

	sb.WriteString("You are an expert assessment recruiter.\n\n")
	fmt.Fprintf(&sb, "USER QUERY: %q\n\n", query)
	sb.WriteString("TASK:\n")
	fmt.Fprintf(&sb, "Select the best %d assessments from the CANDIDATE LIST below that match the user query.\n", targetSize)
	sb.WriteString("Take as many relevant assessments as possible.\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("1. BALANCE: If the query asks for both hard skills (e.g. coding, analysis) and soft skills ")
	sb.WriteString("(e.g. leadership, personality), you MUST pick a mix of 'Knowledge & Skills' and ")
	sb.WriteString("'Personality & Behavior'/'Competencies' assessments.\n")
	sb.WriteString("2. ACCURACY: Only choose assessments that are genuinely relevant to the query.\n")
	sb.WriteString("3. OUTPUT FORMAT: Return ONLY a JSON array of the integer IDs in brackets of your ")
	sb.WriteString("selected choices, best first (e.g. [0, 2, 4]). Do not write any other text.\n\n")
	sb.WriteString("CANDIDATE LIST:\n")

	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d] Assessment Name: %s\n", i, c.Name)
		fmt.Fprintf(&sb, "    Type: %s\n", c.TestType)
		fmt.Fprintf(&sb, "    Description: %s\n\n", truncate(c.Description, DescriptionBudget))
	}

	return sb.String()
}

// parseIndices extracts the JSON array from an LLM response and returns its
// valid indices, deduplicated, in response order.
func parseIndices(response string, n int) ([]int, error) {
	span, ok := arraySpan(response)
	if !ok {
		return nil, errNoArray
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(span)))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding index array: %w", err)
	}

	seen := make(map[int]struct{}, len(raw))
	indices := make([]int, 0, len(raw))
	for _, v := range raw {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		i64, err := num.Int64()
		if err != nil || i64 < 0 || i64 >= int64(n) {
			continue
		}
		i := int(i64)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		indices = append(indices, i)
	}

	if len(indices) == 0 {
		return nil, errNoValid
	}
	return indices, nil
}

// arraySpan returns the text from the first '[' to the last ']', after
// stripping markdown code fences.
func arraySpan(response string) (string, bool) {
	text := strings.TrimSpace(response)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
