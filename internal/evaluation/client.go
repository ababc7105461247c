package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the recommend endpoint evaluated by default.
	DefaultAPIURL = "http://127.0.0.1:8001/recommend"

	// DefaultTimeout bounds one recommend call.
	DefaultTimeout = 50 * time.Second
)

// ErrBadStatus is returned when the recommend endpoint answers with a
// non-200 status.
var ErrBadStatus = errors.New("unexpected status from recommend endpoint")

// Source produces ranked recommendation URLs for a query.
type Source interface {
	Recommend(ctx context.Context, query string) ([]string, error)
}

// HTTPSource calls a running recommend endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for the endpoint at url. Each call is
// bounded by timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		url = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type recommendRequest struct {
	Query string `json:"query"`
}

type recommendResponse struct {
	RecommendedAssessments []struct {
		URL string `json:"url"`
	} `json:"recommended_assessments"`
}

// Recommend posts query and returns the recommended URLs in rank order.
func (s *HTTPSource) Recommend(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(recommendRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	urls := make([]string, 0, len(parsed.RecommendedAssessments))
	for _, a := range parsed.RecommendedAssessments {
		urls = append(urls, strings.TrimSpace(a.URL))
	}
	return urls, nil
}

var _ Source = (*HTTPSource)(nil)
