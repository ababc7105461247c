package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/recommender/internal/catalog"
)

type fakeRecommender struct {
	query, typeFilter string
	limit             int
	calls             int
	result            catalog.RankedList
}

func (f *fakeRecommender) Recommend(_ context.Context, query, typeFilter string, limit int) catalog.RankedList {
	f.calls++
	f.query, f.typeFilter, f.limit = query, typeFilter, limit
	return f.result
}

func newTestServer(t *testing.T, rec Recommender, ready ReadinessFunc) http.Handler {
	t.Helper()
	s, err := NewHTTPServer(HTTPServerConfig{
		Recommender: rec,
		Ready:       ready,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	})
	require.NoError(t, err)
	return s.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHTTPServer_RequiresRecommender(t *testing.T) {
	_, err := NewHTTPServer(HTTPServerConfig{})
	assert.Error(t, err)
}

func TestRecommend_OK(t *testing.T) {
	rec := &fakeRecommender{result: catalog.RankedList{
		{Assessment: catalog.Assessment{
			ID:              "7",
			Name:            "Java 8 (New)",
			URL:             "https://example.com/products/java-8-new/",
			TestType:        "['Knowledge & Skills']",
			Duration:        "18",
			RemoteSupport:   "Yes",
			AdaptiveSupport: "No",
		}},
	}}
	h := newTestServer(t, rec, nil)

	resp := do(h, http.MethodPost, "/recommend", `{"query":"  java dev ","test_type":"Knowledge & Skills","limit":3}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	assert.Equal(t, "java dev", rec.query)
	assert.Equal(t, "Knowledge & Skills", rec.typeFilter)
	assert.Equal(t, 3, rec.limit)

	var body map[string][]map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	items := body["recommended_assessments"]
	require.Len(t, items, 1)
	assert.Equal(t, "Java 8 (New)", items[0]["name"])
	assert.Equal(t, "https://example.com/products/java-8-new/", items[0]["url"])
	assert.Equal(t, "Yes", items[0]["remote_support"])
	assert.NotContains(t, items[0], "ID")
}

func TestRecommend_EmptyResultIsOK(t *testing.T) {
	h := newTestServer(t, &fakeRecommender{}, nil)

	resp := do(h, http.MethodPost, "/recommend", `{"query":"java"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"recommended_assessments":[]}`, resp.Body.String())
}

func TestRecommend_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `query=java`, "invalid JSON body"},
		{"missing query", `{"limit":2}`, "query is required"},
		{"blank query", `{"query":"   "}`, "query is required"},
		{"limit too big", `{"query":"java","limit":11}`, "limit must be between 0 and 10"},
		{"negative limit", `{"query":"java","limit":-1}`, "limit must be between 0 and 10"},
		{"limit wrong type", `{"query":"java","limit":"ten"}`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecommender{}
			resp := do(newTestServer(t, rec, nil), http.MethodPost, "/recommend", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.want)
			assert.Equal(t, 0, rec.calls)
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h := newTestServer(t, &fakeRecommender{}, nil)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz", "").Code)

	metrics := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "# metrics")

	h = newTestServer(t, &fakeRecommender{}, func(context.Context) error {
		return errors.New("collection not found")
	})
	resp := do(h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "collection not found")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &fakeRecommender{}, nil)

	resp := do(h, http.MethodOptions, "/recommend", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}
