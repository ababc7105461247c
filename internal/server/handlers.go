package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/knoguchi/recommender/internal/catalog"
)

const maxBodyBytes = 1 << 20

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Query    string `json:"query" validate:"required,max=4000"`
	TestType string `json:"test_type,omitempty" validate:"max=200"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=10"`
}

// RecommendResponse is the body returned by POST /recommend.
type RecommendResponse struct {
	RecommendedAssessments []catalog.Assessment `json:"recommended_assessments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *HTTPServer) recommendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecommendRequest

		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		req.Query = strings.TrimSpace(req.Query)
		if err := s.validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
			return
		}

		results := s.recommender.Recommend(r.Context(), req.Query, req.TestType, req.Limit)

		resp := RecommendResponse{RecommendedAssessments: make([]catalog.Assessment, 0, len(results))}
		for _, c := range results {
			resp.RecommendedAssessments = append(resp.RecommendedAssessments, c.Assessment)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if field == "testtype" {
		field = "test_type"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte", "lte":
		return field + " must be between 0 and 10"
	default:
		return field + " is invalid"
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler returns a handler for the /readyz endpoint
func (s *HTTPServer) readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			if err := s.ready(ctx); err != nil {
				s.logger.Warn("readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
