package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/verdefield/agrocheck/internal/checker"
	"github.com/verdefield/agrocheck/internal/model"
	"github.com/verdefield/agrocheck/internal/monitoring"
	"github.com/verdefield/agrocheck/internal/telemetry"
)

// checkRequestBody mirrors model.Request with validator tags, decoded
// separately so invalid shapes produce a field-scoped ValidationError
// rather than a generic JSON decode error.
type checkRequestBody struct {
	Input struct {
		Type  string `json:"type" validate:"required"`
		Value any    `json:"value" validate:"required"`
	} `json:"input" validate:"required"`
	Options struct {
		Sources []string `json:"sources,omitempty"`
	} `json:"options,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var body checkRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	req := model.Request{
		Input: model.Input{
			Type:  model.InputType(strings.ToUpper(body.Input.Type)),
			Value: body.Input.Value,
		},
		Options: model.RequestOptions{Sources: body.Options.Sources},
	}

	envelope, err := s.orchestrator.Check(r.Context(), req)
	if err != nil {
		s.writeCheckError(w, err)
		return
	}

	telemetry.ChecksTotal.WithLabelValues(string(envelope.Verdict)).Inc()
	writeJSON(w, http.StatusOK, envelope)
}

// writeCheckError maps the error taxonomy (spec.md §7) onto HTTP status
// codes for POST /check.
func (s *Server) writeCheckError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	var authErr *model.AuthError
	var rateLimitErr *model.RateLimitError
	var geocodingErr *model.GeocodingError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &rateLimitErr):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &geocodingErr):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("check failed with unclassified error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.collector.Collect(r.Context())

	switch snap.Status {
	case monitoring.StatusOK:
		telemetry.HealthStatus.Set(2)
	case monitoring.StatusDegraded:
		telemetry.HealthStatus.Set(1)
	default:
		telemetry.HealthStatus.Set(0)
	}

	status := http.StatusOK
	if snap.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}

type sourceSummary struct {
	Name        string         `json:"name"`
	Category    model.Category `json:"category"`
	Description string         `json:"description"`
	Priority    int            `json:"priority"`
	Enabled     bool           `json:"enabled"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, describeAll(s.registry.All()))
}

func (s *Server) handleListSourcesByCategory(w http.ResponseWriter, r *http.Request) {
	category := model.Category(chi.URLParam(r, "category"))
	writeJSON(w, http.StatusOK, describeAll(s.registry.GetByCategory(category)))
}

func describeAll(checkers []checker.Checker) []sourceSummary {
	out := make([]sourceSummary, 0, len(checkers))
	for _, c := range checkers {
		d := c.Descriptor()
		out = append(out, sourceSummary{
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description,
			Priority:    d.Priority,
			Enabled:     d.Enabled,
		})
	}
	return out
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	checkerName := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if checkerName == "" {
		writeJSON(w, http.StatusOK, s.samples.All())
		return
	}

	records, err := s.samples.ByChecker(checkerName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
