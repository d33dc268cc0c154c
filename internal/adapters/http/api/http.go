// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/survivor/internal/adapters/history"
	service "github.com/okian/survivor/internal/app"
	"github.com/okian/survivor/internal/domain/candidates"
	"github.com/okian/survivor/internal/domain/search"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Recommend(ctx context.Context, req service.Request) (*service.Recommendation, error)

	// Read operations expose run history.
	Run(ctx context.Context, id string) (*history.Run, error)
	LatestRun(ctx context.Context) (*history.Run, error)
	Runs(ctx context.Context, limit int) ([]history.Run, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	recsHandler   *RecommendationsHandler
	runsHandler   *RunsHandler
	limit         func(http.Handler) http.Handler
}

// NewServer creates a new API server with all handlers. recommendRate is a
// formatted limiter rate such as "10-M"; empty disables limiting.
func NewServer(deps Dependencies, statsProvider StatsProvider, recommendRate string) (*Server, error) {
	limit, err := RateLimit(recommendRate)
	if err != nil {
		return nil, err
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		recsHandler:   NewRecommendationsHandler(deps),
		runsHandler:   NewRunsHandler(deps),
		limit:         limit,
	}, nil
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /recommendations", MetricsMiddleware(
		s.limit(http.HandlerFunc(s.recsHandler.HandlePost)).ServeHTTP, "recommendations"))
	mux.HandleFunc("GET /recommendations/latest", MetricsMiddleware(s.runsHandler.HandleLatest, "recommendations_latest"))
	mux.HandleFunc("GET /recommendations/{id}", MetricsMiddleware(s.runsHandler.HandleGet, "recommendations_get"))
	mux.HandleFunc("GET /runs", MetricsMiddleware(s.runsHandler.HandleList, "runs"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusOf maps service errors to a status and an error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, candidates.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, search.ErrNoFeasiblePath):
		return http.StatusUnprocessableEntity, "no_feasible_path"
	case errors.Is(err, search.ErrSearchIncomplete):
		return http.StatusUnprocessableEntity, "search_incomplete"
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict, "run_in_progress"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "busy"
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotFound, "history_disabled"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}
