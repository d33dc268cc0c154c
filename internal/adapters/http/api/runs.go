package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// RunsHandler serves stored runs.
type RunsHandler struct {
	deps Dependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleGet handles GET /recommendations/{id}.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleLatest handles GET /recommendations/latest.
func (h *RunsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.LatestRun(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleList handles GET /runs?limit=N.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("limit %q must be a positive integer", v)))
			return
		}
		limit = n
	}
	runs, err := h.deps.Runs(r.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
