package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/survivor/internal/app"
)

// maxBody bounds a recommendation request; a full season table is ~30KB.
const maxBody = 4 << 20

// RecommendationsHandler handles POST /recommendations.
type RecommendationsHandler struct {
	deps Dependencies
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps Dependencies) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps}
}

// HandlePost runs a recommendation. An empty body uses the configured inputs.
func (h *RecommendationsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recommendation"

	var req service.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Recommend(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
