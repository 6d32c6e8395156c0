package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/api/middleware"
	"github.com/dvloznov/check-deposit/internal/jobs"
)

// ForwardsHandler exposes the status of downstream deposit forwards.
type ForwardsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewForwardsHandler creates a new forwards handler.
func NewForwardsHandler(store jobs.JobStore, log zerolog.Logger) *ForwardsHandler {
	return &ForwardsHandler{
		store: store,
		log:   log,
	}
}

// GetForward handles GET /api/v1/forwards/{id}
func (h *ForwardsHandler) GetForward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get forward job")
		middleware.WriteError(w, http.StatusNotFound, "Forward not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListForwards handles GET /api/v1/forwards
func (h *ForwardsHandler) ListForwards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		CheckID: query.Get("check_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	forwards, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list forward jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list forwards")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forwards": forwards,
		"count":    len(forwards),
	})
}
