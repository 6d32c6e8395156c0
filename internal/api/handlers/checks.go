package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/api/middleware"
	"github.com/dvloznov/check-deposit/internal/extraction"
	"github.com/dvloznov/check-deposit/internal/pipeline"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

// maxImageBytes caps each uploaded check image.
const maxImageBytes = 10 << 20

// CheckProcessor runs one submission through the processing pipeline.
// Satisfied by *pipeline.Processor.
type CheckProcessor interface {
	Process(ctx context.Context, sub pipeline.Submission) (*pipeline.Outcome, error)
}

// ChecksHandler handles check deposit submissions.
type ChecksHandler struct {
	processor CheckProcessor
	log       zerolog.Logger
}

// NewChecksHandler creates a new checks handler.
func NewChecksHandler(processor CheckProcessor, log zerolog.Logger) *ChecksHandler {
	return &ChecksHandler{processor: processor, log: log}
}

// CreateCheck handles POST /api/v1/checks.
// The request is multipart form data with image parts "front" and "back" and
// an "account_id" field naming the destination internal account.
func (h *ChecksHandler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	if err := r.ParseMultipartForm(2 * maxImageBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	front, ok := readImagePart(r, "front")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Missing front image")
		return
	}
	back, ok := readImagePart(r, "back")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Missing back image")
		return
	}

	accountID := r.FormValue("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	sub := pipeline.Submission{
		Front:     front,
		Back:      back,
		AccountID: accountID,
		UserID:    userID,
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		sub.IdempotencyKey = &key
	}

	outcome, err := h.processor.Process(ctx, sub)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrIdentityNotFound):
			middleware.WriteError(w, http.StatusBadRequest, "Check identity could not be extracted")
		case errors.Is(err, recognition.ErrNoProvider):
			h.log.Error().Msg("No recognition provider configured")
			middleware.WriteError(w, http.StatusInternalServerError, "Recognition provider not configured")
		case errors.Is(err, recognition.ErrRecognitionFailed):
			h.log.Error().Err(err).Msg("Recognition provider failed")
			middleware.WriteError(w, http.StatusBadGateway, "Recognition service error")
		default:
			h.log.Error().Err(err).Msg("Check processing failed")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to process check")
		}
		return
	}

	resp := map[string]interface{}{
		"check_id":            outcome.CheckID,
		"amount":              nil,
		"amount_cents":        nil,
		"endorsement_present": outcome.EndorsementPresent,
		"status":              outcome.Status,
		"duplicate":           outcome.Duplicate,
	}
	if outcome.AmountCents != nil {
		resp["amount"] = extraction.FormatCents(*outcome.AmountCents)
		resp["amount_cents"] = *outcome.AmountCents
	}
	if outcome.RecordID != "" {
		resp["record_id"] = outcome.RecordID
	}
	if outcome.ForwardJobID != "" {
		resp["forward_job_id"] = outcome.ForwardJobID
	}
	if outcome.Diagnostics != nil {
		resp["diagnostics"] = map[string]interface{}{
			"front":    outcome.Diagnostics.Front,
			"back":     outcome.Diagnostics.Back,
			"combined": outcome.Diagnostics.Combined,
		}
	}

	middleware.WriteJSON(w, http.StatusCreated, resp)
}

func readImagePart(r *http.Request, name string) ([]byte, bool) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
