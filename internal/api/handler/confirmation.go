package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/confirmation"
	"github.com/lucasmontegu/outly/internal/event"
)

// ConfirmationHandler handles event confirmation endpoints.
type ConfirmationHandler struct {
	confirmations *confirmation.Service
}

// NewConfirmationHandler creates a new ConfirmationHandler.
func NewConfirmationHandler(confirmations *confirmation.Service) *ConfirmationHandler {
	return &ConfirmationHandler{confirmations: confirmations}
}

// Cast handles POST /v1/events/{eventId}/confirmations - vote on an event.
func (h *ConfirmationHandler) Cast(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		response.BadRequest(w, r, "eventId is required", nil)
		return
	}

	var input models.ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.confirmations.Cast(r.Context(), GetUserID(r.Context()),
		eventID, confirmation.Value(input.Vote), time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, confirmation.ErrInvalidVote):
			response.BadRequest(w, r, "vote must be still_active, cleared or not_exists", nil)
		case errors.Is(err, confirmation.ErrUnauthenticated):
			response.Unauthorized(w, r, "authentication required")
		case errors.Is(err, event.ErrEventNotFound):
			response.NotFound(w, r, "event not found")
		default:
			response.InternalError(w, r, "failed to record vote")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, models.ConfirmationResult{
		Confirmation: toAPIConfirmation(result.Confirmation),
		Event:        toAPIEvent(result.Event),
	})
}

// GetMine handles GET /v1/events/{eventId}/confirmations/me - the caller's vote.
func (h *ConfirmationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		response.BadRequest(w, r, "eventId is required", nil)
		return
	}

	vote, err := h.confirmations.GetMyVote(r.Context(), GetUserID(r.Context()), eventID)
	if err != nil {
		switch {
		case errors.Is(err, confirmation.ErrUnauthenticated):
			response.Unauthorized(w, r, "authentication required")
		case errors.Is(err, confirmation.ErrConfirmationNotFound):
			response.NotFound(w, r, "no vote recorded for this event")
		default:
			response.InternalError(w, r, "failed to load vote")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIConfirmation(vote))
}

func toAPIConfirmation(c *confirmation.Confirmation) models.Confirmation {
	return models.Confirmation{
		ID:        c.ID,
		EventID:   c.EventID,
		Vote:      string(c.Value),
		CreatedAt: models.Timestamp(c.CreatedAt),
		UpdatedAt: models.Timestamp(c.UpdatedAt),
	}
}
