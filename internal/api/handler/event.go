package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
)

// EventHandler handles event endpoints.
type EventHandler struct {
	events *event.Service
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *event.Service) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents handles GET /v1/events - list active events, optionally by type.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var typ *event.Type
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := event.Type(raw)
		if t != event.TypeWeather && t != event.TypeTraffic {
			response.BadRequest(w, r, "type must be weather or traffic", nil)
			return
		}
		typ = &t
	}

	events, err := h.events.ListActive(r.Context(), typ, time.Now().UTC())
	if err != nil {
		response.InternalError(w, r, "failed to list events")
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIEventList(events))
}

// ListNearby handles GET /v1/events/nearby - active events around a point.
func (h *EventHandler) ListNearby(w http.ResponseWriter, r *http.Request) {
	lat, lng, fieldErrors := parseLatLng(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates", fieldErrors)
		return
	}

	radiusKm := risk.DefaultQueryRadiusKm
	if raw := r.URL.Query().Get("radiusKm"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 50 {
			response.BadRequest(w, r, "radiusKm must be between 0 and 50", nil)
			return
		}
		radiusKm = parsed
	}

	events, err := h.events.ListNearby(r.Context(), lat, lng, radiusKm, time.Now().UTC())
	if err != nil {
		response.InternalError(w, r, "failed to list nearby events")
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIEventList(events))
}

// ReportEvent handles POST /v1/events - report an event.
func (h *EventHandler) ReportEvent(w http.ResponseWriter, r *http.Request) {
	var input models.EventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrors := validateEventCreate(&input); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	ev, err := h.events.ReportUserEvent(r.Context(), GetUserID(r.Context()), event.ReportInput{
		Type:     event.Type(input.Type),
		Subtype:  input.Subtype,
		Location: event.Point{Lat: input.Location.Lat, Lng: input.Location.Lng},
		Severity: input.Severity,
	}, time.Now().UTC())
	if err != nil {
		if errors.Is(err, event.ErrUnauthenticated) {
			response.Unauthorized(w, r, "authentication required")
			return
		}
		response.InternalError(w, r, "failed to report event")
		return
	}

	response.Created(w, r, fmt.Sprintf("/v1/events/%s", ev.ID), toAPIEvent(ev))
}

func validateEventCreate(input *models.EventCreateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Type != string(event.TypeWeather) && input.Type != string(event.TypeTraffic) {
		errs = append(errs, models.FieldError{Field: "type", Message: "must be weather or traffic"})
	}
	if input.Subtype == "" {
		errs = append(errs, models.FieldError{Field: "subtype", Message: "is required"})
	}
	if input.Location.Lat < -90 || input.Location.Lat > 90 {
		errs = append(errs, models.FieldError{Field: "location.lat", Message: "must be between -90 and 90"})
	}
	if input.Location.Lng < -180 || input.Location.Lng > 180 {
		errs = append(errs, models.FieldError{Field: "location.lng", Message: "must be between -180 and 180"})
	}
	if input.Severity < 1 || input.Severity > 5 {
		errs = append(errs, models.FieldError{Field: "severity", Message: "must be between 1 and 5"})
	}

	return errs
}

// parseLatLng extracts and validates lat/lng query parameters.
func parseLatLng(r *http.Request) (float64, float64, []models.FieldError) {
	var errs []models.FieldError

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		errs = append(errs, models.FieldError{Field: "lng", Message: "must be between -180 and 180"})
	}

	return lat, lng, errs
}

func toAPIEvent(ev *event.Event) models.Event {
	out := models.Event{
		ID:              ev.ID,
		Type:            string(ev.Type),
		Subtype:         ev.Subtype,
		Location:        models.Point{Lat: ev.Location.Lat, Lng: ev.Location.Lng},
		RadiusMeters:    ev.RadiusMeters,
		Severity:        ev.Severity,
		Source:          string(ev.Source),
		ConfidenceScore: ev.ConfidenceScore,
		ExpiresAt:       models.Timestamp(ev.TTL),
		CreatedAt:       models.Timestamp(ev.CreatedAt),
		UpdatedAt:       models.Timestamp(ev.UpdatedAt),
	}
	for _, p := range ev.RoutePoints {
		out.RoutePoints = append(out.RoutePoints, models.Point{Lat: p.Lat, Lng: p.Lng})
	}
	return out
}

func toAPIEventList(events []*event.Event) models.EventList {
	list := models.EventList{Items: make([]models.Event, 0, len(events))}
	for _, ev := range events {
		list.Items = append(list.Items, toAPIEvent(ev))
	}
	return list
}
