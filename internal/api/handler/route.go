package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/route"
)

// RouteHandler handles saved route endpoints.
type RouteHandler struct {
	routes *route.Service
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes *route.Service) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// ListRoutes handles GET /v1/me/routes - list saved routes.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routes.List(r.Context(), GetUserID(r.Context()))
	if err != nil {
		response.InternalError(w, r, "failed to list routes")
		return
	}

	list := models.RouteList{Items: make([]models.Route, 0, len(routes))}
	for _, rt := range routes {
		list.Items = append(list.Items, toAPIRoute(rt))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateRoute handles POST /v1/me/routes - create a saved route.
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	rt, err := h.routes.Create(r.Context(), GetUserID(r.Context()), route.CreateInput{
		Label:          input.Label,
		Origin:         event.Point{Lat: input.Origin.Lat, Lng: input.Origin.Lng},
		Destination:    event.Point{Lat: input.Destination.Lat, Lng: input.Destination.Lng},
		DaysOfWeek:     input.DaysOfWeek,
		AlertThreshold: input.AlertThreshold,
		AlertTimeLocal: input.AlertTimeLocal,
	}, time.Now().UTC())
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.Created(w, r, fmt.Sprintf("/v1/me/routes/%s", rt.ID), toAPIRoute(rt))
}

// GetRoute handles GET /v1/me/routes/{routeId} - get a saved route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if routeID == "" {
		response.BadRequest(w, r, "routeId is required", nil)
		return
	}

	rt, err := h.routes.Get(r.Context(), GetUserID(r.Context()), routeID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIRoute(rt))
}

// UpdateRoute handles PUT /v1/me/routes/{routeId} - update a saved route.
func (h *RouteHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if routeID == "" {
		response.BadRequest(w, r, "routeId is required", nil)
		return
	}

	var input models.RouteUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	update := route.UpdateInput{
		Label:          input.Label,
		DaysOfWeek:     input.DaysOfWeek,
		AlertThreshold: input.AlertThreshold,
		AlertTimeLocal: input.AlertTimeLocal,
	}
	if input.Origin != nil {
		update.Origin = &event.Point{Lat: input.Origin.Lat, Lng: input.Origin.Lng}
	}
	if input.Destination != nil {
		update.Destination = &event.Point{Lat: input.Destination.Lat, Lng: input.Destination.Lng}
	}

	rt, err := h.routes.Update(r.Context(), GetUserID(r.Context()), routeID, update, time.Now().UTC())
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toAPIRoute(rt))
}

// DeleteRoute handles DELETE /v1/me/routes/{routeId} - delete a saved route.
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if routeID == "" {
		response.BadRequest(w, r, "routeId is required", nil)
		return
	}

	if err := h.routes.Delete(r.Context(), GetUserID(r.Context()), routeID); err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// RouteForecasts handles GET /v1/me/routes:forecast - the dashboard view of
// every saved route.
func (h *RouteHandler) RouteForecasts(w http.ResponseWriter, r *http.Request) {
	asOf, asOfErrors := parseAsOf(r)
	if len(asOfErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", asOfErrors)
		return
	}

	statuses, err := h.routes.RoutesWithForecast(r.Context(), GetUserID(r.Context()), asOf)
	if err != nil {
		response.InternalError(w, r, "failed to compute route forecasts")
		return
	}

	list := models.RouteStatusList{Items: make([]models.RouteStatus, 0, len(statuses))}
	for _, st := range statuses {
		list.Items = append(list.Items, models.RouteStatus{
			Route:          toAPIRoute(st.Route),
			Score:          st.Score,
			Classification: string(st.Classification),
			Recommendation: st.Recommendation,
			FromCache:      st.FromCache,
			AsOf:           models.Timestamp(st.AsOf),
		})
	}
	response.JSON(w, r, http.StatusOK, list)
}

func writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *route.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, r, "validation failed", vErr.Errors)
	case errors.Is(err, route.ErrRouteNotFound):
		response.NotFound(w, r, "route not found")
	case errors.Is(err, route.ErrTooManyRoutes):
		response.Conflict(w, r, "route limit reached")
	default:
		response.InternalError(w, r, "route operation failed")
	}
}

func toAPIRoute(rt *route.Route) models.Route {
	return models.Route{
		ID:             rt.ID,
		Label:          rt.Label,
		Origin:         models.Point{Lat: rt.Origin.Lat, Lng: rt.Origin.Lng},
		Destination:    models.Point{Lat: rt.Destination.Lat, Lng: rt.Destination.Lng},
		DaysOfWeek:     rt.DaysOfWeek,
		AlertThreshold: rt.AlertThreshold,
		AlertTimeLocal: rt.AlertTimeLocal,
		CreatedAt:      models.Timestamp(rt.CreatedAt),
		UpdatedAt:      models.Timestamp(rt.UpdatedAt),
	}
}
