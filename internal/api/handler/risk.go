package handler

import (
	"net/http"
	"time"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/api/response"
	"github.com/lucasmontegu/outly/internal/forecast"
	"github.com/lucasmontegu/outly/internal/risk"
)

// RiskHandler handles risk query endpoints.
type RiskHandler struct {
	risk     *risk.Service
	forecast *forecast.Service
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(riskSvc *risk.Service, forecastSvc *forecast.Service) *RiskHandler {
	return &RiskHandler{risk: riskSvc, forecast: forecastSvc}
}

// parseAsOf reads the optional asOf query parameter. Absent means now.
// The parsed offset is kept so hour-of-day logic sees the caller's
// wall clock.
func parseAsOf(r *http.Request) (time.Time, []models.FieldError) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, []models.FieldError{{Field: "asOf", Message: "must be an RFC 3339 timestamp"}}
	}
	return asOf, nil
}

// GetCurrent handles GET /v1/risk/current - live risk at a coordinate.
func (h *RiskHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	lat, lng, fieldErrors := parseLatLng(r)
	asOf, asOfErrors := parseAsOf(r)
	fieldErrors = append(fieldErrors, asOfErrors...)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	current, err := h.risk.GetCurrentRisk(r.Context(), lat, lng, asOf)
	if err != nil {
		response.InternalError(w, r, "failed to compute risk")
		return
	}

	response.JSON(w, r, http.StatusOK, models.CurrentRisk{
		Score:          current.Score,
		Classification: string(current.Classification),
		Description:    current.Description,
		Breakdown: models.RiskBreakdown{
			Weather: current.WeatherScore,
			Traffic: current.TrafficScore,
			Events:  current.EventScore,
		},
		AsOf: models.Timestamp(current.AsOf),
	})
}

// GetForecast handles GET /v1/risk/forecast - departure slot projection.
func (h *RiskHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, lng, fieldErrors := parseLatLng(r)
	asOf, asOfErrors := parseAsOf(r)
	fieldErrors = append(fieldErrors, asOfErrors...)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	fc, err := h.forecast.At(r.Context(), lat, lng, asOf)
	if err != nil {
		response.InternalError(w, r, "failed to compute forecast")
		return
	}

	out := models.Forecast{
		CurrentScore:          fc.CurrentScore,
		CurrentClassification: string(fc.CurrentClassification),
		Slots:                 make([]models.ForecastSlot, 0, len(fc.Slots)),
		OptimalDeparture:      models.Timestamp(fc.OptimalDeparture),
		OptimalInMinutes:      fc.Slots[fc.OptimalIndex].MinutesFromNow,
		AsOf:                  models.Timestamp(fc.AsOf),
	}
	for _, slot := range fc.Slots {
		out.Slots = append(out.Slots, models.ForecastSlot{
			Time:           models.Timestamp(slot.Time),
			MinutesFromNow: slot.MinutesFromNow,
			Score:          slot.Score,
			Classification: string(slot.Classification),
		})
	}

	response.JSON(w, r, http.StatusOK, out)
}
