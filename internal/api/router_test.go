package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmontegu/outly/internal/api"
	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/auth"
	"github.com/lucasmontegu/outly/internal/confirmation"
	"github.com/lucasmontegu/outly/internal/database"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/forecast"
	"github.com/lucasmontegu/outly/internal/gamification"
	"github.com/lucasmontegu/outly/internal/risk"
	"github.com/lucasmontegu/outly/internal/route"
)

const (
	testSigningKey = "test-secret-key-for-testing-only"
	testIssuer     = "https://id.outly.app"
	testAudience   = "outly-api"
)

func testAuthService() *auth.Service {
	return auth.NewService(auth.Config{
		SigningKey: testSigningKey,
		Issuer:     testIssuer,
		Audience:   testAudience,
	})
}

// generateTestToken mints a token the way the identity provider would.
func generateTestToken(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

func newTestRouter(readyCheck func(ctx context.Context) error) http.Handler {
	logger := zerolog.New(io.Discard)

	eventRepo := event.NewInMemoryRepository()
	eventSvc := event.NewService(event.ServiceConfig{Repository: eventRepo, Logger: logger})
	riskSvc := risk.NewService(risk.ServiceConfig{
		Repository: risk.NewInMemoryRepository(),
		Events:     eventSvc,
		Logger:     logger,
	})
	forecastSvc := forecast.NewService(forecast.ServiceConfig{Events: eventSvc, Logger: logger})
	gameSvc := gamification.NewService(gamification.ServiceConfig{
		Repository: gamification.NewInMemoryRepository(),
		Logger:     logger,
	})
	confirmationSvc := confirmation.NewService(confirmation.ServiceConfig{
		Events:        eventRepo,
		Confirmations: confirmation.NewInMemoryRepository(),
		Gamification:  gameSvc,
		Tx:            database.NewSerialTxRunner(),
		Logger:        logger,
	})
	routeSvc := route.NewService(route.ServiceConfig{
		Repository: route.NewInMemoryRepository(),
		Events:     eventSvc,
		Logger:     logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:             "test",
		BuildTime:           "2026-01-01T00:00:00Z",
		Logger:              logger,
		AuthService:         testAuthService(),
		EventService:        eventSvc,
		RiskService:         riskSvc,
		ForecastService:     forecastSvc,
		ConfirmationService: confirmationSvc,
		RouteService:        routeSvc,
		GamificationService: gameSvc,
		ReadyCheck:          readyCheck,
	})
}

// addAuthHeader adds a valid Bearer token to the request.
func addAuthHeader(t *testing.T, req *http.Request, userID string) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, userID))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		addAuthHeader(t, req, userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReadinessCheck_Failing(t *testing.T) {
	router := newTestRouter(func(ctx context.Context) error {
		return errors.New("database unreachable")
	})

	w := doJSON(t, router, http.MethodGet, "/v1/ops/ready", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusFail, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/status", nil, "usr_ops")

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "database", status.Subsystems[0].Name)
}

func TestRouter_ListEvents_Empty(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/events", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var list models.EventList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Items)
}

func TestRouter_ListEvents_InvalidType(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/events?type=earthquake", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_ReportEvent_RequiresAuth(t *testing.T) {
	router := newTestRouter(nil)

	input := models.EventCreateRequest{
		Type:     "traffic",
		Subtype:  "accident",
		Location: models.Point{Lat: 52.37, Lng: 4.89},
		Severity: 3,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/events", input, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ReportEvent(t *testing.T) {
	router := newTestRouter(nil)

	input := models.EventCreateRequest{
		Type:     "traffic",
		Subtype:  "accident",
		Location: models.Point{Lat: 52.37, Lng: 4.89},
		Severity: 3,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/events", input, "usr_reporter")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var ev models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "traffic", ev.Type)
	assert.Equal(t, "user", ev.Source)
	assert.Equal(t, 60, ev.ConfidenceScore)
}

func TestRouter_ReportEvent_ValidationError(t *testing.T) {
	router := newTestRouter(nil)

	input := models.EventCreateRequest{
		Type:     "traffic",
		Location: models.Point{Lat: 52.37, Lng: 4.89},
		Severity: 9,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/events", input, "usr_reporter")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.Errors)
}

func TestRouter_ListNearby(t *testing.T) {
	router := newTestRouter(nil)

	input := models.EventCreateRequest{
		Type:     "weather",
		Subtype:  "hail",
		Location: models.Point{Lat: 52.37, Lng: 4.89},
		Severity: 4,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/events", input, "usr_reporter")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/events/nearby?lat=52.37&lng=4.89", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var list models.EventList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "hail", list.Items[0].Subtype)

	// Far away from the reported event.
	w = doJSON(t, router, http.MethodGet, "/v1/events/nearby?lat=48.85&lng=2.35", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Items)
}

func TestRouter_RiskCurrent(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/risk/current?lat=52.37&lng=4.89", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var current models.CurrentRisk
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Equal(t, "low", current.Classification)
	assert.NotEmpty(t, current.Description)
	assert.NotEmpty(t, current.AsOf)
}

func TestRouter_RiskCurrent_MissingCoordinates(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/risk/current", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RiskForecast(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/risk/forecast?lat=52.37&lng=4.89", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var fc models.Forecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	require.Len(t, fc.Slots, 8)
	assert.Equal(t, 0, fc.Slots[0].MinutesFromNow)
	assert.Equal(t, 105, fc.Slots[7].MinutesFromNow)
	assert.Equal(t, fc.Slots[0].Score, fc.CurrentScore)
}

func TestRouter_RiskCurrent_AsOf(t *testing.T) {
	router := newTestRouter(nil)

	// Seconds are floored away; the caller's offset survives the round trip.
	w := doJSON(t, router, http.MethodGet,
		"/v1/risk/current?lat=52.37&lng=4.89&asOf=2026-01-05T08:30:45%2B02:00", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var current models.CurrentRisk
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))

	want, err := time.Parse(time.RFC3339, "2026-01-05T08:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, current.AsOf.Time().Equal(want), "asOf = %v, want %v", current.AsOf.Time(), want)
}

func TestRouter_RiskCurrent_InvalidAsOf(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/risk/current?lat=52.37&lng=4.89&asOf=yesterday", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "asOf")
}

func TestRouter_RiskForecast_AsOf(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet,
		"/v1/risk/forecast?lat=52.37&lng=4.89&asOf=2026-01-05T17:02:30Z", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var fc models.Forecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	require.Len(t, fc.Slots, 8)

	base, err := time.Parse(time.RFC3339, "2026-01-05T17:02:00Z")
	require.NoError(t, err)
	assert.True(t, fc.AsOf.Time().Equal(base), "asOf = %v, want %v", fc.AsOf.Time(), base)
	assert.True(t, fc.Slots[0].Time.Time().Equal(base))
	assert.True(t, fc.Slots[7].Time.Time().Equal(base.Add(105*time.Minute)))
}

func TestRouter_CastConfirmation(t *testing.T) {
	router := newTestRouter(nil)

	input := models.EventCreateRequest{
		Type:     "traffic",
		Subtype:  "accident",
		Location: models.Point{Lat: 52.37, Lng: 4.89},
		Severity: 3,
	}
	w := doJSON(t, router, http.MethodPost, "/v1/events", input, "usr_reporter")
	require.Equal(t, http.StatusCreated, w.Code)

	var ev models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))

	vote := models.ConfirmationRequest{Vote: "still_active"}
	w = doJSON(t, router, http.MethodPost, "/v1/events/"+ev.ID+"/confirmations", vote, "usr_voter")

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.ConfirmationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "still_active", result.Confirmation.Vote)
	assert.Equal(t, ev.ID, result.Confirmation.EventID)
	assert.Equal(t, 70, result.Event.ConfidenceScore)

	// The vote is retrievable afterwards.
	w = doJSON(t, router, http.MethodGet, "/v1/events/"+ev.ID+"/confirmations/me", nil, "usr_voter")
	assert.Equal(t, http.StatusOK, w.Code)

	var mine models.Confirmation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, "still_active", mine.Vote)
}

func TestRouter_CastConfirmation_UnknownEvent(t *testing.T) {
	router := newTestRouter(nil)

	vote := models.ConfirmationRequest{Vote: "cleared"}
	w := doJSON(t, router, http.MethodPost, "/v1/events/evt_missing/confirmations", vote, "usr_voter")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_GetMyConfirmation_NotVoted(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/events/evt_missing/confirmations/me", nil, "usr_voter")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Routes_CRUD(t *testing.T) {
	router := newTestRouter(nil)

	input := models.RouteCreateRequest{
		Label:          "Home to office",
		Origin:         models.Point{Lat: 52.37, Lng: 4.89},
		Destination:    models.Point{Lat: 52.31, Lng: 4.76},
		DaysOfWeek:     []int{1, 2, 3, 4, 5},
		AlertThreshold: 60,
		AlertTimeLocal: "07:30",
	}
	w := doJSON(t, router, http.MethodPost, "/v1/me/routes", input, "usr_commuter")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var created models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Home to office", created.Label)

	w = doJSON(t, router, http.MethodGet, "/v1/me/routes", nil, "usr_commuter")
	assert.Equal(t, http.StatusOK, w.Code)

	var list models.RouteList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	// Another user sees nothing and cannot fetch it.
	w = doJSON(t, router, http.MethodGet, "/v1/me/routes/"+created.ID, nil, "usr_other")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/me/routes/"+created.ID, nil, "usr_commuter")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/me/routes/"+created.ID, nil, "usr_commuter")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Routes_ValidationError(t *testing.T) {
	router := newTestRouter(nil)

	input := models.RouteCreateRequest{
		Label:       "",
		Origin:      models.Point{Lat: 52.37, Lng: 4.89},
		Destination: models.Point{Lat: 52.31, Lng: 4.76},
		DaysOfWeek:  []int{1},
	}
	w := doJSON(t, router, http.MethodPost, "/v1/me/routes", input, "usr_commuter")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
}

func TestRouter_RouteForecasts(t *testing.T) {
	router := newTestRouter(nil)

	input := models.RouteCreateRequest{
		Label:       "Home to office",
		Origin:      models.Point{Lat: 52.37, Lng: 4.89},
		Destination: models.Point{Lat: 52.31, Lng: 4.76},
		DaysOfWeek:  []int{1, 2, 3, 4, 5},
	}
	w := doJSON(t, router, http.MethodPost, "/v1/me/routes", input, "usr_commuter")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/me/routes:forecast", nil, "usr_commuter")
	assert.Equal(t, http.StatusOK, w.Code)

	var statuses models.RouteStatusList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses.Items, 1)
	assert.False(t, statuses.Items[0].FromCache)
	assert.NotEmpty(t, statuses.Items[0].Recommendation)
}

func TestRouter_RouteForecasts_AsOf(t *testing.T) {
	router := newTestRouter(nil)

	input := models.RouteCreateRequest{
		Label:       "Home to office",
		Origin:      models.Point{Lat: 52.37, Lng: 4.89},
		Destination: models.Point{Lat: 52.31, Lng: 4.76},
		DaysOfWeek:  []int{1, 2, 3, 4, 5},
	}
	w := doJSON(t, router, http.MethodPost, "/v1/me/routes", input, "usr_commuter")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet,
		"/v1/me/routes:forecast?asOf=2026-01-05T08:30:45Z", nil, "usr_commuter")
	assert.Equal(t, http.StatusOK, w.Code)

	var statuses models.RouteStatusList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.Len(t, statuses.Items, 1)

	want, err := time.Parse(time.RFC3339, "2026-01-05T08:30:00Z")
	require.NoError(t, err)
	assert.True(t, statuses.Items[0].AsOf.Time().Equal(want),
		"asOf = %v, want %v", statuses.Items[0].AsOf.Time(), want)

	w = doJSON(t, router, http.MethodGet, "/v1/me/routes:forecast?asOf=later", nil, "usr_commuter")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_BadgeCatalog_Public(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/badges", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var catalog models.BadgeCatalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.NotEmpty(t, catalog.Items)
}

func TestRouter_MyStats(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/me/stats", nil, "usr_fresh")

	assert.Equal(t, http.StatusOK, w.Code)

	var stats models.UserStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, 1, stats.Level)
}

func TestRouter_MyStats_RequiresAuth(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/me/stats", nil, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_MyBadges_Empty(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/me/badges", nil, "usr_fresh")

	assert.Equal(t, http.StatusOK, w.Code)

	var earned models.EarnedBadgeList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &earned))
	assert.Empty(t, earned.Items)
}

func TestRouter_ExpiredToken(t *testing.T) {
	router := newTestRouter(nil)

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "usr_late",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: "usr_late",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me/stats", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/health", nil, "")

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(nil)

	w := doJSON(t, router, http.MethodGet, "/v1/nonexistent", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
