package here_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmontegu/outly/internal/ingest/here"
	"github.com/lucasmontegu/outly/pkg/polyline"
)

func trafficServer(t *testing.T, flowBody, incidentsBody string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/flow":
			w.Write([]byte(flowBody))
		case "/incidents":
			w.Write([]byte(incidentsBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// jsonQuote returns s as a JSON string literal, escaping characters such
// as backslashes that the polyline alphabet can produce.
func jsonQuote(t *testing.T, s string) string {
	t.Helper()
	quoted, err := json.Marshal(s)
	require.NoError(t, err)
	return string(quoted)
}

func TestClient_Traffic(t *testing.T) {
	flow := `{
		"results": [
			{"currentFlow": {"speed": 45.0, "jamFactor": 3.2}},
			{"currentFlow": {"speed": 12.0, "jamFactor": 8.7}},
			{"currentFlow": {"speed": 80.0, "jamFactor": 0.5}}
		]
	}`
	incidents := `{
		"results": [
			{
				"location": {
					"shape": {
						"links": [
							{"points": [{"lat": 52.37, "lng": 4.89}, {"lat": 52.38, "lng": 4.90}]}
						]
					}
				},
				"incidentDetails": {
					"id": "inc-1",
					"type": "accident",
					"criticality": "critical",
					"endTime": "2026-03-14T12:00:00Z",
					"description": {"value": "Multi-vehicle collision"}
				}
			}
		]
	}`

	server := trafficServer(t, flow, incidents)
	defer server.Close()

	client := here.NewClient(here.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	report, err := client.Traffic(context.Background(), 52.37, 4.89, 10)
	require.NoError(t, err)

	// The worst segment drives the jam factor.
	assert.InDelta(t, 8.7, report.JamFactor, 0.001)

	require.Len(t, report.Incidents, 1)
	inc := report.Incidents[0]
	assert.Equal(t, "inc-1", inc.ID)
	assert.Equal(t, "accident", inc.Type)
	assert.Equal(t, 5, inc.Severity)
	assert.Equal(t, "Multi-vehicle collision", inc.Description)
	require.Len(t, inc.Shape, 2)
	assert.InDelta(t, 52.37, inc.Location.Lat, 0.0001)
	assert.InDelta(t, 4.89, inc.Location.Lng, 0.0001)
	assert.False(t, inc.EndTime.IsZero())
}

func TestClient_Traffic_PolylineShape(t *testing.T) {
	encoded := polyline.Encode([]polyline.Coordinate{
		{Lat: 52.37, Lon: 4.89},
		{Lat: 52.375, Lon: 4.895},
		{Lat: 52.38, Lon: 4.90},
	})

	flow := `{"results": []}`
	incidents := `{
		"results": [
			{
				"location": {"polyline": ` + jsonQuote(t, encoded) + `},
				"incidentDetails": {
					"id": "inc-2",
					"type": "roadClosure",
					"criticality": "major",
					"description": {"value": "Bridge closed"}
				}
			}
		]
	}`

	server := trafficServer(t, flow, incidents)
	defer server.Close()

	client := here.NewClient(here.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	report, err := client.Traffic(context.Background(), 52.37, 4.89, 10)
	require.NoError(t, err)

	require.Len(t, report.Incidents, 1)
	inc := report.Incidents[0]
	assert.Equal(t, 4, inc.Severity)
	require.Len(t, inc.Shape, 3)
	assert.InDelta(t, 52.37, inc.Shape[0].Lat, 0.0001)
	assert.InDelta(t, 4.90, inc.Shape[2].Lng, 0.0001)
	assert.True(t, inc.EndTime.IsZero())
}

func TestClient_Traffic_LongShapeResampled(t *testing.T) {
	// ~111 m between consecutive points, 200 points in total.
	coords := make([]polyline.Coordinate, 200)
	for i := range coords {
		coords[i] = polyline.Coordinate{Lat: 52.0 + float64(i)*0.001, Lon: 4.9}
	}
	encoded := polyline.Encode(coords)

	flow := `{"results": []}`
	incidents := `{
		"results": [
			{
				"location": {"polyline": ` + jsonQuote(t, encoded) + `},
				"incidentDetails": {
					"id": "inc-long",
					"type": "congestion",
					"criticality": "minor"
				}
			}
		]
	}`

	server := trafficServer(t, flow, incidents)
	defer server.Close()

	client := here.NewClient(here.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	report, err := client.Traffic(context.Background(), 52.0, 4.9, 10)
	require.NoError(t, err)

	require.Len(t, report.Incidents, 1)
	shape := report.Incidents[0].Shape
	require.NotEmpty(t, shape)
	assert.Less(t, len(shape), 60)
	assert.InDelta(t, 52.0, shape[0].Lat, 0.0001)
	assert.InDelta(t, 52.199, shape[len(shape)-1].Lat, 0.0001)
}

func TestClient_Traffic_UnknownCriticality(t *testing.T) {
	flow := `{"results": []}`
	incidents := `{
		"results": [
			{
				"location": {},
				"incidentDetails": {"id": "inc-3", "type": "other", "criticality": "weird"}
			}
		]
	}`

	server := trafficServer(t, flow, incidents)
	defer server.Close()

	client := here.NewClient(here.ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	report, err := client.Traffic(context.Background(), 52.37, 4.89, 10)
	require.NoError(t, err)
	require.Len(t, report.Incidents, 1)
	assert.Equal(t, 3, report.Incidents[0].Severity)
}
