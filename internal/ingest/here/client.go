// Package here implements the traffic provider against the HERE Traffic
// API v7 flow and incidents endpoints.
package here

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/ingest"
	"github.com/lucasmontegu/outly/internal/provider/resilience"
	"github.com/lucasmontegu/outly/pkg/polyline"
)

const (
	// ProviderName identifies this traffic provider.
	ProviderName = "here"

	// DefaultBaseURL is the HERE Traffic API v7 base URL.
	DefaultBaseURL = "https://data.traffic.hereapi.com/v7"

	// maxShapePoints is the incident shape size above which the decoded
	// polyline is resampled.
	maxShapePoints = 50

	// shapeSampleMeters is the resampling interval for long shapes.
	shapeSampleMeters = 500.0
)

// ClientConfig holds configuration for the HERE client.
type ClientConfig struct {
	// APIKey is the HERE API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a HERE Traffic API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new HERE client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := resilience.DefaultClientConfig(ProviderName)
		rcfg.Registry = resilience.GlobalRegistry
		httpClient = resilience.NewClient(rcfg)
	} else {
		resilience.GlobalRegistry.Register(ProviderName, httpClient)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Traffic fetches congestion flow and incidents around a point. The two
// endpoints are queried in sequence; a flow result with failed incidents is
// still an error, callers treat the report as all or nothing.
func (c *Client) Traffic(ctx context.Context, lat, lng, radiusKm float64) (*ingest.TrafficReport, error) {
	report := &ingest.TrafficReport{}

	flow, err := c.fetchFlow(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("fetching flow: %w", err)
	}
	report.JamFactor = flow

	incidents, err := c.fetchIncidents(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("fetching incidents: %w", err)
	}
	report.Incidents = incidents

	return report, nil
}

func (c *Client) fetchFlow(ctx context.Context, lat, lng, radiusKm float64) (float64, error) {
	url := fmt.Sprintf("%s/flow?locationReferencing=none&in=circle:%.6f,%.6f;r=%d&apiKey=%s",
		c.baseURL, lat, lng, int(radiusKm*1000), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var flowResp flowResponse
	if err := json.NewDecoder(resp.Body).Decode(&flowResp); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	// The worst jam factor across the covered segments drives the score.
	worst := 0.0
	for _, r := range flowResp.Results {
		if r.CurrentFlow.JamFactor > worst {
			worst = r.CurrentFlow.JamFactor
		}
	}
	return worst, nil
}

func (c *Client) fetchIncidents(ctx context.Context, lat, lng, radiusKm float64) ([]ingest.Incident, error) {
	url := fmt.Sprintf("%s/incidents?locationReferencing=shape&in=circle:%.6f,%.6f;r=%d&apiKey=%s",
		c.baseURL, lat, lng, int(radiusKm*1000), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var incResp incidentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&incResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var out []ingest.Incident
	for _, r := range incResp.Results {
		inc := ingest.Incident{
			ID:          r.IncidentDetails.ID,
			Type:        r.IncidentDetails.Type,
			Severity:    criticalitySeverity(r.IncidentDetails.Criticality),
			Description: r.IncidentDetails.Description.Value,
		}

		if r.IncidentDetails.EndTime != "" {
			if end, err := time.Parse(time.RFC3339, r.IncidentDetails.EndTime); err == nil {
				inc.EndTime = end.UTC()
			}
		}

		inc.Shape = decodeShape(r.Location)
		if len(inc.Shape) > 0 {
			inc.Location = inc.Shape[0]
		}

		out = append(out, inc)
	}
	return out, nil
}

// decodeShape flattens the location shape into a point list. HERE returns
// either explicit link point lists or an encoded polyline.
func decodeShape(loc incidentLocation) []event.Point {
	var points []event.Point

	for _, link := range loc.Shape.Links {
		for _, p := range link.Points {
			points = append(points, event.Point{Lat: p.Lat, Lng: p.Lng})
		}
	}

	if len(points) == 0 && loc.Polyline != "" {
		coords := polyline.Decode(loc.Polyline)
		if len(coords) > maxShapePoints {
			// Long incident shapes are resampled to ~500 m spacing so
			// stored route points stay bounded.
			coords = polyline.Sample(coords, shapeSampleMeters)
		}
		for _, c := range coords {
			points = append(points, event.Point{Lat: c.Lat, Lng: c.Lon})
		}
	}

	return points
}

// criticalitySeverity maps HERE criticality labels onto the 1..5 scale.
func criticalitySeverity(criticality string) int {
	switch criticality {
	case "critical":
		return 5
	case "major":
		return 4
	case "minor":
		return 2
	case "lowImpact":
		return 1
	default:
		return 3
	}
}

// HERE API response structures.

type flowResponse struct {
	Results []struct {
		Location struct {
			Description string  `json:"description"`
			Length      float64 `json:"length"`
		} `json:"location"`
		CurrentFlow struct {
			Speed     float64 `json:"speed"`
			JamFactor float64 `json:"jamFactor"`
		} `json:"currentFlow"`
	} `json:"results"`
}

type incidentsResponse struct {
	Results []struct {
		Location        incidentLocation `json:"location"`
		IncidentDetails struct {
			ID          string `json:"id"`
			Type        string `json:"type"`
			Criticality string `json:"criticality"`
			StartTime   string `json:"startTime"`
			EndTime     string `json:"endTime"`
			Description struct {
				Value string `json:"value"`
			} `json:"description"`
		} `json:"incidentDetails"`
	} `json:"results"`
}

type incidentLocation struct {
	Shape struct {
		Links []struct {
			Points []struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"points"`
		} `json:"links"`
	} `json:"shape"`
	Polyline string `json:"polyline,omitempty"`
}
