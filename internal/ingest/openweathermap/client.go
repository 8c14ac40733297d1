// Package openweathermap implements the weather provider against the
// OpenWeatherMap OneCall 3.0 API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/ingest"
	"github.com/lucasmontegu/outly/internal/provider/resilience"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OneCall API 3.0 base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OneCall 3.0).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
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

// Current fetches current conditions and active alerts for a location.
func (c *Client) Current(ctx context.Context, lat, lng float64) (*ingest.WeatherReport, error) {
	url := fmt.Sprintf("%s?lat=%.6f&lon=%.6f&appid=%s&units=metric&exclude=minutely,hourly,daily",
		c.baseURL, lat, lng, c.apiKey)

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

	var owmResp oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.toReport(&owmResp), nil
}

// toReport converts the OneCall response to the normalized report.
func (c *Client) toReport(resp *oneCallResponse) *ingest.WeatherReport {
	report := &ingest.WeatherReport{
		PrecipMMPerHour: resp.Current.Rain.OneHour + resp.Current.Snow.OneHour,
		// OneCall reports wind in m/s with metric units.
		WindKMH:     resp.Current.WindSpeed * 3.6,
		VisibilityM: float64(resp.Current.Visibility),
	}

	for _, a := range resp.Alerts {
		report.Alerts = append(report.Alerts, ingest.Alert{
			Event:       a.Event,
			Severity:    alertSeverity(a.Event),
			Description: a.Description,
			Sender:      a.SenderName,
			Start:       time.Unix(a.Start, 0).UTC(),
			End:         time.Unix(a.End, 0).UTC(),
		})
	}

	return report
}

// alertSeverity grades an alert by its event name. OneCall alerts carry no
// numeric severity, only the issuing agency's event label.
func alertSeverity(eventName string) int {
	name := strings.ToLower(eventName)
	switch {
	case strings.Contains(name, "tornado"),
		strings.Contains(name, "hurricane"),
		strings.Contains(name, "extreme"):
		return 5
	case strings.Contains(name, "severe"),
		strings.Contains(name, "storm"),
		strings.Contains(name, "ice"):
		return 4
	case strings.Contains(name, "warning"):
		return 3
	case strings.Contains(name, "watch"),
		strings.Contains(name, "advisory"):
		return 2
	default:
		return 3
	}
}

// OpenWeatherMap API response structures.

type oneCallResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Current struct {
		Dt         int64   `json:"dt"`
		Temp       float64 `json:"temp"`
		Humidity   float64 `json:"humidity"`
		Visibility int     `json:"visibility"`
		WindSpeed  float64 `json:"wind_speed"`
		WindGust   float64 `json:"wind_gust"`
		Rain       struct {
			OneHour float64 `json:"1h"`
		} `json:"rain"`
		Snow struct {
			OneHour float64 `json:"1h"`
		} `json:"snow"`
	} `json:"current"`
	Alerts []struct {
		SenderName  string   `json:"sender_name"`
		Event       string   `json:"event"`
		Start       int64    `json:"start"`
		End         int64    `json:"end"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	} `json:"alerts"`
}
