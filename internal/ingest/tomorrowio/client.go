// Package tomorrowio implements the nowcast provider against the
// Tomorrow.io timelines API.
package tomorrowio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/ingest"
	"github.com/lucasmontegu/outly/internal/provider/resilience"
)

const (
	// ProviderName identifies this nowcast provider.
	ProviderName = "tomorrow"

	// DefaultBaseURL is the Tomorrow.io API base URL.
	DefaultBaseURL = "https://api.tomorrow.io/v4"

	// nowcastHorizon bounds the minute timeline request.
	nowcastHorizon = "1h"
)

// ClientConfig holds configuration for the Tomorrow.io client.
type ClientConfig struct {
	// APIKey is the Tomorrow.io API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Tomorrow.io API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Tomorrow.io client.
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

// Nowcast fetches the minute precipitation timeline for a location and
// reduces it to the peak intensity over the horizon.
func (c *Client) Nowcast(ctx context.Context, lat, lng float64) (*ingest.Nowcast, error) {
	url := fmt.Sprintf("%s/timelines?location=%.6f,%.6f&fields=precipitationIntensity&timesteps=1m&endTime=nowPlus%s&apikey=%s",
		c.baseURL, lat, lng, nowcastHorizon, c.apiKey)

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

	var ttResp timelinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&ttResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.toNowcast(&ttResp), nil
}

// toNowcast reduces the minute timeline to its peak intensity.
func (c *Client) toNowcast(resp *timelinesResponse) *ingest.Nowcast {
	nowcast := &ingest.Nowcast{}
	for _, timeline := range resp.Data.Timelines {
		for _, interval := range timeline.Intervals {
			if interval.Values.PrecipitationIntensity > nowcast.MaxPrecipMMPerHour {
				nowcast.MaxPrecipMMPerHour = interval.Values.PrecipitationIntensity
			}
		}
	}
	return nowcast
}

// Tomorrow.io API response structures.

type timelinesResponse struct {
	Data struct {
		Timelines []struct {
			Timestep  string `json:"timestep"`
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
			Intervals []struct {
				StartTime string `json:"startTime"`
				Values    struct {
					PrecipitationIntensity float64 `json:"precipitationIntensity"`
				} `json:"values"`
			} `json:"intervals"`
		} `json:"timelines"`
	} `json:"data"`
}
