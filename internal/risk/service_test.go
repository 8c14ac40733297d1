package risk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
)

func newRiskService(t *testing.T) (*risk.Service, *event.Service) {
	t.Helper()

	events := event.NewService(event.ServiceConfig{
		Repository: event.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	svc := risk.NewService(risk.ServiceConfig{
		Repository: risk.NewInMemoryRepository(),
		Events:     events,
		Logger:     zerolog.Nop(),
	})
	return svc, events
}

func TestCalculate_SnapshotWeighting(t *testing.T) {
	svc, _ := newRiskService(t)
	now := time.Date(2026, 3, 14, 9, 30, 42, 0, time.UTC)
	loc := event.Point{Lat: 52.37, Lng: 4.89}

	weather := &risk.WeatherConditions{PrecipMMPerHour: 12, WindKMH: 45, VisibilityM: 1500}
	traffic := &risk.TrafficConditions{
		JamFactor: 8,
		Incidents: []risk.IncidentInput{{Severity: 3}, {Severity: 4}, {Severity: 2}},
	}

	snap, err := svc.Calculate(context.Background(), loc, weather, traffic, now)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// weather 30+15=45, traffic 40+30+20=90, events 0.
	if snap.WeatherScore != 45 {
		t.Errorf("weather subscore = %d, want 45", snap.WeatherScore)
	}
	if snap.TrafficScore != 90 {
		t.Errorf("traffic subscore = %d, want 90", snap.TrafficScore)
	}
	if snap.EventScore != 0 {
		t.Errorf("event subscore = %d, want 0", snap.EventScore)
	}
	if want := risk.CombineSnapshot(45, 90, 0); snap.Score != want {
		t.Errorf("score = %d, want %d", snap.Score, want)
	}
	if snap.Classification != risk.ClassificationMedium {
		t.Errorf("classification = %q, want medium", snap.Classification)
	}
	if !snap.CalculatedAt.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("CalculatedAt not floored to the minute: %v", snap.CalculatedAt)
	}
	if snap.ID == "" {
		t.Error("expected generated snapshot id")
	}
}

func TestCalculate_MissingFeedsDegradeToZero(t *testing.T) {
	svc, _ := newRiskService(t)
	now := time.Now().UTC()

	snap, err := svc.Calculate(context.Background(), event.Point{Lat: 52.37, Lng: 4.89}, nil, nil, now)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if snap.WeatherScore != 0 || snap.TrafficScore != 0 || snap.EventScore != 0 {
		t.Errorf("subscores = %d/%d/%d, want 0/0/0",
			snap.WeatherScore, snap.TrafficScore, snap.EventScore)
	}
	if snap.Score != 0 {
		t.Errorf("score = %d, want 0", snap.Score)
	}
	if snap.Classification != risk.ClassificationLow {
		t.Errorf("classification = %q, want low", snap.Classification)
	}
}

func TestCalculate_KeepsPreviousScoreAndOneLatest(t *testing.T) {
	svc, _ := newRiskService(t)
	ctx := context.Background()
	loc := event.Point{Lat: 52.37, Lng: 4.89}
	now := time.Now().UTC()

	first, err := svc.Calculate(ctx, loc, &risk.WeatherConditions{PrecipMMPerHour: 12}, nil, now)
	if err != nil {
		t.Fatalf("first Calculate() error = %v", err)
	}
	if first.PreviousScore != 0 {
		t.Errorf("first snapshot previous score = %d, want 0", first.PreviousScore)
	}

	second, err := svc.Calculate(ctx, loc, nil, &risk.TrafficConditions{JamFactor: 8}, now.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("second Calculate() error = %v", err)
	}
	if second.PreviousScore != first.Score {
		t.Errorf("previous score = %d, want %d", second.PreviousScore, first.Score)
	}

	stored, err := svc.GetSnapshot(ctx, loc.Lat, loc.Lng)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if stored.ID != second.ID {
		t.Errorf("latest snapshot = %s, want %s", stored.ID, second.ID)
	}
}

func TestCalculate_IncludesNearbyActiveEvents(t *testing.T) {
	svc, events := newRiskService(t)
	ctx := context.Background()
	loc := event.Point{Lat: 52.37, Lng: 4.89}
	now := time.Now().UTC()

	_, err := events.UpsertFromFeed(ctx, event.FeedInput{
		Type:     event.TypeWeather,
		Subtype:  "thunderstorm",
		Location: loc,
		Severity: 4,
		Source:   event.SourceOpenWeatherMap,
		TTL:      now.Add(time.Hour),
	}, now)
	if err != nil {
		t.Fatalf("UpsertFromFeed() error = %v", err)
	}

	snap, err := svc.Calculate(ctx, loc, nil, nil, now)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// Feed events carry confidence 100, above the 50 threshold: 4 x 4 = 16.
	if snap.EventScore != 16 {
		t.Errorf("event subscore = %d, want 16", snap.EventScore)
	}
}

func TestGetCurrentRisk_LivePath(t *testing.T) {
	svc, events := newRiskService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	lat, lng := 52.37, 4.89

	_, err := events.UpsertFromFeed(ctx, event.FeedInput{
		Type:     event.TypeTraffic,
		Subtype:  "accident",
		Location: event.Point{Lat: lat, Lng: lng},
		Severity: 5,
		Source:   event.SourceHere,
		TTL:      now.Add(time.Hour),
	}, now)
	if err != nil {
		t.Fatalf("UpsertFromFeed() error = %v", err)
	}

	current, err := svc.GetCurrentRisk(ctx, lat, lng, now)
	if err != nil {
		t.Fatalf("GetCurrentRisk() error = %v", err)
	}

	// Severity 5 at zero distance, full confidence: traffic impact 50,
	// event score 25, combined with the live weighting.
	if current.TrafficScore != 50 {
		t.Errorf("traffic impact = %d, want 50", current.TrafficScore)
	}
	if current.WeatherScore != 0 {
		t.Errorf("weather impact = %d, want 0", current.WeatherScore)
	}
	if want := risk.CombineLive(0, 50, 25); current.Score != want {
		t.Errorf("score = %d, want %d", current.Score, want)
	}
	if current.Description == "" {
		t.Error("expected a non-empty description")
	}
	if !current.AsOf.Equal(risk.FloorMinute(now)) {
		t.Errorf("AsOf = %v, want %v", current.AsOf, risk.FloorMinute(now))
	}
}

func TestGetCurrentRisk_NeverMutates(t *testing.T) {
	svc, _ := newRiskService(t)
	ctx := context.Background()

	if _, err := svc.GetCurrentRisk(ctx, 52.37, 4.89, time.Now().UTC()); err != nil {
		t.Fatalf("GetCurrentRisk() error = %v", err)
	}

	_, err := svc.GetSnapshot(ctx, 52.37, 4.89)
	if !errors.Is(err, risk.ErrSnapshotNotFound) {
		t.Errorf("expected no stored snapshot after a live read, got %v", err)
	}
}
