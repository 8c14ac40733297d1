package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/geo"
	"github.com/lucasmontegu/outly/internal/provider/resilience"
	"github.com/lucasmontegu/outly/internal/risk"
)

// defaultIncidentTTL is used when an incident reports no end time.
const defaultIncidentTTL = time.Hour

// EventSink is the slice of the event service the ingestor writes to.
type EventSink interface {
	UpsertFromFeed(ctx context.Context, input event.FeedInput, now time.Time) (*event.Event, error)
	ListInCells(ctx context.Context, cells []string, now time.Time) ([]*event.Event, error)
}

// RiskCalculator stores the per-cell snapshot after each fetch.
type RiskCalculator interface {
	Calculate(ctx context.Context, loc event.Point, weather *risk.WeatherConditions, traffic *risk.TrafficConditions, now time.Time) (*risk.RiskSnapshot, error)
}

// Config holds configuration for the ingestor. Any provider may be nil;
// its data simply never contributes.
type Config struct {
	Weather WeatherProvider
	Nowcast NowcastProvider
	Traffic TrafficProvider

	Events EventSink
	Risk   RiskCalculator

	// TrafficRadiusKm bounds the incident query around each monitored
	// point. Defaults to the scoring radius.
	TrafficRadiusKm float64

	// Metrics records fetch timings when set.
	Metrics *ProviderMetrics

	Logger zerolog.Logger
}

// Ingestor runs the provider fetch cycle for the monitored locations.
type Ingestor struct {
	weather WeatherProvider
	nowcast NowcastProvider
	traffic TrafficProvider
	events  EventSink
	risk    RiskCalculator
	radius  float64
	metrics *ProviderMetrics
	logger  zerolog.Logger
}

// NewIngestor creates a new ingestor.
func NewIngestor(cfg Config) *Ingestor {
	radius := cfg.TrafficRadiusKm
	if radius <= 0 {
		radius = risk.DefaultQueryRadiusKm
	}

	return &Ingestor{
		weather: cfg.Weather,
		nowcast: cfg.Nowcast,
		traffic: cfg.Traffic,
		events:  cfg.Events,
		risk:    cfg.Risk,
		radius:  radius,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// CycleStats summarizes one ingestion cycle.
type CycleStats struct {
	Points         int
	EventsCreated  int
	Snapshots      int
	ProviderErrors int
}

// Cycle fetches conditions for every monitored point, records alert and
// incident events, and stores a risk snapshot per point. A provider failure
// is logged and degrades that subscore to zero; it never aborts the cycle.
func (g *Ingestor) Cycle(ctx context.Context, points []event.Point, now time.Time) CycleStats {
	stats := CycleStats{Points: len(points)}

	for _, p := range points {
		g.cyclePoint(ctx, p, now, &stats)
	}

	g.logger.Info().
		Int("points", stats.Points).
		Int("events_created", stats.EventsCreated).
		Int("snapshots", stats.Snapshots).
		Int("provider_errors", stats.ProviderErrors).
		Msg("ingestion cycle finished")

	return stats
}

func (g *Ingestor) cyclePoint(ctx context.Context, p event.Point, now time.Time, stats *CycleStats) {
	var (
		report  *WeatherReport
		nowcast *Nowcast
		traffic *TrafficReport
		err     error
	)

	if g.weather != nil {
		start := time.Now()
		report, err = g.weather.Current(ctx, p.Lat, p.Lng)
		g.metrics.RecordFetch(ctx, g.weather.Name(), time.Since(start), err)
		if err != nil {
			g.providerError(g.weather.Name(), p, err, stats)
			report = nil
		} else {
			resilience.GlobalRegistry.RecordSuccess(g.weather.Name())
		}
	}
	if g.nowcast != nil {
		start := time.Now()
		nowcast, err = g.nowcast.Nowcast(ctx, p.Lat, p.Lng)
		g.metrics.RecordFetch(ctx, g.nowcast.Name(), time.Since(start), err)
		if err != nil {
			g.providerError(g.nowcast.Name(), p, err, stats)
			nowcast = nil
		} else {
			resilience.GlobalRegistry.RecordSuccess(g.nowcast.Name())
		}
	}
	if g.traffic != nil {
		start := time.Now()
		traffic, err = g.traffic.Traffic(ctx, p.Lat, p.Lng, g.radius)
		g.metrics.RecordFetch(ctx, g.traffic.Name(), time.Since(start), err)
		if err != nil {
			g.providerError(g.traffic.Name(), p, err, stats)
			traffic = nil
		} else {
			resilience.GlobalRegistry.RecordSuccess(g.traffic.Name())
		}
	}

	stats.EventsCreated += g.recordFeedEvents(ctx, p, report, traffic, now)

	if g.risk == nil {
		return
	}
	if _, err := g.risk.Calculate(ctx, p, weatherConditions(report, nowcast), trafficConditions(traffic), now); err != nil {
		g.logger.Error().
			Err(err).
			Float64("lat", p.Lat).
			Float64("lng", p.Lng).
			Msg("risk snapshot failed")
		return
	}
	stats.Snapshots++
}

func (g *Ingestor) providerError(name string, p event.Point, err error, stats *CycleStats) {
	stats.ProviderErrors++
	resilience.GlobalRegistry.RecordFailure(name, err)
	g.logger.Warn().
		Err(err).
		Str("provider", name).
		Float64("lat", p.Lat).
		Float64("lng", p.Lng).
		Msg("provider fetch failed")
}

// recordFeedEvents turns alerts and incidents into store events. An active
// event from the same source with the same subtype in the same cell counts
// as already recorded, so repeated cycles do not stack duplicates.
func (g *Ingestor) recordFeedEvents(ctx context.Context, p event.Point, report *WeatherReport, traffic *TrafficReport, now time.Time) int {
	inputs := g.feedInputs(p, report, traffic, now)
	if len(inputs) == 0 {
		return 0
	}

	seen := make(map[string]bool)
	var cells []string
	for _, in := range inputs {
		cell := geo.CellID(in.Location.Lat, in.Location.Lng)
		if !seen[cell] {
			seen[cell] = true
			cells = append(cells, cell)
		}
	}

	existing := make(map[string]bool)
	if active, err := g.events.ListInCells(ctx, cells, now); err == nil {
		for _, ev := range active {
			existing[feedKey(ev.Source, ev.Subtype, ev.GridCell)] = true
		}
	} else {
		g.logger.Warn().Err(err).Msg("feed dedupe lookup failed")
	}

	created := 0
	for _, in := range inputs {
		key := feedKey(in.Source, in.Subtype, geo.CellID(in.Location.Lat, in.Location.Lng))
		if existing[key] {
			continue
		}
		existing[key] = true

		if _, err := g.events.UpsertFromFeed(ctx, in, now); err != nil {
			g.logger.Error().
				Err(err).
				Str("source", string(in.Source)).
				Str("subtype", in.Subtype).
				Msg("feed event insert failed")
			continue
		}
		created++
	}
	return created
}

// feedInputs maps provider payloads to event inputs. Alerts already over
// and incidents with no usable location are dropped.
func (g *Ingestor) feedInputs(p event.Point, report *WeatherReport, traffic *TrafficReport, now time.Time) []event.FeedInput {
	var inputs []event.FeedInput

	if report != nil {
		for _, a := range report.Alerts {
			if !a.End.After(now) {
				continue
			}
			alert := a
			inputs = append(inputs, event.FeedInput{
				Type:     event.TypeWeather,
				Subtype:  subtypeSlug(a.Event),
				Location: p,
				Severity: a.Severity,
				Source:   event.SourceOpenWeatherMap,
				TTL:      a.End,
				RawData: &event.RawData{
					Source: event.SourceOpenWeatherMap,
					Alert: &event.AlertPayload{
						Event:  alert.Event,
						Sender: alert.Sender,
						Start:  &alert.Start,
						End:    &alert.End,
					},
				},
			})
		}
	}

	if traffic != nil {
		for _, inc := range traffic.Incidents {
			loc := inc.Location
			if loc.Lat == 0 && loc.Lng == 0 {
				loc = p
			}

			ttl := inc.EndTime
			if ttl.IsZero() || !ttl.After(now) {
				ttl = now.Add(defaultIncidentTTL)
			}

			incident := inc
			var end *time.Time
			if !incident.EndTime.IsZero() {
				end = &incident.EndTime
			}

			inputs = append(inputs, event.FeedInput{
				Type:        event.TypeTraffic,
				Subtype:     subtypeSlug(inc.Type),
				Location:    loc,
				RoutePoints: inc.Shape,
				Severity:    inc.Severity,
				Source:      event.SourceHere,
				TTL:         ttl,
				RawData: &event.RawData{
					Source: event.SourceHere,
					Incident: &event.IncidentPayload{
						Type:     incident.Type,
						Severity: incident.Severity,
						EndTime:  end,
					},
				},
			})
		}
	}

	return inputs
}

// weatherConditions builds the scoring input from whatever weather data the
// cycle managed to fetch.
func weatherConditions(report *WeatherReport, nowcast *Nowcast) *risk.WeatherConditions {
	if report == nil && nowcast == nil {
		return nil
	}

	cond := &risk.WeatherConditions{}
	if report != nil {
		cond.PrecipMMPerHour = report.PrecipMMPerHour
		cond.WindKMH = report.WindKMH
		cond.VisibilityM = report.VisibilityM
		for _, a := range report.Alerts {
			if a.Severity >= 4 {
				cond.SevereAlert = true
			}
		}
	}
	if nowcast != nil {
		cond.NowcastMaxPrecip = nowcast.MaxPrecipMMPerHour
	}
	return cond
}

func trafficConditions(traffic *TrafficReport) *risk.TrafficConditions {
	if traffic == nil {
		return nil
	}

	cond := &risk.TrafficConditions{JamFactor: traffic.JamFactor}
	for _, inc := range traffic.Incidents {
		cond.Incidents = append(cond.Incidents, risk.IncidentInput{Severity: inc.Severity})
	}
	return cond
}

func feedKey(source event.Source, subtype, cell string) string {
	return string(source) + "|" + subtype + "|" + cell
}

func subtypeSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
