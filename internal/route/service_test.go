package route_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
	"github.com/lucasmontegu/outly/internal/route"
)

const testUser = "usr_route_tester"

type fixture struct {
	routes *route.InMemoryRepository
	events *event.Service
	svc    *route.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	routes := route.NewInMemoryRepository()
	events := event.NewService(event.ServiceConfig{
		Repository: event.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	svc := route.NewService(route.ServiceConfig{
		Repository: routes,
		Events:     events,
		Logger:     zerolog.Nop(),
	})
	return &fixture{routes: routes, events: events, svc: svc}
}

func validInput() route.CreateInput {
	return route.CreateInput{
		Label:          "Home to office",
		Origin:         event.Point{Lat: 52.37, Lng: 4.89},
		Destination:    event.Point{Lat: 52.31, Lng: 4.76},
		DaysOfWeek:     []int{1, 2, 3, 4, 5},
		AlertThreshold: 60,
		AlertTimeLocal: "07:30",
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	rt, err := f.svc.Create(context.Background(), testUser, validInput(), now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if rt.ID == "" {
		t.Error("expected generated route id")
	}
	if rt.UserID != testUser {
		t.Errorf("user = %q, want %q", rt.UserID, testUser)
	}
	if rt.CachedScore != nil || rt.CachedAt != nil {
		t.Error("new route must start with an empty cache")
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	tests := []struct {
		name   string
		mutate func(*route.CreateInput)
		field  string
	}{
		{"missing label", func(in *route.CreateInput) { in.Label = "" }, "label"},
		{"origin latitude out of range", func(in *route.CreateInput) { in.Origin.Lat = 91 }, "origin.lat"},
		{"destination longitude out of range", func(in *route.CreateInput) { in.Destination.Lng = -181 }, "destination.lng"},
		{"no days", func(in *route.CreateInput) { in.DaysOfWeek = nil }, "daysOfWeek"},
		{"day out of range", func(in *route.CreateInput) { in.DaysOfWeek = []int{0} }, "daysOfWeek"},
		{"threshold out of range", func(in *route.CreateInput) { in.AlertThreshold = 101 }, "alertThreshold"},
		{"bad alert time", func(in *route.CreateInput) { in.AlertTimeLocal = "25:00" }, "alertTimeLocal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := f.svc.Create(context.Background(), testUser, input, now)

			var vErr *route.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range vErr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %+v", tt.field, vErr.Errors)
			}
		})
	}
}

func TestGet_OwnershipHidesOtherUsersRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rt, err := f.svc.Create(ctx, testUser, validInput(), now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.Get(ctx, "usr_someone_else", rt.ID); !errors.Is(err, route.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound for a foreign route, got %v", err)
	}
	if err := f.svc.Delete(ctx, "usr_someone_else", rt.ID); !errors.Is(err, route.ErrRouteNotFound) {
		t.Errorf("expected ErrRouteNotFound deleting a foreign route, got %v", err)
	}

	// Still there for the owner.
	if _, err := f.svc.Get(ctx, testUser, rt.ID); err != nil {
		t.Errorf("owner Get() error = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rt, err := f.svc.Create(ctx, testUser, validInput(), now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	label := "Office via the ring road"
	threshold := 40
	updated, err := f.svc.Update(ctx, testUser, rt.ID, route.UpdateInput{
		Label:          &label,
		AlertThreshold: &threshold,
	}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Label != label {
		t.Errorf("label = %q, want %q", updated.Label, label)
	}
	if updated.AlertThreshold != threshold {
		t.Errorf("threshold = %d, want %d", updated.AlertThreshold, threshold)
	}
	// Untouched fields survive.
	if updated.AlertTimeLocal != "07:30" {
		t.Errorf("alert time = %q, want unchanged", updated.AlertTimeLocal)
	}
}

func TestRoutesWithForecast_FreshCacheServedDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Minute)

	rt, err := f.svc.Create(ctx, testUser, validInput(), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Cached 10 minutes ago: inside the freshness window.
	cachedAt := now.Add(-10 * time.Minute)
	if err := f.routes.UpdateCache(ctx, rt.ID, 20, risk.ClassificationLow, cachedAt); err != nil {
		t.Fatalf("UpdateCache() error = %v", err)
	}

	statuses, err := f.svc.RoutesWithForecast(ctx, testUser, now)
	if err != nil {
		t.Fatalf("RoutesWithForecast() error = %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("got %d statuses, want 1", len(statuses))
	}

	st := statuses[0]
	if !st.FromCache {
		t.Error("expected the cached score to be served")
	}
	if st.Score != 20 {
		t.Errorf("score = %d, want cached 20", st.Score)
	}
	if st.Recommendation != route.RecommendLeaveNow {
		t.Errorf("recommendation = %q, want leave-now for a low cached score", st.Recommendation)
	}
	if !st.AsOf.Equal(cachedAt) {
		t.Errorf("AsOf = %v, want the cache timestamp %v", st.AsOf, cachedAt)
	}
}

func TestRoutesWithForecast_StaleCacheRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Minute)

	rt, err := f.svc.Create(ctx, testUser, validInput(), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Cached 20 minutes ago: past the freshness window, and deliberately
	// wrong so serving it would be visible.
	if err := f.routes.UpdateCache(ctx, rt.ID, 99, risk.ClassificationHigh, now.Add(-20*time.Minute)); err != nil {
		t.Fatalf("UpdateCache() error = %v", err)
	}

	statuses, err := f.svc.RoutesWithForecast(ctx, testUser, now)
	if err != nil {
		t.Fatalf("RoutesWithForecast() error = %v", err)
	}

	st := statuses[0]
	if st.FromCache {
		t.Error("stale cache must not be served")
	}
	// No active events near the origin; the live score is 0.
	if st.Score != 0 {
		t.Errorf("score = %d, want 0 from a live recompute", st.Score)
	}
	if !st.AsOf.Equal(now) {
		t.Errorf("AsOf = %v, want %v", st.AsOf, now)
	}
}

func TestRoutesWithForecast_SeesNearbyEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Minute)

	input := validInput()
	if _, err := f.svc.Create(ctx, testUser, input, now.Add(-time.Hour)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := f.events.UpsertFromFeed(ctx, event.FeedInput{
		Type:     event.TypeTraffic,
		Subtype:  "accident",
		Location: input.Origin,
		Severity: 5,
		Source:   event.SourceHere,
		TTL:      now.Add(time.Hour),
	}, now)
	if err != nil {
		t.Fatalf("UpsertFromFeed() error = %v", err)
	}

	statuses, err := f.svc.RoutesWithForecast(ctx, testUser, now)
	if err != nil {
		t.Fatalf("RoutesWithForecast() error = %v", err)
	}

	if statuses[0].Score == 0 {
		t.Error("expected a non-zero score with a severe incident at the origin")
	}
}

func TestRecomputeCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Minute)

	input := validInput()
	rt, err := f.svc.Create(ctx, testUser, input, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.events.UpsertFromFeed(ctx, event.FeedInput{
		Type:     event.TypeTraffic,
		Subtype:  "congestion",
		Location: input.Origin,
		Severity: 4,
		Source:   event.SourceHere,
		TTL:      now.Add(time.Hour),
	}, now)
	if err != nil {
		t.Fatalf("UpsertFromFeed() error = %v", err)
	}

	updated, err := f.svc.RecomputeCache(ctx, now)
	if err != nil {
		t.Fatalf("RecomputeCache() error = %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	stored, err := f.svc.Get(ctx, testUser, rt.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.CachedScore == nil || stored.CachedClassification == nil || stored.CachedAt == nil {
		t.Fatal("all three cache fields must be set together")
	}
	if *stored.CachedScore == 0 {
		t.Error("expected a non-zero cached score with an incident at the origin")
	}
	if !stored.CachedAt.Equal(now) {
		t.Errorf("cachedAt = %v, want %v", *stored.CachedAt, now)
	}

	// Immediately after a recompute the cache is fresh and served as-is.
	statuses, err := f.svc.RoutesWithForecast(ctx, testUser, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("RoutesWithForecast() error = %v", err)
	}
	if !statuses[0].FromCache {
		t.Error("expected a just-recomputed route to be served from cache")
	}
	if statuses[0].Score != *stored.CachedScore {
		t.Errorf("served score = %d, want cached %d", statuses[0].Score, *stored.CachedScore)
	}
}

func TestRecomputeCache_NoRoutes(t *testing.T) {
	f := newFixture(t)

	updated, err := f.svc.RecomputeCache(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("RecomputeCache() error = %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0", updated)
	}
}
