package confirmation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/confirmation"
	"github.com/lucasmontegu/outly/internal/database"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/gamification"
)

type fixture struct {
	svc    *confirmation.Service
	events *event.InMemoryRepository
	game   *gamification.Service
}

func newFixture() *fixture {
	events := event.NewInMemoryRepository()
	game := gamification.NewService(gamification.ServiceConfig{
		Repository: gamification.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	svc := confirmation.NewService(confirmation.ServiceConfig{
		Events:        events,
		Confirmations: confirmation.NewInMemoryRepository(),
		Gamification:  game,
		Tx:            database.NewSerialTxRunner(),
		Logger:        zerolog.Nop(),
	})
	return &fixture{svc: svc, events: events, game: game}
}

// seedEvent inserts an event with the given confidence and TTL.
func (f *fixture) seedEvent(t *testing.T, confidence int, ttl time.Time) *event.Event {
	t.Helper()
	ev := &event.Event{
		ID:              "evt_test",
		Type:            event.TypeTraffic,
		Subtype:         "accident",
		Location:        event.Point{Lat: 52.37, Lng: 4.89},
		Severity:        3,
		Source:          event.SourceUser,
		ConfidenceScore: confidence,
		TTL:             ttl,
		GridCell:        "1047_97",
	}
	if err := f.events.Insert(context.Background(), ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func TestCast_FirstVoteOnEvent(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 60, now.Add(time.Hour))
	ctx := context.Background()

	res, err := f.svc.Cast(ctx, "user123", "evt_test", confirmation.ValueStillActive, now)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}

	if res.Event.ConfidenceScore != 70 {
		t.Errorf("expected confidence 70, got %d", res.Event.ConfidenceScore)
	}
	// still_active extends the TTL by 30 minutes.
	if !res.Event.TTL.Equal(now.Add(time.Hour + 30*time.Minute)) {
		t.Errorf("expected TTL extended by 30m, got %v", res.Event.TTL)
	}

	stats, err := f.game.GetStats(ctx, "user123")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.TotalVotes != 1 {
		t.Errorf("expected 1 vote in stats, got %d", stats.TotalVotes)
	}
	// 5 base + 10 first responder on a fresh event.
	if stats.TotalPoints != 15 {
		t.Errorf("expected 15 points, got %d", stats.TotalPoints)
	}
	if stats.CurrentStreak != 1 || stats.Level != 1 {
		t.Errorf("expected streak 1 level 1, got streak %d level %d", stats.CurrentStreak, stats.Level)
	}
}

func TestCast_EventNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Cast(context.Background(), "user123", "evt_missing", confirmation.ValueCleared, time.Now())
	if !errors.Is(err, event.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestCast_Unauthenticated(t *testing.T) {
	f := newFixture()
	f.seedEvent(t, 60, time.Now().Add(time.Hour))

	_, err := f.svc.Cast(context.Background(), "", "evt_test", confirmation.ValueCleared, time.Now())
	if !errors.Is(err, confirmation.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCast_InvalidVote(t *testing.T) {
	f := newFixture()
	f.seedEvent(t, 60, time.Now().Add(time.Hour))

	_, err := f.svc.Cast(context.Background(), "user123", "evt_test", confirmation.Value("maybe"), time.Now())
	if !errors.Is(err, confirmation.ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
}

// TestCast_UpdateReversesOldDelta verifies the key vote-update property:
// voting still_active then changing to cleared lands on the same confidence
// as if only cleared had ever been cast.
func TestCast_UpdateReversesOldDelta(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Baseline: a single cleared vote on confidence 60.
	direct := newFixture()
	direct.seedEvent(t, 60, now.Add(time.Hour))
	res, err := direct.svc.Cast(ctx, "user123", "evt_test", confirmation.ValueCleared, now)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	want := res.Event.ConfidenceScore
	if want != 40 {
		t.Fatalf("baseline: expected 40, got %d", want)
	}

	// Same end state via still_active then a change of mind.
	changed := newFixture()
	changed.seedEvent(t, 60, now.Add(time.Hour))
	if _, err := changed.svc.Cast(ctx, "user123", "evt_test", confirmation.ValueStillActive, now); err != nil {
		t.Fatalf("cast: %v", err)
	}
	res, err = changed.svc.Cast(ctx, "user123", "evt_test", confirmation.ValueCleared, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("recast: %v", err)
	}

	if res.Event.ConfidenceScore != want {
		t.Errorf("expected confidence %d after vote change, got %d", want, res.Event.ConfidenceScore)
	}

	// The update didn't create a second confirmation or award extra points.
	stats, _ := changed.game.GetStats(ctx, "user123")
	if stats.TotalVotes != 1 {
		t.Errorf("expected vote update to keep 1 recorded vote, got %d", stats.TotalVotes)
	}
}

func TestCast_ConfidenceClamped(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 10, now.Add(time.Hour))
	ctx := context.Background()

	// 10 - 30 clamps to 0, not -20.
	res, err := f.svc.Cast(ctx, "user1", "evt_test", confirmation.ValueNotExists, now)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if res.Event.ConfidenceScore != 0 {
		t.Errorf("expected clamp to 0, got %d", res.Event.ConfidenceScore)
	}

	// Clamp is not reversible: changing the vote applies (new - old) to the
	// clamped value.
	res, err = f.svc.Cast(ctx, "user1", "evt_test", confirmation.ValueStillActive, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("recast: %v", err)
	}
	if res.Event.ConfidenceScore != 40 {
		t.Errorf("expected 0 + (10 - -30) = 40, got %d", res.Event.ConfidenceScore)
	}
}

// TestCast_TTLCollapse: the third negative vote forces ttl to now+15m
// regardless of the prior TTL.
func TestCast_TTLCollapse(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 100, now.Add(6*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.Cast(ctx, "user1", "evt_test", confirmation.ValueCleared, now); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if _, err := f.svc.Cast(ctx, "user2", "evt_test", confirmation.ValueCleared, now); err != nil {
		t.Fatalf("cast: %v", err)
	}

	third := now.Add(5 * time.Minute)
	res, err := f.svc.Cast(ctx, "user3", "evt_test", confirmation.ValueNotExists, third)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}

	if !res.Event.TTL.Equal(third.Add(15 * time.Minute)) {
		t.Errorf("expected TTL collapsed to now+15m, got %v", res.Event.TTL)
	}
}

func TestCast_ConsensusAtFiveVotes(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 60, now.Add(6*time.Hour))
	ctx := context.Background()

	// Four votes: no consensus yet.
	for i := 1; i <= 4; i++ {
		res, err := f.svc.Cast(ctx, fmt.Sprintf("user%d", i), "evt_test", confirmation.ValueStillActive, now)
		if err != nil {
			t.Fatalf("cast %d: %v", i, err)
		}
		if res.Consensus != nil {
			t.Fatalf("consensus ran at %d votes", i)
		}
	}

	res, err := f.svc.Cast(ctx, "user5", "evt_test", confirmation.ValueCleared, now)
	if err != nil {
		t.Fatalf("cast 5: %v", err)
	}
	if res.Consensus == nil {
		t.Fatal("expected consensus at 5 votes")
	}
	if res.Consensus.Majority != confirmation.ValueStillActive {
		t.Errorf("expected still_active majority, got %q", res.Consensus.Majority)
	}
	if len(res.Consensus.CorrectVoters) != 4 {
		t.Errorf("expected 4 correct voters, got %d", len(res.Consensus.CorrectVoters))
	}

	// Each correct voter got the +15 accuracy bonus on top of 5 base points.
	stats, _ := f.game.GetStats(ctx, "user2")
	if stats.TotalPoints != 20 {
		t.Errorf("expected 20 points for a correct voter, got %d", stats.TotalPoints)
	}
	if stats.CorrectVotes != 1 {
		t.Errorf("expected 1 correct vote, got %d", stats.CorrectVotes)
	}
}

func TestCast_TieBreaksByPrecedence(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 90, now.Add(6*time.Hour))
	ctx := context.Background()

	// 2 still_active, 2 cleared, then a 5th not_exists. With the 2-2-1
	// tally, still_active and cleared tie and precedence picks still_active.
	votes := []struct {
		user  string
		value confirmation.Value
	}{
		{"user1", confirmation.ValueStillActive},
		{"user2", confirmation.ValueStillActive},
		{"user3", confirmation.ValueCleared},
		{"user4", confirmation.ValueCleared},
		{"user5", confirmation.ValueNotExists},
	}

	var res *confirmation.Result
	var err error
	for _, v := range votes {
		res, err = f.svc.Cast(ctx, v.user, "evt_test", v.value, now)
		if err != nil {
			t.Fatalf("cast %s: %v", v.user, err)
		}
	}

	if res.Consensus.Majority != confirmation.ValueStillActive {
		t.Errorf("expected tie to break to still_active, got %q", res.Consensus.Majority)
	}
}

// TestCast_ConsensusRescoresOnRecompute documents the recompute-from-scratch
// behavior: every vote past the threshold reruns consensus, so voters
// matching a stable majority accrue a bonus per recompute.
func TestCast_ConsensusRescoresOnRecompute(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 60, now.Add(6*time.Hour))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := f.svc.Cast(ctx, fmt.Sprintf("user%d", i), "evt_test", confirmation.ValueStillActive, now); err != nil {
			t.Fatalf("cast %d: %v", i, err)
		}
	}

	after5, _ := f.game.GetStats(ctx, "user1")

	// A 6th vote triggers a second full recompute; user1 is credited again.
	if _, err := f.svc.Cast(ctx, "user6", "evt_test", confirmation.ValueStillActive, now); err != nil {
		t.Fatalf("cast 6: %v", err)
	}

	after6, _ := f.game.GetStats(ctx, "user1")
	if after6.CorrectVotes != after5.CorrectVotes+1 {
		t.Errorf("expected correct votes to grow on recompute, got %d then %d",
			after5.CorrectVotes, after6.CorrectVotes)
	}
	if after6.TotalPoints != after5.TotalPoints+15 {
		t.Errorf("expected +15 on recompute, got %d then %d", after5.TotalPoints, after6.TotalPoints)
	}
}

func TestGetMyVote(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	f.seedEvent(t, 60, now.Add(time.Hour))
	ctx := context.Background()

	if _, err := f.svc.GetMyVote(ctx, "user123", "evt_test"); !errors.Is(err, confirmation.ErrConfirmationNotFound) {
		t.Fatalf("expected ErrConfirmationNotFound before voting, got %v", err)
	}

	if _, err := f.svc.Cast(ctx, "user123", "evt_test", confirmation.ValueCleared, now); err != nil {
		t.Fatalf("cast: %v", err)
	}

	c, err := f.svc.GetMyVote(ctx, "user123", "evt_test")
	if err != nil {
		t.Fatalf("get my vote: %v", err)
	}
	if c.Value != confirmation.ValueCleared {
		t.Errorf("expected cleared, got %q", c.Value)
	}
}
