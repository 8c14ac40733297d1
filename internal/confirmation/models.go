// Package confirmation implements the community vote protocol that adjusts
// event confidence and lifetime, and scores voter accuracy once an event has
// enough votes for a consensus.
package confirmation

import (
	"errors"
	"time"
)

// Repository and service errors.
var (
	ErrConfirmationNotFound = errors.New("confirmation not found")
	ErrUnauthenticated      = errors.New("caller identity required")
	ErrInvalidVote          = errors.New("invalid vote value")
)

// Value is a user's opinion on an event.
type Value string

// Vote values.
const (
	ValueStillActive Value = "still_active"
	ValueCleared     Value = "cleared"
	ValueNotExists   Value = "not_exists"
)

// Valid reports whether v is a known vote value.
func (v Value) Valid() bool {
	switch v {
	case ValueStillActive, ValueCleared, ValueNotExists:
		return true
	}
	return false
}

// Negative reports whether the vote counts toward the early-expiry collapse.
func (v Value) Negative() bool {
	return v == ValueCleared || v == ValueNotExists
}

// ConfidenceDelta returns the confidence change one vote of this value
// applies to an event.
func (v Value) ConfidenceDelta() int {
	switch v {
	case ValueStillActive:
		return 10
	case ValueCleared:
		return -20
	case ValueNotExists:
		return -30
	}
	return 0
}

// Protocol constants.
const (
	// ConsensusMinVotes is the vote count at which consensus evaluation
	// starts running.
	ConsensusMinVotes = 5

	// CollapseNegativeVotes is the negative-vote count that collapses an
	// event's TTL to a forced early expiry.
	CollapseNegativeVotes = 3

	// StillActiveExtension is the TTL extension for a still_active vote.
	StillActiveExtension = 30 * time.Minute

	// CollapseTTL is the forced remaining lifetime after enough negative
	// votes.
	CollapseTTL = 15 * time.Minute
)

// Confirmation is one user's vote on one event. At most one confirmation
// exists per (user, event); repeat votes update the record in place.
type Confirmation struct {
	ID        string
	EventID   string
	UserID    string
	Value     Value
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Consensus is the outcome of a majority evaluation on one event.
type Consensus struct {
	EventID    string
	TotalVotes int
	Majority   Value
	Tally      map[Value]int
	// CorrectVoters are the users whose current vote matches the majority.
	CorrectVoters []string
}
