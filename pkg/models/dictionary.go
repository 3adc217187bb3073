package models

import "time"

// ReplaceWord is an active source→target substitution entry (spec §3).
type ReplaceWord struct {
	Source    string
	Target    string
	UpdatedAt time.Time
}

// SpecialWord is an active user-dictionary / "protected" entry (spec §3).
type SpecialWord struct {
	Word      string
	UpdatedAt time.Time
}

// MeaninglessWord is a stop-list entry (spec §3).
type MeaninglessWord struct {
	Word      string
	UpdatedAt time.Time
}

// PendingStatus is the review status of a staged proposal.
type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusApproved PendingStatus = "approved"
	PendingStatusRejected PendingStatus = "rejected"
)

// PendingReplaceWord is an AI-proposed replace-dictionary delta awaiting
// human review (spec §3).
type PendingReplaceWord struct {
	ID              string
	Source          string
	Target          string
	Status          PendingStatus
	ConfidenceScore float64
	OccurrenceCount int
	ExampleMessages []string
	Transformation  string
	DiscoveredAt    time.Time
}

// PendingSpecialWord is an AI-proposed (or rule-auto-seeded) special-word
// delta awaiting human review (spec §3).
type PendingSpecialWord struct {
	ID              string
	Word            string
	Type            string
	Status          PendingStatus
	ConfidenceScore float64
	OccurrenceCount int
	ExampleMessages []string
	AutoAdded       bool
	DiscoveredAt    time.Time
}

// CurrencyRate is a currency→TWD conversion rate row (spec §3).
type CurrencyRate struct {
	Currency  string
	RateToTWD float64
	UpdatedAt time.Time
}
