package models

import "time"

// PriceObservation is one asset's signed price entry from the oracle
// service, already normalized. Not mutated after creation.
type PriceObservation struct {
	Asset      string    `json:"asset"`
	MsgHash    string    `json:"msg_hash"`
	Price      string    `json:"price"`     // normalized decimal string
	RawPrice   string    `json:"raw_price"` // provider value, untouched
	ObservedAt time.Time `json:"timestamp"`
}

// ValidationResult is the outcome of judging and submitting one
// observation. Ephemeral; aggregated into round counters only.
type ValidationResult struct {
	MsgHash string
	Asset   string
	Price   string
	IsValid bool
	Success bool
	Err     error
}

// RoundSummary aggregates one account's round.
type RoundSummary struct {
	Valid   int
	Invalid int
	Errored int
}

func (s RoundSummary) Total() int { return s.Valid + s.Invalid + s.Errored }
