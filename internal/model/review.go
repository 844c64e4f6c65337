package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStatus is the lifecycle state of a review item.
type ReviewStatus string

const (
	StatusPending    ReviewStatus = "pending"
	StatusApproved   ReviewStatus = "approved"
	StatusOverridden ReviewStatus = "overridden"
)

// Decided reports whether the item has a human decision attached.
func (s ReviewStatus) Decided() bool {
	return s == StatusApproved || s == StatusOverridden
}

// Suggestion is the matching engine's output for one transaction.
// Recomputed on every run; it replaces the prior value wholesale.
// Nominal/TaxCode are empty when confidence fell below the usable floor.
type Suggestion struct {
	TxnID        string
	Nominal      string
	TaxCode      string
	Confidence   decimal.Decimal // 0..1
	Explanations []string        // most decisive first
}

// Note is one entry in a review item's append-only audit log.
type Note struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Text   string    `json:"text,omitempty"`
}

// ReviewItem tracks one transaction through review. One item per
// transaction ID per client; never deleted, corrections land as new
// notes and status transitions.
type ReviewItem struct {
	Txn          BankTransaction
	Suggestion   Suggestion
	Status       ReviewStatus
	NominalFinal string
	TaxCodeFinal string
	Notes        []Note
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
