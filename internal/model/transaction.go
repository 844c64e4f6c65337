package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies which side of the bank account a transaction hit.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// DirectionOf derives the direction from a signed amount.
// Negative = money out = debit.
func DirectionOf(amount decimal.Decimal) Direction {
	if amount.IsNegative() {
		return DirectionDebit
	}
	return DirectionCredit
}

// BankTransaction is one normalized bank CSV row. Immutable once created;
// the ID is derived from the source row so re-importing the same file
// yields the same IDs.
type BankTransaction struct {
	ID               string
	Date             time.Time
	Amount           decimal.Decimal // signed, two decimal places
	Direction        Direction
	DescriptionRaw   string
	DescriptionClean string
	AccountID        string
}

// HistoryRecord is a prior coded posting from the legacy ledger export.
// Read-only reference data for the matching engine.
type HistoryRecord struct {
	ID               string
	Date             time.Time
	Amount           decimal.Decimal
	NominalCode      string
	TaxCode          string
	DescriptionRaw   string
	DescriptionClean string
	VendorHint       string // leading cleaned tokens, may be empty
}
