// Package export renders decided review items into an audit-trail CSV
// per a named column profile. Output is deterministic: fixed ordering,
// fixed path per profile, so identical decided state re-exports to a
// byte-identical file.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

// Result reports where an export landed and how many rows it carries.
// Zero rows is a valid outcome, not an error.
type Result struct {
	Path string
	Rows int
}

var fieldResolvers = map[string]func(model.ReviewItem) string{
	"transaction_id": func(i model.ReviewItem) string { return i.Txn.ID },
	"date":           func(i model.ReviewItem) string { return i.Txn.Date.Format("2006-01-02") },
	"description":    func(i model.ReviewItem) string { return i.Txn.DescriptionRaw },
	"details":        func(i model.ReviewItem) string { return i.Txn.DescriptionRaw },
	"account_id":     func(i model.ReviewItem) string { return i.Txn.AccountID },
	"direction":      func(i model.ReviewItem) string { return string(i.Txn.Direction) },
	"nominal_code":   func(i model.ReviewItem) string { return i.NominalFinal },
	"tax_code":       func(i model.ReviewItem) string { return i.TaxCodeFinal },
	"net_amount":     func(i model.ReviewItem) string { return i.Txn.Amount.StringFixed(2) },
	"status":         func(i model.ReviewItem) string { return string(i.Status) },
	"confidence": func(i model.ReviewItem) string {
		return i.Suggestion.Confidence.Mul(decimal.NewFromInt(100)).Round(0).String()
	},
}

// BuildRow maps one item to the profile's columns. Unknown fields
// render empty rather than failing a whole export.
func BuildRow(item model.ReviewItem, profile model.ExportProfile) []string {
	row := make([]string, len(profile.Columns))
	for i, col := range profile.Columns {
		if resolve, ok := fieldResolvers[col.Field]; ok {
			row[i] = resolve(item)
		}
	}
	return row
}

// Export writes all decided items to <outputsDir>/<profile>.csv,
// ordered by transaction date then ID. Pending items are excluded.
func Export(outputsDir string, items []model.ReviewItem, profile model.ExportProfile) (Result, error) {
	var decided []model.ReviewItem
	for _, item := range items {
		if item.Status.Decided() {
			decided = append(decided, item)
		}
	}
	sort.SliceStable(decided, func(i, j int) bool {
		if !decided[i].Txn.Date.Equal(decided[j].Txn.Date) {
			return decided[i].Txn.Date.Before(decided[j].Txn.Date)
		}
		return decided[i].Txn.ID < decided[j].Txn.ID
	})

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	headers := make([]string, len(profile.Columns))
	for i, col := range profile.Columns {
		headers[i] = col.Header
	}
	if err := cw.Write(headers); err != nil {
		return Result{}, fmt.Errorf("writing header: %w", err)
	}
	for i, item := range decided {
		if err := cw.Write(BuildRow(item, profile)); err != nil {
			return Result{}, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Result{}, fmt.Errorf("flushing export: %w", err)
	}

	if err := os.MkdirAll(outputsDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating outputs dir: %w", err)
	}
	path := filepath.Join(outputsDir, profile.Name+".csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing export: %w", err)
	}

	return Result{Path: path, Rows: len(decided)}, nil
}
