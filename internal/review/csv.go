package review

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

// Header is the CSV header for queue.csv.
const Header = "txn_id,date,amount,direction,description_raw,description_clean,account_id," +
	"nominal_suggested,tax_code_suggested,confidence,explanations,status," +
	"nominal_final,tax_code_final,notes,created_at,updated_at"

const (
	numFields      = 17
	dateFormat     = "2006-01-02"
	colTxnID       = 0
	colDate        = 1
	colAmount      = 2
	colDirection   = 3
	colDescRaw     = 4
	colDescClean   = 5
	colAccountID   = 6
	colNomSugg     = 7
	colTaxSugg     = 8
	colConfidence  = 9
	colExplanation = 10
	colStatus      = 11
	colNomFinal    = 12
	colTaxFinal    = 13
	colNotes       = 14
	colCreatedAt   = 15
	colUpdatedAt   = 16
)

// ReadItems reads all review items from a queue.csv reader.
func ReadItems(r io.Reader) ([]model.ReviewItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading queue CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var items []model.ReviewItem
	for i, rec := range records[1:] {
		item, err := UnmarshalItem(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// WriteItems writes review items to a queue.csv writer (including header).
func WriteItems(w io.Writer, items []model.ReviewItem) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, item := range items {
		row, err := MarshalItem(item)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalItem converts a ReviewItem to a CSV row. Explanations and
// notes are JSON-encoded in their columns so free text survives
// round-tripping.
func MarshalItem(item model.ReviewItem) ([]string, error) {
	explanations, err := json.Marshal(item.Suggestion.Explanations)
	if err != nil {
		return nil, fmt.Errorf("encoding explanations: %w", err)
	}
	notes, err := json.Marshal(item.Notes)
	if err != nil {
		return nil, fmt.Errorf("encoding notes: %w", err)
	}

	row := make([]string, numFields)
	row[colTxnID] = item.Txn.ID
	row[colDate] = item.Txn.Date.Format(dateFormat)
	row[colAmount] = item.Txn.Amount.StringFixed(2)
	row[colDirection] = string(item.Txn.Direction)
	row[colDescRaw] = item.Txn.DescriptionRaw
	row[colDescClean] = item.Txn.DescriptionClean
	row[colAccountID] = item.Txn.AccountID
	row[colNomSugg] = item.Suggestion.Nominal
	row[colTaxSugg] = item.Suggestion.TaxCode
	row[colConfidence] = item.Suggestion.Confidence.String()
	row[colExplanation] = string(explanations)
	row[colStatus] = string(item.Status)
	row[colNomFinal] = item.NominalFinal
	row[colTaxFinal] = item.TaxCodeFinal
	row[colNotes] = string(notes)
	row[colCreatedAt] = item.CreatedAt.UTC().Format(time.RFC3339)
	row[colUpdatedAt] = item.UpdatedAt.UTC().Format(time.RFC3339)
	return row, nil
}

// UnmarshalItem converts a CSV row to a ReviewItem.
func UnmarshalItem(record []string) (model.ReviewItem, error) {
	if len(record) != numFields {
		return model.ReviewItem{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.ReviewItem{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.ReviewItem{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	confidence, err := decimal.NewFromString(record[colConfidence])
	if err != nil {
		return model.ReviewItem{}, fmt.Errorf("parsing confidence %q: %w", record[colConfidence], err)
	}

	var explanations []string
	if record[colExplanation] != "" {
		if err := json.Unmarshal([]byte(record[colExplanation]), &explanations); err != nil {
			return model.ReviewItem{}, fmt.Errorf("decoding explanations: %w", err)
		}
	}
	var notes []model.Note
	if record[colNotes] != "" {
		if err := json.Unmarshal([]byte(record[colNotes]), &notes); err != nil {
			return model.ReviewItem{}, fmt.Errorf("decoding notes: %w", err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339, record[colCreatedAt])
	if err != nil {
		return model.ReviewItem{}, fmt.Errorf("parsing created_at %q: %w", record[colCreatedAt], err)
	}
	updatedAt, err := time.Parse(time.RFC3339, record[colUpdatedAt])
	if err != nil {
		return model.ReviewItem{}, fmt.Errorf("parsing updated_at %q: %w", record[colUpdatedAt], err)
	}

	return model.ReviewItem{
		Txn: model.BankTransaction{
			ID:               record[colTxnID],
			Date:             date,
			Amount:           amount,
			Direction:        model.Direction(record[colDirection]),
			DescriptionRaw:   record[colDescRaw],
			DescriptionClean: record[colDescClean],
			AccountID:        record[colAccountID],
		},
		Suggestion: model.Suggestion{
			TxnID:        record[colTxnID],
			Nominal:      record[colNomSugg],
			TaxCode:      record[colTaxSugg],
			Confidence:   confidence,
			Explanations: explanations,
		},
		Status:       model.ReviewStatus(record[colStatus]),
		NominalFinal: record[colNomFinal],
		TaxCodeFinal: record[colTaxFinal],
		Notes:        notes,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
