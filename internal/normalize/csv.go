// Package normalize parses raw bank and ledger-history CSV exports into
// the canonical record model. Column names vary across bank exports, so
// columns are resolved through header alias sets rather than positions.
package normalize

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/txnid"
)

// Accepted header aliases, matched case-insensitively after trimming.
var (
	bankDateHeaders    = []string{"date", "transaction date"}
	bankAmountHeaders  = []string{"amount", "value", "net amount"}
	bankDescHeaders    = []string{"description", "details", "narrative", "description_raw"}
	bankAccountHeaders = []string{"account", "account id", "account number"}
	bankDirHeaders     = []string{"direction", "dr/cr"}

	histDateHeaders    = []string{"date"}
	histAmountHeaders  = []string{"net amount", "net", "amount"}
	histDescHeaders    = []string{"details", "description"}
	histNominalHeaders = []string{"nominal code", "nominal", "account"}
	histTaxHeaders     = []string{"tax code", "tax"}
	histRefHeaders     = []string{"reference", "ref"}
)

var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02/01/06",
}

// SkippedRow records one malformed row that was left out of a parse.
type SkippedRow struct {
	File   string
	Row    int // 1-based data row number (header excluded)
	Reason string
}

func (s SkippedRow) String() string {
	return fmt.Sprintf("%s row %d: %s", s.File, s.Row, s.Reason)
}

// HeaderError means the file's header row satisfies no alias set.
// Unlike row-level problems it is fatal for the whole file.
type HeaderError struct {
	File    string
	Missing string
	Aliases []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: no %s column found (accepted headers: %s)",
		e.File, e.Missing, strings.Join(e.Aliases, ", "))
}

// header maps lower-cased column names to their position.
type header map[string]int

func (h header) resolve(aliases []string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := h[a]; ok {
			return idx, true
		}
	}
	return 0, false
}

func (h header) value(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func readAll(file, text string) ([][]string, header, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file, header row required", file)
	}

	h := make(header, len(records[0]))
	for i, name := range records[0] {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return records[1:], h, nil
}

// ParseDate tries the accepted bank/ledger date formats in order.
func ParseDate(value string) (time.Time, error) {
	candidate := strings.TrimSpace(value)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, candidate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", value)
}

// ParseAmount parses a ledger amount, tolerating thousands separators
// and parenthesized negatives, into a signed two-decimal value.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}

// ParseBank parses raw bank CSV text into ordered BankTransactions.
// Malformed rows accumulate as diagnostics; an unrecognized header is a
// fatal *HeaderError.
func ParseBank(file, text string) ([]model.BankTransaction, []SkippedRow, error) {
	rows, h, err := readAll(file, text)
	if err != nil {
		return nil, nil, err
	}

	dateIdx, ok := h.resolve(bankDateHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "date", Aliases: bankDateHeaders}
	}
	amountIdx, ok := h.resolve(bankAmountHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "amount", Aliases: bankAmountHeaders}
	}
	descIdx, ok := h.resolve(bankDescHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "description", Aliases: bankDescHeaders}
	}
	accountIdx, hasAccount := h.resolve(bankAccountHeaders)
	dirIdx, hasDir := h.resolve(bankDirHeaders)

	var txns []model.BankTransaction
	var skipped []SkippedRow
	for i, rec := range rows {
		rowNum := i + 1

		dateRaw := h.value(rec, dateIdx)
		amountRaw := h.value(rec, amountIdx)
		descRaw := h.value(rec, descIdx)

		date, err := ParseDate(dateRaw)
		if err != nil {
			skipped = append(skipped, SkippedRow{File: file, Row: rowNum, Reason: err.Error()})
			continue
		}
		amount, err := ParseAmount(amountRaw)
		if err != nil {
			skipped = append(skipped, SkippedRow{File: file, Row: rowNum, Reason: err.Error()})
			continue
		}

		direction := model.DirectionOf(amount)
		if hasDir {
			declared := strings.ToLower(h.value(rec, dirIdx))
			if declared != "" && declared != string(direction) {
				skipped = append(skipped, SkippedRow{
					File: file,
					Row:  rowNum,
					Reason: fmt.Sprintf("direction column %q disagrees with amount sign (%s)",
						declared, direction),
				})
				continue
			}
		}

		account := "default"
		if hasAccount {
			if v := h.value(rec, accountIdx); v != "" {
				account = v
			}
		}

		txns = append(txns, model.BankTransaction{
			ID:               txnid.New(dateRaw, amountRaw, descRaw, strconv.Itoa(rowNum)),
			Date:             date,
			Amount:           amount,
			Direction:        direction,
			DescriptionRaw:   descRaw,
			DescriptionClean: CleanDescription(descRaw),
			AccountID:        account,
		})
	}
	return txns, skipped, nil
}

// ParseHistory parses raw ledger-history CSV text into HistoryRecords.
func ParseHistory(file, text string) ([]model.HistoryRecord, []SkippedRow, error) {
	rows, h, err := readAll(file, text)
	if err != nil {
		return nil, nil, err
	}

	dateIdx, ok := h.resolve(histDateHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "date", Aliases: histDateHeaders}
	}
	amountIdx, ok := h.resolve(histAmountHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "net amount", Aliases: histAmountHeaders}
	}
	descIdx, ok := h.resolve(histDescHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "details", Aliases: histDescHeaders}
	}
	nominalIdx, ok := h.resolve(histNominalHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "nominal code", Aliases: histNominalHeaders}
	}
	taxIdx, ok := h.resolve(histTaxHeaders)
	if !ok {
		return nil, nil, &HeaderError{File: file, Missing: "tax code", Aliases: histTaxHeaders}
	}
	refIdx, hasRef := h.resolve(histRefHeaders)

	var entries []model.HistoryRecord
	var skipped []SkippedRow
	for i, rec := range rows {
		rowNum := i + 1

		dateRaw := h.value(rec, dateIdx)
		amountRaw := h.value(rec, amountIdx)
		descRaw := h.value(rec, descIdx)
		nominal := h.value(rec, nominalIdx)
		tax := h.value(rec, taxIdx)

		ref := strconv.Itoa(rowNum)
		if hasRef {
			if v := h.value(rec, refIdx); v != "" {
				ref = v
			}
		}

		date, err := ParseDate(dateRaw)
		if err != nil {
			skipped = append(skipped, SkippedRow{File: file, Row: rowNum, Reason: err.Error()})
			continue
		}
		amount, err := ParseAmount(amountRaw)
		if err != nil {
			skipped = append(skipped, SkippedRow{File: file, Row: rowNum, Reason: err.Error()})
			continue
		}
		if nominal == "" {
			skipped = append(skipped, SkippedRow{File: file, Row: rowNum, Reason: "nominal code is empty"})
			continue
		}

		clean := CleanDescription(descRaw)
		entries = append(entries, model.HistoryRecord{
			ID:               txnid.New(dateRaw, amountRaw, descRaw, nominal, ref),
			Date:             date,
			Amount:           amount,
			NominalCode:      nominal,
			TaxCode:          tax,
			DescriptionRaw:   descRaw,
			DescriptionClean: clean,
			VendorHint:       VendorHint(clean),
		})
	}
	return entries, skipped, nil
}
