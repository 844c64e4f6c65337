// Package review owns the per-client review queue: one item per
// transaction ID, the pending/approved/overridden state machine, and
// the append-only note history. All mutations are durable before they
// return.
package review

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

// NotFoundError reports an unknown transaction ID.
type NotFoundError struct {
	TxnID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found in review queue", e.TxnID)
}

// StateError reports an operation the item's current status forbids.
// The queue is left unchanged.
type StateError struct {
	TxnID  string
	Status model.ReviewStatus
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s transaction %s in status %q", e.Op, e.TxnID, e.Status)
}

// InputError reports a rejected operation with missing or invalid input.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// Queue is the durable review queue for one client, backed by a CSV
// file. Items keep source row order; new imports append.
type Queue struct {
	path  string
	items []model.ReviewItem
	byID  map[string]int
}

// Load reads the queue file at path. A missing file is an empty queue.
func Load(path string) (*Queue, error) {
	q := &Queue{path: path, byID: make(map[string]int)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening queue %s: %w", path, err)
	}
	defer f.Close()

	items, err := ReadItems(f)
	if err != nil {
		return nil, fmt.Errorf("reading queue %s: %w", path, err)
	}
	q.items = items
	for i, item := range items {
		q.byID[item.Txn.ID] = i
	}
	return q, nil
}

// Items returns a copy of all items in queue order.
func (q *Queue) Items() []model.ReviewItem {
	out := make([]model.ReviewItem, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items.
func (q *Queue) Len() int { return len(q.items) }

// Get returns one item by transaction ID.
func (q *Queue) Get(txnID string) (model.ReviewItem, error) {
	idx, ok := q.byID[txnID]
	if !ok {
		return model.ReviewItem{}, &NotFoundError{TxnID: txnID}
	}
	return q.items[idx], nil
}

// Decided returns the items with a human decision, in queue order.
func (q *Queue) Decided() []model.ReviewItem {
	var out []model.ReviewItem
	for _, item := range q.items {
		if item.Status.Decided() {
			out = append(out, item)
		}
	}
	return out
}

// Apply merges a freshly computed suggestion batch into the queue in a
// single pass. New transactions become pending items; known ones are
// updated in place. With reset, every item returns to pending and prior
// final codes are discarded (notes survive — the audit trail is
// cumulative, decisions are not). Without reset, decided items keep
// their status and final codes and only still-pending items get the new
// suggestion.
func (q *Queue) Apply(txns []model.BankTransaction, suggestions []model.Suggestion, reset bool, now time.Time) error {
	if len(txns) != len(suggestions) {
		return &InputError{Reason: fmt.Sprintf(
			"transactions (%d) and suggestions (%d) must be the same length", len(txns), len(suggestions))}
	}

	next := q.Items()
	nextIdx := make(map[string]int, len(q.byID))
	for id, i := range q.byID {
		nextIdx[id] = i
	}

	if reset {
		for i := range next {
			if next[i].Status == model.StatusPending {
				continue
			}
			next[i].Status = model.StatusPending
			next[i].NominalFinal = ""
			next[i].TaxCodeFinal = ""
			next[i].Notes = append(next[i].Notes, model.Note{At: now, Action: "reset", Text: "decision discarded on re-import"})
			next[i].UpdatedAt = now
		}
	}

	for i, txn := range txns {
		sugg := suggestions[i]
		if idx, ok := nextIdx[txn.ID]; ok {
			if next[idx].Status != model.StatusPending {
				continue
			}
			next[idx].Txn = txn
			next[idx].Suggestion = sugg
			next[idx].Notes = append(next[idx].Notes, model.Note{At: now, Action: "suggestion-refreshed"})
			next[idx].UpdatedAt = now
			continue
		}
		next = append(next, model.ReviewItem{
			Txn:        txn,
			Suggestion: sugg,
			Status:     model.StatusPending,
			Notes:      []model.Note{{At: now, Action: "imported"}},
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		nextIdx[txn.ID] = len(next) - 1
	}

	if err := q.save(next); err != nil {
		return err
	}
	q.items = next
	q.byID = nextIdx
	return nil
}

// Approve accepts the current suggestion as-is. Only pending items can
// be approved; approving twice is rejected, not silently repeated.
func (q *Queue) Approve(txnID, note string, now time.Time) (model.ReviewItem, error) {
	idx, ok := q.byID[txnID]
	if !ok {
		return model.ReviewItem{}, &NotFoundError{TxnID: txnID}
	}

	item := q.items[idx]
	if item.Status != model.StatusPending {
		return model.ReviewItem{}, &StateError{TxnID: txnID, Status: item.Status, Op: "approve"}
	}
	if item.Suggestion.Nominal == "" {
		return model.ReviewItem{}, &InputError{
			Reason: fmt.Sprintf("transaction %s has no suggested nominal code to approve; override instead", txnID)}
	}

	item.Status = model.StatusApproved
	if item.NominalFinal == "" {
		item.NominalFinal = item.Suggestion.Nominal
	}
	if item.TaxCodeFinal == "" {
		item.TaxCodeFinal = item.Suggestion.TaxCode
	}
	item.Notes = append(item.Notes, model.Note{At: now, Action: "approved", Text: note})
	item.UpdatedAt = now

	return q.replace(idx, item)
}

// Override records human-supplied final codes. Allowed from any status
// so a wrong approval can be corrected; both codes are required.
func (q *Queue) Override(txnID, nominal, taxCode, note string, now time.Time) (model.ReviewItem, error) {
	idx, ok := q.byID[txnID]
	if !ok {
		return model.ReviewItem{}, &NotFoundError{TxnID: txnID}
	}
	if strings.TrimSpace(nominal) == "" || strings.TrimSpace(taxCode) == "" {
		return model.ReviewItem{}, &InputError{Reason: "override requires both nominal code and tax code"}
	}

	item := q.items[idx]
	item.Status = model.StatusOverridden
	item.NominalFinal = nominal
	item.TaxCodeFinal = taxCode
	item.Notes = append(item.Notes, model.Note{At: now, Action: "overridden", Text: note})
	item.UpdatedAt = now

	return q.replace(idx, item)
}

// replace persists the queue with one item swapped; in-memory state
// only changes after the write succeeds.
func (q *Queue) replace(idx int, item model.ReviewItem) (model.ReviewItem, error) {
	next := q.Items()
	next[idx] = item
	if err := q.save(next); err != nil {
		return model.ReviewItem{}, err
	}
	q.items = next
	return item, nil
}

func (q *Queue) save(items []model.ReviewItem) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteItems(&buf, items); err != nil {
		return err
	}
	if err := os.WriteFile(q.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return nil
}
