package engine

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountantiq-dev/accountantiq/internal/export"
	"github.com/accountantiq-dev/accountantiq/internal/logger"
	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/review"
	"github.com/accountantiq-dev/accountantiq/internal/workspace"
)

const bankCSV = `Date,Description,Amount,Account
2024-01-15,TESCO STORES 1234,-45.00,acc-1
`

const historyCSV = `Date,Details,Net Amount,Nominal Code,Tax Code,Reference
2023-11-02,TESCO STORES 9921,-38.40,5020,T1,INV-1
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(t.TempDir(), DefaultOptions(), logger.Nop())
	e.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	return e
}

func TestImportReview_HistoricalPrecedent(t *testing.T) {
	e := newEngine(t)

	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Skipped)

	item := res.Items[0]
	assert.Equal(t, model.StatusPending, item.Status)
	assert.Equal(t, "5020", item.Suggestion.Nominal)
	assert.Equal(t, "T1", item.Suggestion.TaxCode)
	assert.True(t, item.Suggestion.Confidence.GreaterThan(decimal.Zero))
	assert.True(t, item.Suggestion.Confidence.LessThan(DefaultOptions().Matcher.RuleConfidence))
	require.NotEmpty(t, item.Suggestion.Explanations)
	assert.Contains(t, item.Suggestion.Explanations[0], "precedent")
}

func TestImportReview_RuleTierAfterAppend(t *testing.T) {
	e := newEngine(t)
	_, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)

	require.NoError(t, e.AppendRule("acme", "tesco", "tesco", "5020", "T1"))

	res, err := e.ImportReview("acme", bankCSV, historyCSV, true, false)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.True(t, item.Suggestion.Confidence.Equal(DefaultOptions().Matcher.RuleConfidence))
	require.NotEmpty(t, item.Suggestion.Explanations)
	assert.Contains(t, item.Suggestion.Explanations[0], `"tesco"`)
}

func TestImportReview_ReimportIsStable(t *testing.T) {
	e := newEngine(t)

	first, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	second, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)

	require.Len(t, second.Items, len(first.Items))
	assert.Equal(t, first.Items[0].Txn.ID, second.Items[0].Txn.ID)
}

func TestImportReview_NoResetPreservesDecisions(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	txnID := res.Items[0].Txn.ID

	_, err = e.ApproveItem("acme", txnID, "")
	require.NoError(t, err)

	after, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, after.Items[0].Status)
	assert.Equal(t, "5020", after.Items[0].NominalFinal)
}

func TestImportReview_ResetReturnsToPending(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	txnID := res.Items[0].Txn.ID

	_, err = e.ApproveItem("acme", txnID, "")
	require.NoError(t, err)

	after, err := e.ImportReview("acme", bankCSV, historyCSV, true, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, after.Items[0].Status)
	assert.Empty(t, after.Items[0].NominalFinal)
	assert.NotEmpty(t, after.Items[0].Notes, "audit trail survives reset")
}

func TestImportReview_AutoCreateRules(t *testing.T) {
	e := newEngine(t)
	// Three corroborating records push confidence to the exact-tier cap,
	// above the auto-create floor.
	history := `Date,Details,Net Amount,Nominal Code,Tax Code
2023-10-02,TESCO STORES 9921,-38.40,5020,T1
2023-11-02,TESCO STORES 8812,-41.00,5020,T1
2023-12-02,TESCO STORES 7130,-36.25,5020,T1
2024-01-02,TESCO STORES 5512,-44.10,5020,T1
2024-01-09,TESCO STORES 3307,-40.75,5020,T1
`
	res, err := e.ImportReview("acme", bankCSV, history, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RulesCreated)

	created, err := e.Rules("acme")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "tesco.*stores", created[0].Pattern)
	assert.Equal(t, "5020", created[0].Nominal)

	// Re-import does not create a duplicate.
	res, err = e.ImportReview("acme", bankCSV, history, true, true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RulesCreated)
}

func TestOverride_MissingNominalRejected(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	txnID := res.Items[0].Txn.ID

	_, err = e.OverrideItem("acme", txnID, "", "T1", "")
	require.Error(t, err)
	var ierr *review.InputError
	require.ErrorAs(t, err, &ierr)

	queue, err := e.GetQueue("acme")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, queue[0].Status)
}

func TestApprove_DurableAcrossEngines(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, DefaultOptions(), logger.Nop())

	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	_, err = e.ApproveItem("acme", res.Items[0].Txn.ID, "")
	require.NoError(t, err)

	// A fresh engine over the same data root sees the decision.
	e2 := New(dir, DefaultOptions(), logger.Nop())
	queue, err := e2.GetQueue("acme")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, model.StatusApproved, queue[0].Status)
}

func TestClientsAreIsolated(t *testing.T) {
	e := newEngine(t)

	_, err := e.ImportReview("a", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	otherBank := "Date,Description,Amount\n2024-01-20,COFFEE SHOP,-3.20\n"
	_, err = e.ImportReview("b", otherBank, historyCSV, false, false)
	require.NoError(t, err)

	require.NoError(t, e.AppendRule("a", "tesco", "tesco", "5020", "T1"))

	queueA, err := e.GetQueue("a")
	require.NoError(t, err)
	queueB, err := e.GetQueue("b")
	require.NoError(t, err)
	require.Len(t, queueA, 1)
	require.Len(t, queueB, 1)
	assert.NotEqual(t, queueA[0].Txn.ID, queueB[0].Txn.ID)

	rulesB, err := e.Rules("b")
	require.NoError(t, err)
	assert.Empty(t, rulesB, "rules appended to a never reach b")

	_, err = e.ApproveItem("b", queueA[0].Txn.ID, "")
	var nerr *review.NotFoundError
	require.ErrorAs(t, err, &nerr, "a's transactions are invisible to b")
}

func TestGetQueue_UnknownClient(t *testing.T) {
	e := newEngine(t)
	_, err := e.GetQueue("ghost")
	var uerr *UnknownClientError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "ghost", uerr.Slug)
}

func TestImportReview_InvalidSlug(t *testing.T) {
	e := newEngine(t)
	_, err := e.ImportReview("../escape", bankCSV, historyCSV, false, false)
	var serr *workspace.SlugError
	require.ErrorAs(t, err, &serr)
}

func TestBackfillRules(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)

	_, err = e.OverrideItem("acme", res.Items[0].Txn.ID, "5030", "T0", "repairs really")
	require.NoError(t, err)

	created, err := e.BackfillRules("acme")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	all, err := e.Rules("acme")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "5030", all[0].Nominal)

	// Second backfill finds nothing new.
	created, err = e.BackfillRules("acme")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestExport_EndToEnd(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	txnID := res.Items[0].Txn.ID

	// Nothing decided yet: zero rows, not an error.
	out, err := e.Export("acme", export.DefaultProfileName)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Rows)

	_, err = e.ApproveItem("acme", txnID, "")
	require.NoError(t, err)

	out, err = e.Export("acme", export.DefaultProfileName)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Rows)
	first, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Contains(t, string(first), "5020")
	assert.Contains(t, string(first), txnID)

	// Re-export of identical state is byte-identical.
	out2, err := e.Export("acme", export.DefaultProfileName)
	require.NoError(t, err)
	second, err := os.ReadFile(out2.Path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExport_UnknownProfile(t *testing.T) {
	e := newEngine(t)
	_, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)

	_, err = e.Export("acme", "nope")
	var perr *export.UnknownProfileError
	require.ErrorAs(t, err, &perr)
}

func TestImportReview_BadHeaderFatal(t *testing.T) {
	e := newEngine(t)
	_, err := e.ImportReview("acme", "Foo,Bar\n1,2\n", historyCSV, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bank.csv")
}

func TestConcurrentOperations_SingleClient(t *testing.T) {
	e := newEngine(t)
	res, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
	require.NoError(t, err)
	txnID := res.Items[0].Txn.ID

	const workers = 8
	var wg sync.WaitGroup
	var approved atomic.Int32
	var mu sync.Mutex
	var approveErrs []error

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ApproveItem("acme", txnID, ""); err != nil {
				mu.Lock()
				approveErrs = append(approveErrs, err)
				mu.Unlock()
			} else {
				approved.Add(1)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.AppendRule("acme", fmt.Sprintf("vendor-%d", i), fmt.Sprintf("vendor%d", i), "5020", "T1")
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := e.GetQueue("acme")
			assert.NoError(t, err)
			assert.Len(t, items, 1)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ImportReview("acme", bankCSV, historyCSV, false, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Exactly one approval wins the pending item; every loser observes
	// the decided state rather than clobbering it.
	assert.Equal(t, int32(1), approved.Load())
	for _, err := range approveErrs {
		var serr *review.StateError
		assert.ErrorAs(t, err, &serr)
	}

	items, err := e.GetQueue("acme")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.StatusApproved, items[0].Status)
	assert.Equal(t, "5020", items[0].NominalFinal)

	// No appended rule was lost to a concurrent write.
	all, err := e.Rules("acme")
	require.NoError(t, err)
	assert.Len(t, all, workers)
}

func TestConcurrentImports_AcrossClients(t *testing.T) {
	e := newEngine(t)

	var wg sync.WaitGroup
	for _, slug := range []string{"north", "south"} {
		slug := slug
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.ImportReview(slug, bankCSV, historyCSV, false, false)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	require.NoError(t, e.AppendRule("north", "tesco", "tesco", "5020", "T1"))

	for _, slug := range []string{"north", "south"} {
		items, err := e.GetQueue(slug)
		require.NoError(t, err)
		assert.Len(t, items, 1, slug)
	}

	southRules, err := e.Rules("south")
	require.NoError(t, err)
	assert.Empty(t, southRules, "rules stay per-client under concurrent imports")
}
