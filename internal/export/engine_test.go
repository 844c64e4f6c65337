package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

func item(id, desc, amount string, day int, status model.ReviewStatus, nominal, tax string) model.ReviewItem {
	amt := decimal.RequireFromString(amount)
	return model.ReviewItem{
		Txn: model.BankTransaction{
			ID:             id,
			Date:           time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
			Amount:         amt,
			Direction:      model.DirectionOf(amt),
			DescriptionRaw: desc,
			AccountID:      "acc-1",
		},
		Suggestion:   model.Suggestion{TxnID: id, Confidence: decimal.RequireFromString("0.60")},
		Status:       status,
		NominalFinal: nominal,
		TaxCodeFinal: tax,
	}
}

func TestExport_DecidedOnlyOrdered(t *testing.T) {
	dir := t.TempDir()
	items := []model.ReviewItem{
		item("b-later", "SECOND", "-10.00", 20, model.StatusApproved, "5020", "T1"),
		item("zzz", "SAME DAY HIGH ID", "-1.00", 5, model.StatusOverridden, "5030", "T0"),
		item("aaa", "SAME DAY LOW ID", "-2.00", 5, model.StatusApproved, "5020", "T1"),
		item("pending", "NOT DECIDED", "-3.00", 1, model.StatusPending, "", ""),
	}

	res, err := Export(dir, items, DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, filepath.Join(dir, "default.csv"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	want := "Reference,Date,Details,Nominal Code,Tax Code,Net Amount\n" +
		"aaa,2024-01-05,SAME DAY LOW ID,5020,T1,-2.00\n" +
		"zzz,2024-01-05,SAME DAY HIGH ID,5030,T0,-1.00\n" +
		"b-later,2024-01-20,SECOND,5020,T1,-10.00\n"
	assert.Equal(t, want, string(data))
}

func TestExport_Idempotent(t *testing.T) {
	dir := t.TempDir()
	items := []model.ReviewItem{
		item("t1", "TESCO", "-45.00", 15, model.StatusApproved, "5020", "T1"),
	}

	first, err := Export(dir, items, DefaultProfile())
	require.NoError(t, err)
	firstData, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := Export(dir, items, DefaultProfile())
	require.NoError(t, err)
	secondData, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, firstData, secondData)
}

func TestExport_ZeroDecidedRows(t *testing.T) {
	dir := t.TempDir()
	items := []model.ReviewItem{
		item("t1", "PENDING", "-1.00", 1, model.StatusPending, "", ""),
	}

	res, err := Export(dir, items, DefaultProfile())
	require.NoError(t, err, "zero-row export is an outcome, not a failure")
	assert.Equal(t, 0, res.Rows)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "Reference,Date,Details,Nominal Code,Tax Code,Net Amount\n", string(data))
}

func TestLoadProfile_DefaultMaterialized(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProfile(dir, "default")
	require.NoError(t, err)
	assert.Len(t, p.Columns, 6)

	// Now present on disk and reloadable.
	_, err = os.Stat(filepath.Join(dir, "default.yaml"))
	require.NoError(t, err)
	again, err := LoadProfile(dir, "default")
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestLoadProfile_Unknown(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nope")
	var perr *UnknownProfileError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "nope", perr.Name)
}

func TestSaveAndLoadCustomProfile(t *testing.T) {
	dir := t.TempDir()
	custom := model.ExportProfile{
		Name: "audit",
		Columns: []model.ProfileColumn{
			{Field: "date", Header: "When"},
			{Field: "nominal_code", Header: "Code"},
			{Field: "status", Header: "Disposition"},
			{Field: "bogus_field", Header: "Blank"},
		},
	}
	require.NoError(t, SaveProfile(dir, custom))

	loaded, err := LoadProfile(dir, "audit")
	require.NoError(t, err)
	assert.Equal(t, custom, loaded)

	row := BuildRow(item("t1", "X", "-1.00", 2, model.StatusApproved, "5020", "T1"), loaded)
	assert.Equal(t, []string{"2024-01-02", "5020", "approved", ""}, row)
}
