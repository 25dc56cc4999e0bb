package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
	"github.com/jask/splitledger/internal/service"
)

func TestMoney(t *testing.T) {
	p := Printer{Currency: "₹"}
	assert.Equal(t, "₹1549.00", p.Money(154900))
	assert.Equal(t, "-₹0.05", p.Money(-5))
	assert.Equal(t, "₹0.00", p.Money(0))
}

func TestMetricsReport(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{W: &buf, Currency: "₹"}
	p.Metrics(recon.Metrics{
		NetConsumptionCents: 154900,
		SoloSpendCents:      64900,
		PayerShareCents:     60000,
		BorrowerShareCents:  30000,
		CashOutflowCents:    664900,
		FloatCents:          510000,
		Categories: []recon.CategoryAmount{
			{Category: "Entertainment", Cents: 64900, Percent: 41.9},
		},
		Stats: recon.Stats{
			TotalRecords: 7,
			BankRecords:  4,
			BankStatus:   map[model.Status]int{model.StatusLinked: 1, model.StatusUnlinked: 2},
		},
		UnlinkedPayers: []recon.UnlinkedPayer{{Date: "2026-03-05", Description: "Team lunch", TotalCents: 100000, OwedCents: 75000}},
	})
	out := buf.String()
	require.Contains(t, out, "₹1549.00")
	require.Contains(t, out, "₹6649.00")
	require.Contains(t, out, "Entertainment")
	require.Contains(t, out, "41.9")
	require.Contains(t, out, "linked 1, unlinked 2")
	require.Contains(t, out, "Team lunch")
	require.Contains(t, out, "₹750.00 owed to you")
}

func TestSuggestionsMarksPreselected(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{W: &buf, Currency: "$"}
	p.Suggestions([]recon.Suggestion{{
		Shared:      model.SharedRecord{ID: "s1", Description: "Swiggy dinner", TotalCents: 100000},
		Candidates:  []recon.Candidate{{Bank: model.BankRecord{ID: "b1", Description: "SWIGGY", AmountCents: -100000}, Score: 0.97}},
		Preselected: "b1",
	}, {
		Shared: model.SharedRecord{ID: "s2", Description: "Cab"},
	}})
	out := buf.String()
	require.Contains(t, out, "*")
	require.Contains(t, out, "0.97")
	require.Contains(t, out, "no candidates")

	buf.Reset()
	p.Suggestions(nil)
	require.Contains(t, buf.String(), "nothing to review")
}

func TestProcessReportListsDroppedRows(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{W: &buf, Currency: "$"}
	p.Process(service.ProcessResult{
		Bank: service.IngestResult{Imported: 3, Skipped: 1, Excluded: 2, Errors: []error{assert.AnError}},
	})
	out := buf.String()
	require.Contains(t, out, "3 imported, 1 duplicate, 2 outside month")
	require.Contains(t, out, "dropped: "+assert.AnError.Error())
}

func TestComparisonReport(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{W: &buf, Currency: "₹"}
	food := recon.CategoryChange{Category: "Food & Dining", PreviousCents: 100000, CurrentCents: 150000, ChangePct: 50, Direction: recon.Increase,
		Reason: "6 Swiggy orders", Recommendation: "Cook 3 more meals/week to save ₹3,000/month"}
	health := recon.CategoryChange{Category: "Health", PreviousCents: 10000, CurrentCents: 4000, ChangePct: -60, Direction: recon.Decrease}
	p.Comparison(service.Comparison{
		Previous:   &model.Session{Month: "2026-02"},
		Changes:    []recon.CategoryChange{health, food},
		Highlights: recon.Highlights{Increases: []recon.CategoryChange{food}, Decreases: []recon.CategoryChange{health}},
	})
	out := buf.String()
	assert.Contains(t, out, "2026-02")
	assert.Contains(t, out, "6 Swiggy orders")
	assert.Contains(t, out, "Cook 3 more meals")
	assert.Contains(t, out, "saved ₹60.00")
}
