package recon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/splitledger/internal/model"
)

func TestComputeMetricsBreakdownSumsToNet(t *testing.T) {
	t.Parallel()

	borrow := payer("sw3", "2026-03-09", 90000, -30000, "Cab split")
	borrow.FeedCategory = "Bus/train"
	book, _, _ := run(t, quietEngine(),
		[]model.BankRecord{
			bank("b1", "2026-03-05", -100000, "POS RESTAURANT"), // linked to sw1
			bank("b2", "2026-03-06", -45050, "SWIGGY"),
			bank("b3", "2026-03-07", -500000, "ZERODHA"),
			bank("b4", "2026-03-08", 300000, "SALARY"),
			bank("b5", "2026-03-10", -12345, "MISC"),
		},
		[]model.SharedRecord{
			payer("sw1", "2026-03-05", 100000, 40000, "Restaurant"),
			payer("sw2", "2026-03-20", 80000, 60000, "Unmatched groceries"),
			borrow,
		})

	m := ComputeMetrics(book)
	require.Equal(t, int64(45050+12345), m.SoloSpendCents)
	require.Equal(t, int64(60000+20000), m.PayerShareCents)
	require.Equal(t, int64(30000), m.BorrowerShareCents)
	require.Equal(t, m.SoloSpendCents+m.PayerShareCents+m.BorrowerShareCents, m.NetConsumptionCents)
	require.Equal(t, int64(100000+45050+500000+12345), m.CashOutflowCents)
	require.Equal(t, m.CashOutflowCents-m.NetConsumptionCents, m.FloatCents)

	var sum int64
	var pct float64
	for _, c := range m.Categories {
		sum += c.Cents
		pct += c.Percent
	}
	require.Equal(t, m.NetConsumptionCents, sum)
	require.InDelta(t, 100, pct, 0.5)
	for i := 1; i < len(m.Categories); i++ {
		require.GreaterOrEqual(t, m.Categories[i-1].Cents, m.Categories[i].Cents)
	}

	require.Len(t, m.UnlinkedPayers, 1)
	require.Equal(t, "sw2", m.UnlinkedPayers[0].ID)
	require.Equal(t, int64(60000), m.UnlinkedPayers[0].OwedCents)

	require.Equal(t, 8, m.Stats.TotalRecords)
	require.Equal(t, 1, m.Stats.BankStatus[model.StatusTransfer])
	require.Equal(t, int64(100000), m.Stats.LargestExpenseCents)
}

func TestAmount(t *testing.T) {
	t.Parallel()
	require.Equal(t, "1234.50", Amount(123450).StringFixed(2))
	require.Equal(t, "-0.05", Amount(-5).StringFixed(2))
}

func TestCompareCategories(t *testing.T) {
	t.Parallel()

	prev := []CategoryAmount{{Category: "Food & Dining", Cents: 100000}, {Category: "Transport", Cents: 50000}, {Category: "Health", Cents: 10000}}
	cur := []CategoryAmount{{Category: "Food & Dining", Cents: 150000}, {Category: "Transport", Cents: 48000}, {Category: "Health", Cents: 4000}, {Category: "Shopping", Cents: 99999}}

	got := CompareCategories(prev, cur)
	require.Len(t, got, 2)
	require.Equal(t, "Health", got[0].Category)
	require.Equal(t, Decrease, got[0].Direction)
	require.InDelta(t, -60.0, got[0].ChangePct, 1e-9)
	require.Equal(t, "Food & Dining", got[1].Category)
	require.Equal(t, Increase, got[1].Direction)
}

func TestDetectRecurring(t *testing.T) {
	t.Parallel()

	recs := []model.BankRecord{
		bank("n1", "2026-01-05", -64900, "POS-NETFLIX.COM-1001"),
		bank("n2", "2026-02-05", -64900, "POS-NETFLIX.COM-1002"),
		bank("n3", "2026-03-06", -64900, "POS-NETFLIX.COM-1003"),
		bank("s1", "2026-01-02", -11900, "UPI-SPOTIFY-1"),
		bank("s2", "2026-03-02", -11900, "UPI-SPOTIFY-2"),
		bank("g1", "2026-01-10", -100000, "UPI-GYM-1"),
		bank("g2", "2026-02-10", -150000, "UPI-GYM-2"),
		bank("g3", "2026-03-10", -100000, "UPI-GYM-3"),
		bank("c1", "2026-01-01", 500000, "NEFT-SALARY-1"),
		bank("c2", "2026-02-01", 500000, "NEFT-SALARY-2"),
		bank("c3", "2026-03-01", 500000, "NEFT-SALARY-3"),
	}
	got := DetectRecurring(recs)
	require.Len(t, got, 1)
	require.Equal(t, "NETFLIX", got[0].Merchant)
	require.Equal(t, 3, got[0].Count)
	require.Equal(t, int64(64900), got[0].AverageCents)
	require.Equal(t, 30, got[0].IntervalDays)
}

func TestHighlightExplainsIncreases(t *testing.T) {
	t.Parallel()

	categorized := func(id, date string, cents int64, desc, category string) model.BankRecord {
		b := bank(id, date, cents, desc)
		b.Category = category
		return b
	}
	var recs []model.BankRecord
	for i := 0; i < 6; i++ {
		recs = append(recs, categorized(fmt.Sprintf("f%d", i), "2026-03-05", -30000, fmt.Sprintf("UPI-SWIGGY-%d", 1000+i), "Food & Dining"))
	}
	recs = append(recs,
		categorized("s1", "2026-03-06", -900000, "AMAZON", "Shopping"),
		categorized("s2", "2026-03-07", -800000, "FLIPKART", "Shopping"),
	)
	for i := 0; i < 4; i++ {
		recs = append(recs, categorized(fmt.Sprintf("t%d", i), "2026-03-08", -10000, fmt.Sprintf("CAB %c", 'A'+i), "Transport"))
	}

	changes := []CategoryChange{
		{Category: "Food & Dining", ChangePct: 80, Direction: Increase},
		{Category: "Health", ChangePct: -70, Direction: Decrease},
		{Category: "Shopping", ChangePct: 60, Direction: Increase},
		{Category: "Rent", ChangePct: -50, Direction: Decrease},
		{Category: "Transport", ChangePct: 40, Direction: Increase},
		{Category: "Gifts", ChangePct: 30, Direction: Increase},
		{Category: "Taxes", ChangePct: -20, Direction: Decrease},
		{Category: "Fees", ChangePct: -15, Direction: Decrease},
	}
	h := Highlight(changes, recs)
	require.Len(t, h.Increases, 3)
	require.Len(t, h.Decreases, 3)
	require.Equal(t, []string{"Health", "Rent", "Taxes"}, []string{h.Decreases[0].Category, h.Decreases[1].Category, h.Decreases[2].Category})

	require.Equal(t, "6 Swiggy orders", h.Increases[0].Reason)
	require.Equal(t, "Cook 3 more meals/week to save ₹3,000/month", h.Increases[0].Recommendation)
	require.Equal(t, "2 large purchases", h.Increases[1].Reason)
	require.Equal(t, "4 transactions", h.Increases[2].Reason)
	require.Equal(t, "Consider metro pass for ₹1,200/month", h.Increases[2].Recommendation)
	require.Empty(t, h.Decreases[0].Reason)

	require.Equal(t, "0 transactions", IncreaseReason("Gifts", recs))
	require.Equal(t, "Set a monthly budget to control spending", Recommendation("Gifts"))
}
