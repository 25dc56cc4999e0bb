package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jask/splitledger/internal/model"
)

// Amount converts cents to a decimal currency amount.
func Amount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CategoryAmount is one row of the consumption breakdown.
type CategoryAmount struct {
	Category string
	Cents    int64
	Percent  float64
}

// UnlinkedPayer flags a shared expense the user fronted that has no bank
// counterpart; its my_share may be double counted with solo spend.
type UnlinkedPayer struct {
	ID           string
	Date         string
	Description  string
	TotalCents   int64
	MyShareCents int64
	OwedCents    int64
}

// Stats are record counts and simple expense figures.
type Stats struct {
	TotalRecords        int
	BankRecords         int
	SharedRecords       int
	BankStatus          map[model.Status]int
	SharedStatus        map[model.Status]int
	AverageExpenseCents int64
	LargestExpenseCents int64
	LargestExpense      string
}

// Metrics is the consumption summary of one session.
type Metrics struct {
	NetConsumptionCents int64
	SoloSpendCents      int64
	PayerShareCents     int64
	BorrowerShareCents  int64
	CashOutflowCents    int64
	FloatCents          int64
	Categories          []CategoryAmount
	Stats               Stats
	UnlinkedPayers      []UnlinkedPayer
}

// ComputeMetrics derives net consumption and its breakdown. Net
// consumption is UNLINKED non-transfer bank debits plus my_share of every
// PAYER and BORROWER record; the breakdown covers the same contributions.
func ComputeMetrics(book *Book) Metrics {
	m := Metrics{Stats: Stats{
		BankStatus:   map[model.Status]int{},
		SharedStatus: map[model.Status]int{},
	}}
	byCat := map[string]int64{}

	var expenseTotal int64
	var expenseCount int64
	for _, b := range book.BankRecords() {
		m.Stats.BankStatus[b.Status]++
		if !b.IsDebit() {
			continue
		}
		m.CashOutflowCents += b.AbsCents()
		if b.Status != model.StatusTransfer && !IsTransferCategory(b.Category) {
			expenseTotal += b.AbsCents()
			expenseCount++
			if b.AbsCents() > m.Stats.LargestExpenseCents {
				m.Stats.LargestExpenseCents = b.AbsCents()
				m.Stats.LargestExpense = b.Description
			}
		}
		if b.Status == model.StatusUnlinked && !IsTransferCategory(b.Category) {
			m.SoloSpendCents += b.AbsCents()
			byCat[categoryOrOther(b.Category)] += b.AbsCents()
		}
	}
	for _, s := range book.SharedRecords() {
		m.Stats.SharedStatus[s.Status]++
		switch s.Role {
		case model.RolePayer:
			m.PayerShareCents += s.MyShareCents
		case model.RoleBorrower:
			m.BorrowerShareCents += s.MyShareCents
		default:
			continue
		}
		if s.MyShareCents != 0 {
			byCat[categoryOrOther(NormalizeFeedCategory(s.Category))] += s.MyShareCents
		}
		if s.Role == model.RolePayer && s.Status == model.StatusUnlinked {
			m.UnlinkedPayers = append(m.UnlinkedPayers, UnlinkedPayer{
				ID:           s.ID,
				Date:         s.Date.Format("2006-01-02"),
				Description:  s.Description,
				TotalCents:   s.TotalCents,
				MyShareCents: s.MyShareCents,
				OwedCents:    s.TotalCents - s.MyShareCents,
			})
		}
	}

	m.NetConsumptionCents = m.SoloSpendCents + m.PayerShareCents + m.BorrowerShareCents
	m.FloatCents = m.CashOutflowCents - m.NetConsumptionCents
	m.Stats.BankRecords = len(book.Bank)
	m.Stats.SharedRecords = len(book.Shared)
	m.Stats.TotalRecords = m.Stats.BankRecords + m.Stats.SharedRecords
	if expenseCount > 0 {
		m.Stats.AverageExpenseCents = expenseTotal / expenseCount
	}

	for cat, cents := range byCat {
		if cents == 0 {
			continue
		}
		pct := 0.0
		if m.NetConsumptionCents != 0 {
			pct = round(float64(cents)*100/float64(m.NetConsumptionCents), 1)
		}
		m.Categories = append(m.Categories, CategoryAmount{Category: cat, Cents: cents, Percent: pct})
	}
	sortCategories(m.Categories)
	return m
}

func sortCategories(cats []CategoryAmount) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Cents != cats[j].Cents {
			return cats[i].Cents > cats[j].Cents
		}
		return cats[i].Category < cats[j].Category
	})
}

func categoryOrOther(c string) string {
	if c == "" || c == model.CategoryUncategorized {
		return model.CategoryOther
	}
	return c
}
