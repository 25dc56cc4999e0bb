package recon

import (
	"math"
	"sort"
	"time"

	"github.com/jask/splitledger/internal/model"
)

const (
	changeThresholdPct = 10.0

	recurringMinCount     = 3
	recurringMinInterval  = 25.0
	recurringMaxInterval  = 35.0
	recurringMaxSpreadPct = 15.0
)

// Direction of a category change between two sessions.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// CategoryChange compares one category across two sessions.
type CategoryChange struct {
	Category      string
	PreviousCents int64
	CurrentCents  int64
	ChangePct     float64
	Direction     Direction
	// Reason and Recommendation are set on highlighted increases.
	Reason         string
	Recommendation string
}

// CompareCategories reports categories that moved by at least 10% since
// the previous session. Categories absent from prev are skipped.
func CompareCategories(prev, cur []CategoryAmount) []CategoryChange {
	before := make(map[string]int64, len(prev))
	for _, c := range prev {
		before[c.Category] = c.Cents
	}
	var out []CategoryChange
	for _, c := range cur {
		p, ok := before[c.Category]
		if !ok || p == 0 {
			continue
		}
		pct := round(float64(c.Cents-p)*100/float64(p), 1)
		if math.Abs(pct) < changeThresholdPct {
			continue
		}
		dir := Increase
		if pct < 0 {
			dir = Decrease
		}
		out = append(out, CategoryChange{
			Category:      c.Category,
			PreviousCents: p,
			CurrentCents:  c.Cents,
			ChangePct:     pct,
			Direction:     dir,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].ChangePct) > math.Abs(out[j].ChangePct)
	})
	return out
}

// Recurring is a detected monthly payment.
type Recurring struct {
	Merchant     string
	Count        int
	IntervalDays int
	AverageCents int64
	TotalCents   int64
	FirstDate    time.Time
	LastDate     time.Time
	Category     string
}

// DetectRecurring groups non-transfer debits by merchant and keeps groups
// of three or more with a mean interval of 25 to 35 days and an amount
// spread of at most 15% of the mean. Highest average first.
func DetectRecurring(records []model.BankRecord) []Recurring {
	groups := map[string][]model.BankRecord{}
	for _, r := range records {
		if !r.IsDebit() || r.Status == model.StatusTransfer {
			continue
		}
		if m := SuggestPattern(r.Description); m != "" {
			groups[m] = append(groups[m], r)
		}
	}
	var out []Recurring
	for merchant, txns := range groups {
		if len(txns) < recurringMinCount {
			continue
		}
		sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
		var days int
		var total, lo, hi int64
		lo = math.MaxInt64
		for i, t := range txns {
			if i > 0 {
				days += model.DaysApart(t.Date, txns[i-1].Date)
			}
			a := t.AbsCents()
			total += a
			if a < lo {
				lo = a
			}
			if a > hi {
				hi = a
			}
		}
		interval := float64(days) / float64(len(txns)-1)
		avg := total / int64(len(txns))
		if avg <= 0 || interval < recurringMinInterval || interval > recurringMaxInterval {
			continue
		}
		if float64(hi-lo)*100/float64(avg) > recurringMaxSpreadPct {
			continue
		}
		cat := txns[0].Category
		if cat == "" {
			cat = model.CategoryOther
		}
		out = append(out, Recurring{
			Merchant:     merchant,
			Count:        len(txns),
			IntervalDays: int(math.Round(interval)),
			AverageCents: avg,
			TotalCents:   total,
			FirstDate:    txns[0].Date,
			LastDate:     txns[len(txns)-1].Date,
			Category:     cat,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageCents != out[j].AverageCents {
			return out[i].AverageCents > out[j].AverageCents
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}
