package recon

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jask/splitledger/internal/model"
)

const (
	highlightTop          = 3
	dominantMerchantCount = 5
	largePurchaseMaxCount = 3
)

var recommendations = map[string]string{
	"Food & Dining":     "Cook 3 more meals/week to save ₹3,000/month",
	"Groceries":         "Plan weekly meals to reduce waste",
	"Shopping":          "Set monthly budget of ₹5,000",
	"Transport":         "Consider metro pass for ₹1,200/month",
	"Entertainment":     "Limit to 2 outings/month",
	"Bills & Utilities": "Review subscriptions and optimize",
	"Health":            "Check for unnecessary medical expenses",
}

const defaultRecommendation = "Set a monthly budget to control spending"

var merchantTitle = cases.Title(language.English)

// Highlights are the largest category moves of a comparison. Increases
// carry a reason and a recommendation.
type Highlights struct {
	Increases []CategoryChange
	Decreases []CategoryChange
}

// Highlight keeps the three largest increases and decreases of changes,
// which must be ordered by absolute change as CompareCategories returns
// them. records are the current session's bank records.
func Highlight(changes []CategoryChange, records []model.BankRecord) Highlights {
	var h Highlights
	for _, c := range changes {
		switch {
		case c.Direction == Increase && len(h.Increases) < highlightTop:
			c.Reason = IncreaseReason(c.Category, records)
			c.Recommendation = Recommendation(c.Category)
			h.Increases = append(h.Increases, c)
		case c.Direction == Decrease && len(h.Decreases) < highlightTop:
			h.Decreases = append(h.Decreases, c)
		}
	}
	return h
}

// IncreaseReason explains a category increase from its debits: a merchant
// with five or more orders, otherwise the number of purchases.
func IncreaseReason(category string, records []model.BankRecord) string {
	var debits []model.BankRecord
	for _, r := range records {
		if r.IsDebit() && r.Category == category {
			debits = append(debits, r)
		}
	}
	sort.SliceStable(debits, func(i, j int) bool { return debits[i].AmountCents < debits[j].AmountCents })

	counts := map[string]int{}
	top := ""
	for _, d := range debits {
		m := SuggestPattern(d.Description)
		if m == "" {
			continue
		}
		counts[m]++
		if top == "" || counts[m] > counts[top] {
			top = m
		}
	}
	if top != "" && counts[top] >= dominantMerchantCount {
		return fmt.Sprintf("%d %s orders", counts[top], merchantTitle.String(top))
	}
	if len(debits) > 0 && len(debits) <= largePurchaseMaxCount {
		return fmt.Sprintf("%d large purchases", len(debits))
	}
	return fmt.Sprintf("%d transactions", len(debits))
}

// Recommendation returns the advice shown for a category that grew.
func Recommendation(category string) string {
	if r, ok := recommendations[category]; ok {
		return r
	}
	return defaultRecommendation
}
