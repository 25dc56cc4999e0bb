package recon

import (
	"context"
	"sort"
	"strings"

	"github.com/jask/splitledger/internal/model"
)

const rentTolerancePct = 5

// DetectTransfers marks UNLINKED bank records matching the transfer table
// as TRANSFER with the transfer-type label.
func (e *Engine) DetectTransfers(ctx context.Context, book *Book, sink Sink) (int, error) {
	marked := 0
	for _, b := range book.BankRecords() {
		if b.Status != model.StatusUnlinked {
			continue
		}
		label, ok := TransferCategory(b.Description)
		if !ok {
			continue
		}
		if err := sink.MarkTransfer(ctx, b.ID, label); err != nil {
			return marked, err
		}
		b.Status = model.StatusTransfer
		b.Category, b.CategorySource = label, model.CategoryFromTransfer
		marked++
	}
	return marked, nil
}

// Categorize assigns a category to every record whose category is owned
// by the classifier. Records categorized by a transfer, a settlement or a
// manual link are left alone. Only changes are written.
func (e *Engine) Categorize(ctx context.Context, book *Book, sink Sink) (int, error) {
	rules := append([]model.Rule(nil), e.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].CreatedAt.After(rules[j].CreatedAt) })

	changed := 0
	for _, b := range book.BankRecords() {
		if b.Status == model.StatusTransfer || !b.CategorySource.Automatic() {
			continue
		}
		cat, from := e.ClassifyBank(rules, *b)
		if cat == b.Category && from == b.CategorySource {
			continue
		}
		if err := sink.SetCategory(ctx, model.SourceBank, b.ID, cat, from); err != nil {
			return changed, err
		}
		b.Category, b.CategorySource = cat, from
		changed++
	}
	for _, s := range book.SharedRecords() {
		if !s.CategorySource.Automatic() {
			continue
		}
		cat, from := classifyShared(rules, *s)
		if cat == s.Category && from == s.CategorySource {
			continue
		}
		if err := sink.SetCategory(ctx, model.SourceSplitwise, s.ID, cat, from); err != nil {
			return changed, err
		}
		s.Category, s.CategorySource = cat, from
		changed++
	}
	return changed, nil
}

// ClassifyBank applies, in order: user rules, household names, the rent
// figure, the keyword table and finally Other. rules must be newest first.
func (e *Engine) ClassifyBank(rules []model.Rule, b model.BankRecord) (string, model.CategorySource) {
	for _, r := range rules {
		if r.AppliesTo(model.SourceBank) && r.Matches(b.Description) {
			return r.Category, model.CategoryFromRule
		}
	}
	desc := strings.ToLower(b.Description)
	for _, name := range e.Config.Household {
		if n := strings.ToLower(strings.TrimSpace(name)); n != "" && strings.Contains(desc, n) {
			return model.CategoryFamily, model.CategoryFromHousehold
		}
	}
	if rent := e.Config.MonthlyRentCents; rent > 0 && b.IsDebit() {
		if absInt(b.AbsCents()-rent)*100 <= rentTolerancePct*rent {
			return model.CategoryRent, model.CategoryFromRent
		}
	}
	if label, ok := KeywordCategory(b.Description); ok {
		return label, model.CategoryFromKeyword
	}
	return model.CategoryOther, model.CategoryFromDefault
}

func classifyShared(rules []model.Rule, s model.SharedRecord) (string, model.CategorySource) {
	for _, r := range rules {
		if r.AppliesTo(model.SourceSplitwise) && r.Matches(s.Description) {
			return r.Category, model.CategoryFromRule
		}
	}
	return NormalizeFeedCategory(s.FeedCategory), model.CategoryFromFeed
}
