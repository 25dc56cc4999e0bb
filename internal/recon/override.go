package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jask/splitledger/internal/model"
)

const (
	suggestWindowDays  = 5
	suggestMaxCands    = 3
	preselectThreshold = 0.85
)

// Candidate is one ranked bank suggestion for an unresolved record.
type Candidate struct {
	Bank        model.BankRecord
	Score       float64
	AmountScore float64
	DateScore   float64
	TextScore   float64
}

// Suggestion is an unresolved shared record with up to three candidates.
// Preselected names the top candidate when it scores at or above 0.85; it
// is never linked without confirmation.
type Suggestion struct {
	Shared      model.SharedRecord
	Candidates  []Candidate
	Preselected string
}

// Unresolved lists every UNLINKED PAYER record with its ranked candidates.
func Unresolved(book *Book) []Suggestion {
	var out []Suggestion
	for _, s := range unresolvedPayers(book) {
		out = append(out, Suggest(book, *s))
	}
	return out
}

// Suggest ranks UNLINKED bank debits within five days and 15% of the
// record's total.
func Suggest(book *Book, s model.SharedRecord) Suggestion {
	sg := Suggestion{Shared: s}
	target := absInt(s.TotalCents)
	for _, b := range book.BankRecords() {
		if b.Status != model.StatusUnlinked || !b.IsDebit() {
			continue
		}
		if model.DaysApart(b.Date, s.Date) > suggestWindowDays {
			continue
		}
		amt := b.AbsCents()
		if amt*100 < target*85 || amt*100 > target*115 {
			continue
		}
		sg.Candidates = append(sg.Candidates, ScoreCandidate(s, *b))
	}
	sort.SliceStable(sg.Candidates, func(i, j int) bool {
		return sg.Candidates[i].Score > sg.Candidates[j].Score
	})
	if len(sg.Candidates) > suggestMaxCands {
		sg.Candidates = sg.Candidates[:suggestMaxCands]
	}
	if len(sg.Candidates) > 0 && sg.Candidates[0].Score >= preselectThreshold {
		sg.Preselected = sg.Candidates[0].Bank.ID
	}
	return sg
}

// ScoreCandidate weighs amount (40%), date (30%) and description (30%).
func ScoreCandidate(s model.SharedRecord, b model.BankRecord) Candidate {
	c := Candidate{Bank: b}
	target := absInt(s.TotalCents)
	diff := absInt(b.AbsCents() - target)
	switch {
	case diff < amountToleranceCents:
		c.AmountScore = 0.40
	case diff*100 < 5*target:
		c.AmountScore = 0.35
	case diff*100 < 15*target:
		c.AmountScore = 0.20
	}
	switch days := model.DaysApart(b.Date, s.Date); {
	case days == 0:
		c.DateScore = 0.30
	case days == 1:
		c.DateScore = 0.25
	case days <= 3:
		c.DateScore = 0.15
	case days <= 5:
		c.DateScore = 0.10
	}
	c.TextScore = 0.30 * Similarity(s.Description, b.Description)
	c.Score = round(c.AmountScore+c.DateScore+c.TextScore, 2)
	return c
}

// ManualLink validates a confirmed pairing and returns the change to
// commit. Settlement records keep settlement semantics; other records copy
// the shared category onto the bank side.
func ManualLink(book *Book, sharedID, bankID string) (LinkChange, error) {
	s, ok := book.Shared[sharedID]
	if !ok {
		return LinkChange{}, fmt.Errorf("shared record %s: %w", sharedID, model.ErrNotFound)
	}
	b, ok := book.Bank[bankID]
	if !ok {
		return LinkChange{}, fmt.Errorf("bank record %s: %w", bankID, model.ErrNotFound)
	}
	if s.Status != model.StatusUnlinked {
		return LinkChange{}, fmt.Errorf("shared record %s is %s: %w", sharedID, s.Status, model.ErrStateConflict)
	}
	if b.Status != model.StatusUnlinked {
		return LinkChange{}, fmt.Errorf("bank record %s is %s: %w", bankID, b.Status, model.ErrStateConflict)
	}
	change := LinkChange{
		Link: model.Link{
			SessionID:  s.SessionID,
			SharedID:   s.ID,
			BankID:     b.ID,
			Confidence: 1.0,
			Method:     model.MethodManual,
		},
		Status: model.StatusLinked,
	}
	switch {
	case s.IsSettlement():
		change.Status = model.StatusTransfer
		change.Category, change.CategorySource = model.CategorySettlement, model.CategoryFromSettlement
	case s.Category != "":
		change.Category, change.CategorySource = s.Category, model.CategoryFromManual
	default:
		change.Category, change.CategorySource = NormalizeFeedCategory(s.FeedCategory), model.CategoryFromManual
	}
	return change, nil
}

// ValidateSkip checks that the shared record exists and is UNLINKED.
func ValidateSkip(book *Book, sharedID, reason string) error {
	s, ok := book.Shared[sharedID]
	if !ok {
		return fmt.Errorf("shared record %s: %w", sharedID, model.ErrNotFound)
	}
	if s.Status != model.StatusUnlinked {
		return fmt.Errorf("shared record %s is %s: %w", sharedID, s.Status, model.ErrStateConflict)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("skip reason: %w", model.ErrInvalidInput)
	}
	return nil
}

// SkipReason formats the stored reason for a manual skip.
func SkipReason(reason string) string {
	return model.MethodManualSkip + ":" + strings.TrimSpace(reason)
}
