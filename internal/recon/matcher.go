package recon

import (
	"context"
	"time"

	"github.com/jask/splitledger/internal/model"
)

// amountToleranceCents is the "within one currency unit" rule shared by
// all three passes.
const amountToleranceCents = 100

// MatchSummary counts links per pass.
type MatchSummary struct {
	Exact      int
	FuzzyDate  int
	BlindTrust int
}

type candidate struct {
	bank  *model.BankRecord
	score float64
}

// Match runs the three passes in order. Each pass sees only what the
// previous one left, and each link is committed before the next record is
// considered.
func (e *Engine) Match(ctx context.Context, book *Book, sink Sink) (MatchSummary, error) {
	var sum MatchSummary
	var err error
	if sum.Exact, err = e.passExact(ctx, book, sink); err != nil {
		return sum, err
	}
	if sum.FuzzyDate, err = e.passFuzzyDate(ctx, book, sink); err != nil {
		return sum, err
	}
	sum.BlindTrust, err = e.passBlindTrust(ctx, book, sink)
	return sum, err
}

// unresolvedPayers lists UNLINKED PAYER records in date order.
func unresolvedPayers(book *Book) []*model.SharedRecord {
	var out []*model.SharedRecord
	for _, s := range book.SharedRecords() {
		if s.Role == model.RolePayer && s.Status == model.StatusUnlinked {
			out = append(out, s)
		}
	}
	return out
}

// debitsNear returns UNLINKED bank debits within windowDays of date whose
// absolute amount is within tolerance of targetCents, in book order.
func debitsNear(book *Book, date time.Time, windowDays int, targetCents int64) []*model.BankRecord {
	var out []*model.BankRecord
	for _, b := range book.BankRecords() {
		if b.Status != model.StatusUnlinked || !b.IsDebit() {
			continue
		}
		if model.DaysApart(b.Date, date) > windowDays {
			continue
		}
		if absInt(b.AbsCents()-targetCents) >= amountToleranceCents {
			continue
		}
		out = append(out, b)
	}
	return out
}

// pickBest returns the highest-similarity candidate; the first one wins a
// tie. Nothing is returned when the best score is below threshold.
func pickBest(desc string, banks []*model.BankRecord, threshold float64) (candidate, bool) {
	best := candidate{score: -1}
	for _, b := range banks {
		s := Similarity(desc, b.Description)
		if s > best.score {
			best = candidate{bank: b, score: s}
		}
	}
	if best.bank == nil || best.score < threshold {
		return candidate{}, false
	}
	return best, true
}

func (e *Engine) link(ctx context.Context, book *Book, sink Sink, s *model.SharedRecord, b *model.BankRecord, conf float64, method string) error {
	change := LinkChange{
		Link: model.Link{
			SessionID:  s.SessionID,
			SharedID:   s.ID,
			BankID:     b.ID,
			Confidence: round(conf, 4),
			Method:     method,
		},
		Status: model.StatusLinked,
	}
	if err := book.CommitLink(ctx, sink, change); err != nil {
		return err
	}
	e.log().Debug("linked",
		"shared_id", s.ID,
		"bank_id", b.ID,
		"method", method,
		"confidence", change.Link.Confidence)
	return nil
}

func (e *Engine) passExact(ctx context.Context, book *Book, sink Sink) (int, error) {
	linked := 0
	for _, s := range unresolvedPayers(book) {
		cands := debitsNear(book, s.Date, 0, s.TotalCents)
		switch len(cands) {
		case 0:
			continue
		case 1:
			if err := e.link(ctx, book, sink, s, cands[0], 1.0, model.MethodExact); err != nil {
				return linked, err
			}
		default:
			best, _ := pickBest(s.Description, cands, 0)
			if err := e.link(ctx, book, sink, s, best.bank, 0.90+0.10*best.score, model.MethodExactTieBreak); err != nil {
				return linked, err
			}
		}
		linked++
	}
	return linked, nil
}

func (e *Engine) passFuzzyDate(ctx context.Context, book *Book, sink Sink) (int, error) {
	linked := 0
	for _, s := range unresolvedPayers(book) {
		cands := debitsNear(book, s.Date, 2, s.TotalCents)
		best, ok := pickBest(s.Description, cands, 0.30)
		if !ok {
			continue
		}
		if err := e.link(ctx, book, sink, s, best.bank, 0.70+0.15*best.score, model.MethodFuzzyDate); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

func (e *Engine) passBlindTrust(ctx context.Context, book *Book, sink Sink) (int, error) {
	linked := 0
	for _, s := range unresolvedPayers(book) {
		cands := debitsNear(book, s.Date, 1, s.TotalCents)
		if len(cands) != 1 {
			continue
		}
		score := Similarity(s.Description, cands[0].Description)
		if score <= 0.15 {
			continue
		}
		if err := e.link(ctx, book, sink, s, cands[0], 0.60+0.15*score, model.MethodBlindTrust); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
