package recon

import (
	"context"
	"strings"

	"github.com/jask/splitledger/internal/model"
)

const (
	settlementTolerancePct = 2
	settlementNameScore    = 0.9
	settlementThreshold    = 0.30
)

// DetectSettlements pairs UNLINKED settlement records with the bank
// movement that repaid them. Payers look at debits, receivers at credits.
// Both sides end as TRANSFER with category Settlement.
func (e *Engine) DetectSettlements(ctx context.Context, book *Book, sink Sink) (int, error) {
	names := e.Config.SettlementNames()
	linked := 0
	for _, s := range book.SharedRecords() {
		if !s.IsSettlement() || s.Status != model.StatusUnlinked {
			continue
		}
		target := absInt(s.TotalCents)
		if target == 0 {
			continue
		}
		cands := e.settlementCandidates(book, s, target)
		var pick *model.BankRecord
		conf := 1.0
		switch len(cands) {
		case 0:
			e.log().Warn("no bank movement for settlement",
				"shared_id", s.ID,
				"description", s.Description,
				"amount_cents", target)
			continue
		case 1:
			pick = cands[0]
		default:
			best := candidate{score: -1}
			for _, b := range cands {
				score := settlementScore(s.Description, b.Description, names)
				if score > best.score {
					best = candidate{bank: b, score: score}
				}
			}
			if best.score < settlementThreshold {
				e.log().Warn("ambiguous settlement left unresolved",
					"shared_id", s.ID,
					"candidates", len(cands),
					"best_score", round(best.score, 4))
				continue
			}
			pick, conf = best.bank, best.score
		}
		change := LinkChange{
			Link: model.Link{
				SessionID:  s.SessionID,
				SharedID:   s.ID,
				BankID:     pick.ID,
				Confidence: round(conf, 4),
				Method:     model.MethodSettlement,
			},
			Status:         model.StatusTransfer,
			Category:       model.CategorySettlement,
			CategorySource: model.CategoryFromSettlement,
		}
		if err := book.CommitLink(ctx, sink, change); err != nil {
			return linked, err
		}
		e.log().Debug("settlement linked", "shared_id", s.ID, "bank_id", pick.ID)
		linked++
	}
	return linked, nil
}

func (e *Engine) settlementCandidates(book *Book, s *model.SharedRecord, target int64) []*model.BankRecord {
	wantDebit := s.Role != model.RoleSettlementReceiver
	var out []*model.BankRecord
	for _, b := range book.BankRecords() {
		if b.Status != model.StatusUnlinked || b.AmountCents == 0 || b.IsDebit() != wantDebit {
			continue
		}
		if model.DaysApart(b.Date, s.Date) > e.window() {
			continue
		}
		if absInt(b.AbsCents()-target)*100 > settlementTolerancePct*target {
			continue
		}
		out = append(out, b)
	}
	return out
}

// settlementScore prefers a known name present in both descriptions and
// otherwise falls back to the raw character ratio.
func settlementScore(shared, bank string, names []string) float64 {
	ls, lb := strings.ToLower(shared), strings.ToLower(bank)
	for _, n := range names {
		if strings.Contains(ls, n) && strings.Contains(lb, n) {
			return settlementNameScore
		}
	}
	return Ratio(ls, lb)
}
