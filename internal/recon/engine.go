package recon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jask/splitledger/internal/model"
)

// DefaultSettlementWindowDays is the settlement date window when none is configured.
const DefaultSettlementWindowDays = 2

// Engine runs the reconciliation pipeline over a Book. It holds no state
// between runs.
type Engine struct {
	Config               model.BatchConfig
	Rules                []model.Rule // newest first
	SettlementWindowDays int
	Log                  *slog.Logger
}

// Summary counts what one run changed.
type Summary struct {
	Transfers   int
	Exact       int
	FuzzyDate   int
	BlindTrust  int
	Settlements int
	Categorized int
	Sweeps      int
}

// Linked returns the number of new links made by the run.
func (s Summary) Linked() int {
	return s.Exact + s.FuzzyDate + s.BlindTrust + s.Settlements
}

func (e *Engine) log() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

func (e *Engine) window() int {
	if e.SettlementWindowDays <= 0 {
		return DefaultSettlementWindowDays
	}
	return e.SettlementWindowDays
}

// Run repeats the matching passes and settlement detection until a sweep
// makes no new link, then labels the bank records still unlinked that look
// like transfers. Labelling can leave a payer with a single candidate, so
// the sweep runs again whenever new transfers were marked. Categories are
// classified last. Running it again over the result changes nothing. The
// first sink error aborts the run; links already committed stay.
func (e *Engine) Run(ctx context.Context, book *Book, sink Sink) (Summary, error) {
	var sum Summary
	for {
		if err := e.sweep(ctx, book, sink, &sum); err != nil {
			return sum, err
		}
		n, err := e.DetectTransfers(ctx, book, sink)
		sum.Transfers += n
		if err != nil {
			return sum, fmt.Errorf("transfer detection: %w", err)
		}
		if n == 0 {
			break
		}
	}

	c, err := e.Categorize(ctx, book, sink)
	sum.Categorized = c
	if err != nil {
		return sum, fmt.Errorf("categorization: %w", err)
	}
	e.log().Info("reconciliation finished",
		"transfers", sum.Transfers,
		"exact", sum.Exact,
		"fuzzy_date", sum.FuzzyDate,
		"blind_trust", sum.BlindTrust,
		"settlements", sum.Settlements,
		"categorized", sum.Categorized,
		"sweeps", sum.Sweeps)
	return sum, nil
}

// sweep links until a full round of matching and settlement detection adds
// nothing.
func (e *Engine) sweep(ctx context.Context, book *Book, sink Sink, sum *Summary) error {
	for {
		sum.Sweeps++
		before := sum.Linked()
		m, err := e.Match(ctx, book, sink)
		sum.Exact += m.Exact
		sum.FuzzyDate += m.FuzzyDate
		sum.BlindTrust += m.BlindTrust
		if err != nil {
			return fmt.Errorf("matching: %w", err)
		}
		s, err := e.DetectSettlements(ctx, book, sink)
		sum.Settlements += s
		if err != nil {
			return fmt.Errorf("settlement detection: %w", err)
		}
		if sum.Linked() == before {
			return nil
		}
	}
}
