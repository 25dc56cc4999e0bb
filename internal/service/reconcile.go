package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// Store bundles the repositories a session book is loaded from.
type Store struct {
	Sessions *repository.SessionRepo
	Bank     *repository.BankRepo
	Shared   *repository.SharedRepo
	Ledger   *repository.LedgerRepo
	Rules    *repository.RuleRepo
}

// LoadBook reads one session's records and links.
func (st Store) LoadBook(ctx context.Context, sessionID string) (*recon.Book, error) {
	bank, err := st.Bank.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load bank records: %w", err)
	}
	shared, err := st.Shared.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load shared records: %w", err)
	}
	links, err := st.Ledger.ListLinks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	return recon.NewBook(bank, shared, links), nil
}

// storeSink commits engine mutations through the ledger repository.
type storeSink struct {
	ledger *repository.LedgerRepo
}

func (s storeSink) Link(ctx context.Context, c recon.LinkChange) error {
	return s.ledger.Link(ctx, repository.LinkUpdate{
		Link:           c.Link,
		Status:         c.Status,
		Category:       c.Category,
		CategorySource: c.CategorySource,
	})
}

func (s storeSink) MarkTransfer(ctx context.Context, bankID, category string) error {
	return s.ledger.MarkTransfer(ctx, bankID, category)
}

func (s storeSink) Skip(ctx context.Context, sharedID, reason string) error {
	return s.ledger.Skip(ctx, sharedID, reason)
}

func (s storeSink) SetCategory(ctx context.Context, src model.Source, id, category string, from model.CategorySource) error {
	return s.ledger.SetCategory(ctx, src, id, category, from)
}

// ReconcileService runs the engine against a stored session.
type ReconcileService struct {
	Store                Store
	Locks                *SessionLocks
	KnownNames           []string
	SettlementWindowDays int
	Log                  *slog.Logger
}

// RunResult is delivered by Start when the run finishes.
type RunResult struct {
	Summary recon.Summary
	Err     error
}

func (s *ReconcileService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Run reconciles the session and marks it completed, or failed with the
// error text. Links committed before a failure are kept.
func (s *ReconcileService) Run(ctx context.Context, sessionID string) (recon.Summary, error) {
	unlock := s.Locks.Lock(sessionID)
	defer unlock()

	sess, err := s.Store.Sessions.Get(ctx, sessionID)
	if err != nil {
		return recon.Summary{}, err
	}
	sum, err := s.run(ctx, sess)
	if err != nil {
		s.fail(ctx, sessionID, err)
		return sum, fmt.Errorf("reconcile %s: %w", sessionID, err)
	}
	if err := s.Store.Sessions.UpdateStatus(ctx, sessionID, model.SessionCompleted, ""); err != nil {
		return sum, fmt.Errorf("mark session completed: %w", err)
	}
	return sum, nil
}

func (s *ReconcileService) run(ctx context.Context, sess model.Session) (recon.Summary, error) {
	book, err := s.Store.LoadBook(ctx, sess.ID)
	if err != nil {
		return recon.Summary{}, err
	}
	rules, err := s.Store.Rules.List(ctx, sess.UserID)
	if err != nil {
		return recon.Summary{}, fmt.Errorf("load rules: %w", err)
	}
	cfg := sess.Config()
	cfg.KnownNames = s.KnownNames
	engine := &recon.Engine{
		Config:               cfg,
		Rules:                rules,
		SettlementWindowDays: s.SettlementWindowDays,
		Log:                  s.log().With("session", sess.ID),
	}
	return engine.Run(ctx, book, storeSink{ledger: s.Store.Ledger})
}

// fail records the error on the session even when ctx is already done.
func (s *ReconcileService) fail(ctx context.Context, sessionID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Store.Sessions.UpdateStatus(ctx, sessionID, model.SessionFailed, cause.Error()); err != nil {
		s.log().Error("mark session failed", "session", sessionID, "err", errors.Join(cause, err))
		return
	}
	s.log().Error("reconciliation failed", "session", sessionID, "err", cause)
}

// Start runs reconciliation in the background, detached from ctx
// cancellation. The channel receives exactly one result.
func (s *ReconcileService) Start(ctx context.Context, sessionID string) <-chan RunResult {
	done := make(chan RunResult, 1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		sum, err := s.Run(ctx, sessionID)
		done <- RunResult{Summary: sum, Err: err}
	}()
	return done
}
