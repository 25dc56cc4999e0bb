package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// ManualService resolves records the engine left UNLINKED. It shares the
// session locks with ReconcileService.
type ManualService struct {
	Store Store
	Locks *SessionLocks
	Log   *slog.Logger
}

func (s *ManualService) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Unresolved returns every UNLINKED payer record of the session with up to
// three ranked bank candidates.
func (s *ManualService) Unresolved(ctx context.Context, sessionID string) ([]recon.Suggestion, error) {
	if _, err := s.Store.Sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	unlock := s.Locks.Lock(sessionID)
	defer unlock()
	book, err := s.Store.LoadBook(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return recon.Unresolved(book), nil
}

// Link confirms a pairing with confidence 1.0. Either record having left
// UNLINKED is reported as model.ErrStateConflict.
func (s *ManualService) Link(ctx context.Context, sharedID, bankID string) (model.Link, error) {
	shared, err := s.Store.Shared.Get(ctx, sharedID)
	if err != nil {
		return model.Link{}, err
	}
	unlock := s.Locks.Lock(shared.SessionID)
	defer unlock()

	book, err := s.Store.LoadBook(ctx, shared.SessionID)
	if err != nil {
		return model.Link{}, err
	}
	change, err := recon.ManualLink(book, sharedID, bankID)
	if err != nil {
		return model.Link{}, err
	}
	if err := book.CommitLink(ctx, storeSink{ledger: s.Store.Ledger}, change); err != nil {
		return model.Link{}, fmt.Errorf("manual link: %w", err)
	}
	s.log().Info("manual link", "session", shared.SessionID, "shared", sharedID, "bank", bankID)
	return change.Link, nil
}

// Skip closes an UNLINKED shared record without a link.
func (s *ManualService) Skip(ctx context.Context, sharedID, reason string) error {
	shared, err := s.Store.Shared.Get(ctx, sharedID)
	if err != nil {
		return err
	}
	unlock := s.Locks.Lock(shared.SessionID)
	defer unlock()

	book, err := s.Store.LoadBook(ctx, shared.SessionID)
	if err != nil {
		return err
	}
	if err := recon.ValidateSkip(book, sharedID, reason); err != nil {
		return err
	}
	if err := s.Store.Ledger.Skip(ctx, sharedID, recon.SkipReason(reason)); err != nil {
		return fmt.Errorf("skip: %w", err)
	}
	s.log().Info("manual skip", "session", shared.SessionID, "shared", sharedID, "reason", reason)
	return nil
}
