package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/splitledger/internal/database"
	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
)

// SessionService creates and replaces monthly batches.
type SessionService struct {
	DB       *sql.DB
	Sessions *repository.SessionRepo
	Records  *repository.EntryRepo
	Locks    *SessionLocks
	UserID   string
}

// CreateSession opens a processing session covering month (YYYY-MM).
// The caller should check FindForMonth first; duplicates are allowed.
func (s *SessionService) CreateSession(ctx context.Context, month string, household []string, rentCents *int64) (model.Session, error) {
	start, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return model.Session{}, fmt.Errorf("month %q: %w", month, model.ErrInvalidInput)
	}
	if rentCents != nil && *rentCents < 0 {
		return model.Session{}, fmt.Errorf("monthly rent %d: %w", *rentCents, model.ErrInvalidInput)
	}
	now := database.Now()
	sess := model.Session{
		ID:               newSessionID(),
		UserID:           s.UserID,
		Month:            start.Format("2006-01"),
		StartDate:        start,
		EndDate:          start.AddDate(0, 1, -1),
		Status:           model.SessionProcessing,
		Household:        model.NormalizeNames(household),
		MonthlyRentCents: rentCents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Sessions.Insert(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// FindForMonth returns the newest session for month, or nil.
func (s *SessionService) FindForMonth(ctx context.Context, month string) (*model.Session, error) {
	return s.Sessions.FindForMonth(ctx, s.UserID, month)
}

func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	return s.Sessions.List(ctx, s.UserID)
}

func (s *SessionService) Get(ctx context.Context, id string) (model.Session, error) {
	return s.Sessions.Get(ctx, id)
}

// ReplaceSession deletes every record and link of the session so the
// feeds can be uploaded again.
func (s *SessionService) ReplaceSession(ctx context.Context, id string) error {
	if _, err := s.Sessions.Get(ctx, id); err != nil {
		return err
	}
	unlock := s.Locks.Lock(id)
	defer unlock()
	return database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.Sessions.ClearRecords(ctx, tx, id)
	})
}

// Entries pages through the session's records of both feeds.
func (s *SessionService) Entries(ctx context.Context, f repository.EntryFilter) (repository.EntryPage, error) {
	if err := f.Normalize(); err != nil {
		return repository.EntryPage{}, err
	}
	if _, err := s.Sessions.Get(ctx, f.SessionID); err != nil {
		return repository.EntryPage{}, err
	}
	return s.Records.List(ctx, f)
}

func newSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
