package service

import (
	"context"

	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// MetricsService aggregates reconciled sessions.
type MetricsService struct {
	Store  Store
	UserID string
}

// Session computes net consumption and its breakdown for one session.
func (s *MetricsService) Session(ctx context.Context, sessionID string) (recon.Metrics, error) {
	if _, err := s.Store.Sessions.Get(ctx, sessionID); err != nil {
		return recon.Metrics{}, err
	}
	book, err := s.Store.LoadBook(ctx, sessionID)
	if err != nil {
		return recon.Metrics{}, err
	}
	return recon.ComputeMetrics(book), nil
}

// Comparison is the category movement against the previous completed
// session. Previous is nil when there is none. Highlights holds the top
// increases with their reasons and the top decreases.
type Comparison struct {
	Previous   *model.Session
	Changes    []recon.CategoryChange
	Highlights recon.Highlights
}

func (s *MetricsService) Compare(ctx context.Context, sessionID string) (Comparison, error) {
	sess, err := s.Store.Sessions.Get(ctx, sessionID)
	if err != nil {
		return Comparison{}, err
	}
	prev, err := s.Store.Sessions.PreviousCompleted(ctx, sess.UserID, sess.Month)
	if err != nil || prev == nil {
		return Comparison{}, err
	}
	book, err := s.Store.LoadBook(ctx, sessionID)
	if err != nil {
		return Comparison{}, err
	}
	before, err := s.Session(ctx, prev.ID)
	if err != nil {
		return Comparison{}, err
	}
	changes := recon.CompareCategories(before.Categories, recon.ComputeMetrics(book).Categories)
	var records []model.BankRecord
	for _, b := range book.BankRecords() {
		records = append(records, *b)
	}
	return Comparison{
		Previous:   prev,
		Changes:    changes,
		Highlights: recon.Highlight(changes, records),
	}, nil
}

// Recurring finds monthly subscriptions across all of the user's sessions.
func (s *MetricsService) Recurring(ctx context.Context) ([]recon.Recurring, error) {
	debits, err := s.Store.Bank.ListDebitsByUser(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	return recon.DetectRecurring(debits), nil
}
