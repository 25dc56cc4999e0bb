package model

import (
	"strings"
	"time"
)

// SessionStatus tracks a batch through ingestion and reconciliation.
type SessionStatus string

const (
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// Session groups one bank feed and one shared-expense feed covering a
// calendar month.
type Session struct {
	ID               string
	UserID           string
	Month            string // YYYY-MM
	StartDate        time.Time
	EndDate          time.Time
	Status           SessionStatus
	Error            string
	BankCount        int
	SharedCount      int
	ExcludedCount    int
	Household        []string
	MonthlyRentCents *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Config returns the per-batch classifier parameters.
func (s Session) Config() BatchConfig {
	cfg := BatchConfig{Household: NormalizeNames(s.Household)}
	if s.MonthlyRentCents != nil && *s.MonthlyRentCents > 0 {
		cfg.MonthlyRentCents = *s.MonthlyRentCents
	}
	return cfg
}

// Contains reports whether d falls inside the session month (inclusive).
func (s Session) Contains(d time.Time) bool {
	d = DateOnly(d)
	return !d.Before(DateOnly(s.StartDate)) && !d.After(DateOnly(s.EndDate))
}

// BatchConfig parameterizes the Category Classifier. Zero values disable
// the corresponding step.
type BatchConfig struct {
	Household        []string
	MonthlyRentCents int64
	KnownNames       []string // extra settlement tie-break tokens
}

// SettlementNames returns the lower-cased tokens used by the settlement
// tie-break: household names plus configured known names.
func (c BatchConfig) SettlementNames() []string {
	var out []string
	for _, n := range NormalizeNames(append(append([]string{}, c.Household...), c.KnownNames...)) {
		out = append(out, strings.ToLower(n))
	}
	return out
}
