package model

import (
	"strings"
	"time"
)

// Source identifies which feed a record came from.
type Source string

const (
	SourceBank      Source = "BANK"
	SourceSplitwise Source = "SPLITWISE"
)

// Status is the per-record reconciliation state. Anything other than
// StatusUnlinked is terminal for the batch.
type Status string

const (
	StatusUnlinked Status = "UNLINKED"
	StatusLinked   Status = "LINKED"
	StatusTransfer Status = "TRANSFER"
	StatusSkipped  Status = "SKIPPED"
)

// CategorySource records who assigned a category. Automatic sources are
// recomputed on every run; the rest are left alone.
type CategorySource string

const (
	CategoryFromNone       CategorySource = ""
	CategoryFromFeed       CategorySource = "feed"
	CategoryFromRule       CategorySource = "rule"
	CategoryFromHousehold  CategorySource = "household"
	CategoryFromRent       CategorySource = "rent"
	CategoryFromKeyword    CategorySource = "keyword"
	CategoryFromDefault    CategorySource = "default"
	CategoryFromTransfer   CategorySource = "transfer"
	CategoryFromSettlement CategorySource = "settlement"
	CategoryFromManual     CategorySource = "manual"
)

// Automatic reports whether the classifier owns this category.
func (c CategorySource) Automatic() bool {
	switch c {
	case CategoryFromNone, CategoryFromFeed, CategoryFromRule, CategoryFromHousehold,
		CategoryFromRent, CategoryFromKeyword, CategoryFromDefault:
		return true
	}
	return false
}

// Well-known category labels.
const (
	CategoryUncategorized = "Uncategorized"
	CategoryOther         = "Other"
	CategorySettlement    = "Settlement"
	CategoryFamily        = "Family Transfer"
	CategoryRent          = "Rent"
)

// Match method tags stored on links.
const (
	MethodExact         = "Exact"
	MethodExactTieBreak = "Exact (tie-break)"
	MethodFuzzyDate     = "Fuzzy date"
	MethodBlindTrust    = "Blind trust"
	MethodSettlement    = "Settlement"
	MethodManual        = "manual"
	MethodManualSkip    = "manual_skip"
)

// BankRecord is one line of the bank statement. AmountCents is signed:
// negative is a debit.
type BankRecord struct {
	ID             string
	SessionID      string
	Date           time.Time
	AmountCents    int64
	Description    string
	Category       string
	CategorySource CategorySource
	Status         Status
	SourceHash     string
	CreatedAt      time.Time
}

// IsDebit reports whether money left the account.
func (b BankRecord) IsDebit() bool { return b.AmountCents < 0 }

// AbsCents returns the unsigned amount.
func (b BankRecord) AbsCents() int64 {
	if b.AmountCents < 0 {
		return -b.AmountCents
	}
	return b.AmountCents
}

// SharedRecord is one event from the shared-expense feed.
type SharedRecord struct {
	ID                string
	SessionID         string
	Date              time.Time
	Description       string
	TotalCents        int64
	ContributionCents int64 // user's net balance column from the feed
	Role              Role
	MyShareCents      int64
	FeedCategory      string
	Category          string
	CategorySource    CategorySource
	Status            Status
	SkipReason        string
	SourceHash        string
	CreatedAt         time.Time
}

// IsSettlement reports whether the record is a repayment rather than a purchase.
func (s SharedRecord) IsSettlement() bool { return s.Role.Settlement() }

// Link is one row of the symmetric link relation. A record appears in at
// most one link.
type Link struct {
	SessionID  string
	SharedID   string
	BankID     string
	Confidence float64
	Method     string
	CreatedAt  time.Time
}

// Entry is the unified, queryable view of a record of either source.
type Entry struct {
	Source      Source   `json:"source"`
	ID          string   `json:"id"`
	SessionID   string   `json:"session_id"`
	Date        string   `json:"date"`
	AmountCents int64    `json:"amount_cents"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      Status   `json:"status"`
	Role        Role     `json:"role,omitempty"`
	LinkID      string   `json:"link_id,omitempty"`
	Confidence  *float64 `json:"match_confidence,omitempty"`
	Method      string   `json:"match_method,omitempty"`
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysApart returns the absolute calendar-day distance between a and b.
func DaysApart(a, b time.Time) int {
	d := DateOnly(a).Sub(DateOnly(b))
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// NormalizeNames trims, drops blanks and de-duplicates case-insensitively.
func NormalizeNames(names []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
