package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jask/splitledger/internal/model"
)

const (
	DefaultEntryLimit = 50
	MaxEntryLimit     = 100
)

// EntryFilter selects records of one session. Zero values mean no filter.
type EntryFilter struct {
	SessionID string
	Source    model.Source
	Status    model.Status
	Category  string
	Page      int // 1-based
	Limit     int
}

// EntryPage is one page of unified entries.
type EntryPage struct {
	Entries    []model.Entry `json:"entries"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// Normalize validates the filter and fills defaults.
func (f *EntryFilter) Normalize() error {
	if strings.TrimSpace(f.SessionID) == "" {
		return fmt.Errorf("session id required: %w", model.ErrInvalidInput)
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultEntryLimit
	}
	if f.Page < 1 {
		return fmt.Errorf("page %d: %w", f.Page, model.ErrInvalidInput)
	}
	if f.Limit < 1 || f.Limit > MaxEntryLimit {
		return fmt.Errorf("limit %d outside 1..%d: %w", f.Limit, MaxEntryLimit, model.ErrInvalidInput)
	}
	switch f.Source {
	case "", model.SourceBank, model.SourceSplitwise:
	default:
		return fmt.Errorf("source %q: %w", f.Source, model.ErrInvalidInput)
	}
	switch f.Status {
	case "", model.StatusUnlinked, model.StatusLinked, model.StatusTransfer, model.StatusSkipped:
	default:
		return fmt.Errorf("status %q: %w", f.Status, model.ErrInvalidInput)
	}
	return nil
}

// EntryRepo answers the unified record query over both feeds.
type EntryRepo struct{ db *sql.DB }

func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{db: db} }

const entriesUnion = `
SELECT 'BANK' AS source, b.id, b.session_id, b.date, b.amount, b.description,
       COALESCE(b.category, '') AS category, b.status, '' AS role,
       COALESCE(l.shared_id, '') AS link_id, l.confidence, COALESCE(l.method, '') AS method
FROM bank_records b LEFT JOIN record_links l ON l.bank_id = b.id
UNION ALL
SELECT 'SPLITWISE', s.id, s.session_id, s.date, -s.total_cost, s.description,
       COALESCE(s.category, ''), s.status, s.role,
       COALESCE(l.bank_id, ''), l.confidence,
       CASE WHEN s.status = 'SKIPPED' THEN 'manual_skip' ELSE COALESCE(l.method, '') END
FROM shared_records s LEFT JOIN record_links l ON l.shared_id = s.id`

// List returns entries ordered by date descending.
func (r *EntryRepo) List(ctx context.Context, f EntryFilter) (EntryPage, error) {
	if err := f.Normalize(); err != nil {
		return EntryPage{}, err
	}
	where := []string{"session_id = ?"}
	args := []interface{}{f.SessionID}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	base := "FROM (" + entriesUnion + ") e WHERE " + strings.Join(where, " AND ")

	page := EntryPage{Page: f.Page, Limit: f.Limit}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+base, args...).Scan(&page.Total); err != nil {
		return EntryPage{}, err
	}
	page.TotalPages = (page.Total + f.Limit - 1) / f.Limit

	q := "SELECT source, id, session_id, date, amount, description, category, status, role, link_id, confidence, method " +
		base + " ORDER BY date DESC, source, id LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return EntryPage{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.Entry
		var date string
		var conf sql.NullFloat64
		if err := rows.Scan(&e.Source, &e.ID, &e.SessionID, &date, &e.AmountCents, &e.Description,
			&e.Category, &e.Status, &e.Role, &e.LinkID, &conf, &e.Method); err != nil {
			return EntryPage{}, err
		}
		// the union hides the DATE column type, so the driver hands back text
		if len(date) >= 10 {
			date = date[:10]
		}
		e.Date = date
		if conf.Valid {
			v := conf.Float64
			e.Confidence = &v
		}
		page.Entries = append(page.Entries, e)
	}
	return page, rows.Err()
}
