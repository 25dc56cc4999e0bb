package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jask/splitledger/internal/model"
)

// SessionRepo handles reconciliation batches.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, user_id, month, start_date, end_date, status, error,
 bank_count, shared_count, excluded_count, household, monthly_rent, created_at, updated_at`

func (r *SessionRepo) Insert(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sessions(id, user_id, month, start_date, end_date, status, household, monthly_rent, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, s.ID, s.UserID, s.Month, s.StartDate, s.EndDate, s.Status,
		strings.Join(model.NormalizeNames(s.Household), "\n"), s.MonthlyRentCents, s.CreatedAt, s.CreatedAt)
	return err
}

// Get returns model.ErrNotFound when the session does not exist.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return s, err
}

// FindForMonth returns the newest session of user for month, or nil.
func (r *SessionRepo) FindForMonth(ctx context.Context, userID, month string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions
	WHERE user_id = ? AND month = ? ORDER BY created_at DESC LIMIT 1`, userID, month)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns the user's sessions, newest first.
func (r *SessionRepo) List(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions
	WHERE user_id = ? ORDER BY month DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PreviousCompleted returns the latest completed session of the user for a
// month before the given one, or nil.
func (r *SessionRepo) PreviousCompleted(ctx context.Context, userID, month string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions
	WHERE user_id = ? AND month < ? AND status = 'completed'
	ORDER BY month DESC, created_at DESC LIMIT 1`, userID, month)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, errText string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, nullableStr(errText), id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("session %s: %w", id, model.ErrNotFound))
}

// AddCounts increments the ingestion counters.
func (r *SessionRepo) AddCounts(ctx context.Context, id string, bank, shared, excluded int) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE sessions SET
	 bank_count = bank_count + ?, shared_count = shared_count + ?, excluded_count = excluded_count + ?,
	 updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`, bank, shared, excluded, id)
	return err
}

// ClearRecords deletes every record and link of the session and resets its
// counters. It is the explicit batch-replacement operation.
func (r *SessionRepo) ClearRecords(ctx context.Context, tx *sql.Tx, id string) error {
	stmts := []string{
		`DELETE FROM record_links WHERE session_id = ?`,
		`DELETE FROM bank_records WHERE session_id = ?`,
		`DELETE FROM shared_records WHERE session_id = ?`,
		`UPDATE sessions SET bank_count = 0, shared_count = 0, excluded_count = 0, status = 'processing',
		 error = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("clear session %s: %w", id, err)
		}
	}
	return nil
}

func scanSession(row scanner) (model.Session, error) {
	var s model.Session
	var errText, household sql.NullString
	var rent sql.NullInt64
	if err := row.Scan(&s.ID, &s.UserID, &s.Month, &s.StartDate, &s.EndDate, &s.Status, &errText,
		&s.BankCount, &s.SharedCount, &s.ExcludedCount, &household, &rent, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return model.Session{}, err
	}
	s.Error = errText.String
	if household.Valid && household.String != "" {
		s.Household = strings.Split(household.String, "\n")
	}
	if rent.Valid {
		v := rent.Int64
		s.MonthlyRentCents = &v
	}
	return s, nil
}
