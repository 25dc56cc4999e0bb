package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jask/splitledger/internal/model"
)

// BankRepo handles bank statement rows.
type BankRepo struct {
	db *sql.DB
}

func NewBankRepo(db *sql.DB) *BankRepo { return &BankRepo{db: db} }

const bankColumns = `id, session_id, date, amount, description, category, category_source, status, source_hash, created_at`

// Insert adds a row. A duplicate source hash in the same session fails
// with a UNIQUE violation; see IsUniqueViolation.
func (r *BankRepo) Insert(ctx context.Context, b model.BankRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO bank_records(id, session_id, date, amount, description, category, category_source, status, source_hash, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, b.ID, b.SessionID, b.Date, b.AmountCents, b.Description, nullableStr(b.Category), b.CategorySource,
		b.Status, b.SourceHash)
	return err
}

func (r *BankRepo) Get(ctx context.Context, id string) (model.BankRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bankColumns+` FROM bank_records WHERE id = ?`, id)
	b, err := scanBank(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankRecord{}, fmt.Errorf("bank record %s: %w", id, model.ErrNotFound)
	}
	return b, err
}

// ListBySession returns the session's rows ordered by date then id.
func (r *BankRepo) ListBySession(ctx context.Context, sessionID string) ([]model.BankRecord, error) {
	return r.query(ctx, `SELECT `+bankColumns+` FROM bank_records WHERE session_id = ? ORDER BY date, id`, sessionID)
}

// ListDebitsByUser returns every non-transfer debit across the user's sessions.
func (r *BankRepo) ListDebitsByUser(ctx context.Context, userID string) ([]model.BankRecord, error) {
	return r.query(ctx, `
	SELECT b.id, b.session_id, b.date, b.amount, b.description, b.category, b.category_source, b.status, b.source_hash, b.created_at
	FROM bank_records b JOIN sessions s ON s.id = b.session_id
	WHERE s.user_id = ? AND b.amount < 0 AND b.status != 'TRANSFER'
	ORDER BY b.date, b.id`, userID)
}

func (r *BankRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.BankRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BankRecord
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBank(row scanner) (model.BankRecord, error) {
	var b model.BankRecord
	var category sql.NullString
	if err := row.Scan(&b.ID, &b.SessionID, &b.Date, &b.AmountCents, &b.Description, &category,
		&b.CategorySource, &b.Status, &b.SourceHash, &b.CreatedAt); err != nil {
		return model.BankRecord{}, err
	}
	b.Category = category.String
	return b, nil
}

// SharedRepo handles shared-expense feed rows.
type SharedRepo struct {
	db *sql.DB
}

func NewSharedRepo(db *sql.DB) *SharedRepo { return &SharedRepo{db: db} }

const sharedColumns = `id, session_id, date, description, total_cost, contribution, role, my_share,
 feed_category, category, category_source, status, skip_reason, source_hash, created_at`

func (r *SharedRepo) Insert(ctx context.Context, s model.SharedRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO shared_records(id, session_id, date, description, total_cost, contribution, role, my_share,
	 feed_category, category, category_source, status, source_hash, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, s.ID, s.SessionID, s.Date, s.Description, s.TotalCents, s.ContributionCents, s.Role, s.MyShareCents,
		s.FeedCategory, nullableStr(s.Category), s.CategorySource, s.Status, s.SourceHash)
	return err
}

func (r *SharedRepo) Get(ctx context.Context, id string) (model.SharedRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sharedColumns+` FROM shared_records WHERE id = ?`, id)
	s, err := scanShared(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SharedRecord{}, fmt.Errorf("shared record %s: %w", id, model.ErrNotFound)
	}
	return s, err
}

// ListBySession returns the session's rows ordered by date then id.
func (r *SharedRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SharedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sharedColumns+` FROM shared_records WHERE session_id = ? ORDER BY date, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SharedRecord
	for rows.Next() {
		s, err := scanShared(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanShared(row scanner) (model.SharedRecord, error) {
	var s model.SharedRecord
	var category, skip sql.NullString
	if err := row.Scan(&s.ID, &s.SessionID, &s.Date, &s.Description, &s.TotalCents, &s.ContributionCents,
		&s.Role, &s.MyShareCents, &s.FeedCategory, &category, &s.CategorySource, &s.Status, &skip,
		&s.SourceHash, &s.CreatedAt); err != nil {
		return model.SharedRecord{}, err
	}
	s.Category = category.String
	s.SkipReason = skip.String
	return s, nil
}
