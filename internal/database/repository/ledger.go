package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/splitledger/internal/database"
	"github.com/jask/splitledger/internal/model"
)

// LedgerRepo owns every status transition. Each method is one transaction
// whose UPDATE carries the UNLINKED precondition, so a concurrent change
// surfaces as model.ErrStateConflict instead of being overwritten.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// LinkUpdate describes one mutual link. Category is applied to both sides
// when non-empty.
type LinkUpdate struct {
	Link           model.Link
	Status         model.Status
	Category       string
	CategorySource model.CategorySource
}

// Link moves both records from UNLINKED to u.Status and records the link.
func (r *LedgerRepo) Link(ctx context.Context, u LinkUpdate) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		bankQ := `UPDATE bank_records SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'UNLINKED'`
		sharedQ := `UPDATE shared_records SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'UNLINKED'`
		bankArgs := []interface{}{u.Status, u.Link.BankID}
		sharedArgs := []interface{}{u.Status, u.Link.SharedID}
		if u.Category != "" {
			bankQ = `UPDATE bank_records SET status = ?, category = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'UNLINKED'`
			sharedQ = `UPDATE shared_records SET status = ?, category = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'UNLINKED'`
			bankArgs = []interface{}{u.Status, u.Category, u.CategorySource, u.Link.BankID}
			sharedArgs = []interface{}{u.Status, u.Category, u.CategorySource, u.Link.SharedID}
		}
		res, err := tx.ExecContext(ctx, bankQ, bankArgs...)
		if err != nil {
			return err
		}
		if err := expectOne(res, fmt.Errorf("bank record %s: %w", u.Link.BankID, model.ErrStateConflict)); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, sharedQ, sharedArgs...)
		if err != nil {
			return err
		}
		if err := expectOne(res, fmt.Errorf("shared record %s: %w", u.Link.SharedID, model.ErrStateConflict)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
		INSERT INTO record_links(shared_id, bank_id, session_id, confidence, method, created_at)
		VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			u.Link.SharedID, u.Link.BankID, u.Link.SessionID, u.Link.Confidence, u.Link.Method)
		return err
	})
}

// MarkTransfer flags an UNLINKED bank record as a non-spending movement.
func (r *LedgerRepo) MarkTransfer(ctx context.Context, bankID, category string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE bank_records SET status = 'TRANSFER', category = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND status = 'UNLINKED'`, category, model.CategoryFromTransfer, bankID)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("bank record %s: %w", bankID, model.ErrStateConflict))
}

// Skip closes an UNLINKED shared record without a link.
func (r *LedgerRepo) Skip(ctx context.Context, sharedID, reason string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE shared_records SET status = 'SKIPPED', skip_reason = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND status = 'UNLINKED'`, reason, sharedID)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("shared record %s: %w", sharedID, model.ErrStateConflict))
}

// SetCategory overwrites the category of one record.
func (r *LedgerRepo) SetCategory(ctx context.Context, src model.Source, id, category string, from model.CategorySource) error {
	table := "bank_records"
	if src == model.SourceSplitwise {
		table = "shared_records"
	}
	res, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET category = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		category, from, id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("%s record %s: %w", src, id, model.ErrNotFound))
}

// ListLinks returns the session's link relation.
func (r *LedgerRepo) ListLinks(ctx context.Context, sessionID string) ([]model.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT session_id, shared_id, bank_id, confidence, method, created_at
	FROM record_links WHERE session_id = ? ORDER BY created_at, shared_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Link
	for rows.Next() {
		var l model.Link
		if err := rows.Scan(&l.SessionID, &l.SharedID, &l.BankID, &l.Confidence, &l.Method, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
