package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/splitledger/internal/model"
)

// RuleRepo stores user categorization rules.
type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// Upsert inserts the rule or, when (user, pattern, scope) already exists,
// replaces its match type and category and bumps it to newest.
func (r *RuleRepo) Upsert(ctx context.Context, rule model.Rule) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categorization_rules(id, user_id, pattern, match_type, category, scope, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, pattern, scope) DO UPDATE SET
	 match_type = excluded.match_type,
	 category   = excluded.category,
	 created_at = excluded.created_at
	`, rule.ID, rule.UserID, rule.Pattern, rule.MatchType, rule.Category, rule.Scope, rule.CreatedAt)
	return err
}

// List returns the user's rules newest first.
func (r *RuleRepo) List(ctx context.Context, userID string) ([]model.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, user_id, pattern, match_type, category, scope, created_at
	FROM categorization_rules WHERE user_id = ?
	ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rule
	for rows.Next() {
		var rule model.Rule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Pattern, &rule.MatchType, &rule.Category, &rule.Scope, &rule.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categorization_rules WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("rule %s: %w", id, model.ErrNotFound))
}
