package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jask/splitledger/internal/database"
	"github.com/jask/splitledger/internal/database/repository"
	"github.com/jask/splitledger/internal/model"
	"github.com/jask/splitledger/internal/recon"
)

// RuleService manages a user's categorization rules. Rules take effect on
// the next reconciliation run.
type RuleService struct {
	Rules  *repository.RuleRepo
	UserID string
}

// rulesFile is the YAML layout used by Export and Import.
type rulesFile struct {
	Rules []model.Rule `yaml:"rules"`
}

// Create stores the rule. An existing rule with the same pattern and
// scope is updated in place and becomes the newest.
func (s *RuleService) Create(ctx context.Context, r model.Rule) (model.Rule, error) {
	if err := r.Validate(); err != nil {
		return model.Rule{}, err
	}
	r.ID = uuid.NewString()
	r.UserID = s.UserID
	r.CreatedAt = database.Now()
	if err := s.Rules.Upsert(ctx, r); err != nil {
		return model.Rule{}, fmt.Errorf("save rule: %w", err)
	}
	return r, nil
}

func (s *RuleService) List(ctx context.Context) ([]model.Rule, error) {
	return s.Rules.List(ctx, s.UserID)
}

func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.Rules.Delete(ctx, s.UserID, id)
}

// Export writes the rules as YAML, newest first.
func (s *RuleService) Export(ctx context.Context, w io.Writer) error {
	rules, err := s.List(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rulesFile{Rules: rules}); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML rules file. Rules are created oldest first so the
// file order is preserved by the newest-first listing. Any invalid rule
// aborts before anything is stored.
func (s *RuleService) Import(ctx context.Context, r io.Reader) (int, error) {
	var f rulesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode rules: %w", err)
	}
	for i := range f.Rules {
		if err := f.Rules[i].Validate(); err != nil {
			return 0, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	n := 0
	for i := len(f.Rules) - 1; i >= 0; i-- {
		if _, err := s.Create(ctx, f.Rules[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SuggestPattern proposes a rule pattern for a bank description.
func (s *RuleService) SuggestPattern(description string) string {
	return recon.SuggestPattern(description)
}
