package model

import (
	"fmt"
	"strings"
	"time"
)

// MatchType selects how a rule pattern is compared to a description.
type MatchType string

const (
	MatchContains   MatchType = "contains"
	MatchExact      MatchType = "exact"
	MatchStartsWith MatchType = "starts_with"
)

// RuleScope limits which feed a rule applies to.
type RuleScope string

const (
	ScopeBank      RuleScope = "BANK"
	ScopeSplitwise RuleScope = "SPLITWISE"
	ScopeBoth      RuleScope = "BOTH"
)

// Rule is a user-authored categorization rule. Rules persist across sessions.
type Rule struct {
	ID        string    `yaml:"id,omitempty"`
	UserID    string    `yaml:"-"`
	Pattern   string    `yaml:"pattern"`
	MatchType MatchType `yaml:"match_type"`
	Category  string    `yaml:"category"`
	Scope     RuleScope `yaml:"scope"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
}

// Validate normalizes defaults and rejects incomplete rules.
func (r *Rule) Validate() error {
	r.Pattern = strings.TrimSpace(r.Pattern)
	r.Category = strings.TrimSpace(r.Category)
	if r.MatchType == "" {
		r.MatchType = MatchContains
	}
	if r.Scope == "" {
		r.Scope = ScopeBoth
	}
	r.Scope = RuleScope(strings.ToUpper(string(r.Scope)))
	r.MatchType = MatchType(strings.ToLower(string(r.MatchType)))
	if r.Pattern == "" {
		return fmt.Errorf("rule pattern: %w", ErrInvalidInput)
	}
	if r.Category == "" {
		return fmt.Errorf("rule category: %w", ErrInvalidInput)
	}
	switch r.MatchType {
	case MatchContains, MatchExact, MatchStartsWith:
	default:
		return fmt.Errorf("rule match type %q: %w", r.MatchType, ErrInvalidInput)
	}
	switch r.Scope {
	case ScopeBank, ScopeSplitwise, ScopeBoth:
	default:
		return fmt.Errorf("rule scope %q: %w", r.Scope, ErrInvalidInput)
	}
	return nil
}

// AppliesTo reports whether the rule's scope covers src.
func (r Rule) AppliesTo(src Source) bool {
	switch r.Scope {
	case ScopeBoth:
		return true
	case ScopeBank:
		return src == SourceBank
	case ScopeSplitwise:
		return src == SourceSplitwise
	}
	return false
}

// Matches compares the pattern case-insensitively.
func (r Rule) Matches(description string) bool {
	p := strings.ToUpper(r.Pattern)
	d := strings.ToUpper(description)
	switch r.MatchType {
	case MatchExact:
		return d == p
	case MatchStartsWith:
		return strings.HasPrefix(d, p)
	default:
		return strings.Contains(d, p)
	}
}
