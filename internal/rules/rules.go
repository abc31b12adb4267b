// Package rules manages the restricted-word rule set used by the content
// filter. Rules are persisted in PostgreSQL; when the persisted set is empty
// a built-in default table is used so the filter is never silently disabled.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category classifies a restricted word.
type Category string

const (
	CategoryProfanity Category = "profanity"
	CategoryViolence  Category = "violence"
	CategoryDrugs     Category = "drugs"
	CategoryHate      Category = "hate"
	CategoryInsult    Category = "insult" // only produced by the default table and admins who pick it
	CategoryCustom    Category = "custom"
)

// Severity ranks how offensive a restricted word is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var validCategories = map[Category]bool{
	CategoryProfanity: true,
	CategoryViolence:  true,
	CategoryDrugs:     true,
	CategoryHate:      true,
	CategoryInsult:    true,
	CategoryCustom:    true,
}

var validSeverities = map[Severity]bool{
	SeverityLow:    true,
	SeverityMedium: true,
	SeverityHigh:   true,
}

var (
	// ErrInvalidRule is returned when a rule fails validation.
	ErrInvalidRule = errors.New("rules: invalid rule")
	// ErrDuplicate is returned when a word is already in the rule set.
	ErrDuplicate = errors.New("rules: word already restricted")
	// ErrNotFound is returned when removing a word that is not restricted.
	ErrNotFound = errors.New("rules: word not found")
)

// Rule is a single restricted term.
type Rule struct {
	Word      string    `json:"word"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	AddedBy   string    `json:"addedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Normalize lowercases and trims the word and fills in the default severity,
// then validates the result.
func (r *Rule) Normalize() error {
	r.Word = strings.ToLower(strings.TrimSpace(r.Word))
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
	if r.Word == "" {
		return fmt.Errorf("%w: word is required", ErrInvalidRule)
	}
	if !validCategories[r.Category] {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, r.Category)
	}
	if !validSeverities[r.Severity] {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, r.Severity)
	}
	return nil
}

// Source returns the persisted rules in a stable order.
type Source interface {
	List(ctx context.Context) ([]Rule, error)
}

// RuleSet loads rules from a Source, falling back to a fixed default table
// when the source is empty.
type RuleSet struct {
	source   Source
	defaults []Rule
}

// NewRuleSet creates a RuleSet. defaults is copied; pass DefaultRules() for
// the built-in table.
func NewRuleSet(source Source, defaults []Rule) *RuleSet {
	d := make([]Rule, len(defaults))
	copy(d, defaults)
	return &RuleSet{source: source, defaults: d}
}

// Load returns the persisted rules, or the defaults if none are persisted.
// Source errors are returned unchanged so callers can fail closed.
func (s *RuleSet) Load(ctx context.Context) ([]Rule, error) {
	persisted, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules: load: %w", err)
	}
	if len(persisted) > 0 {
		return persisted, nil
	}
	out := make([]Rule, len(s.defaults))
	copy(out, s.defaults)
	return out, nil
}

// DefaultRules returns the built-in fallback table.
func DefaultRules() []Rule {
	return []Rule{
		{Word: "fuck", Category: CategoryProfanity, Severity: SeverityHigh},
		{Word: "shit", Category: CategoryProfanity, Severity: SeverityHigh},
		{Word: "damn", Category: CategoryProfanity, Severity: SeverityMedium},
		{Word: "hell", Category: CategoryProfanity, Severity: SeverityMedium},
		{Word: "bitch", Category: CategoryProfanity, Severity: SeverityHigh},
		{Word: "ass", Category: CategoryProfanity, Severity: SeverityMedium},
		{Word: "crap", Category: CategoryProfanity, Severity: SeverityMedium},
		{Word: "dick", Category: CategoryProfanity, Severity: SeverityHigh},
		{Word: "pussy", Category: CategoryProfanity, Severity: SeverityHigh},

		{Word: "hate", Category: CategoryHate, Severity: SeverityHigh},
		{Word: "kill", Category: CategoryViolence, Severity: SeverityHigh},
		{Word: "suicide", Category: CategoryViolence, Severity: SeverityHigh},
		{Word: "murder", Category: CategoryViolence, Severity: SeverityHigh},
		{Word: "terror", Category: CategoryViolence, Severity: SeverityHigh},
		{Word: "bomb", Category: CategoryViolence, Severity: SeverityHigh},

		{Word: "drug", Category: CategoryDrugs, Severity: SeverityHigh},
		{Word: "weed", Category: CategoryDrugs, Severity: SeverityMedium},
		{Word: "cocaine", Category: CategoryDrugs, Severity: SeverityHigh},
		{Word: "heroin", Category: CategoryDrugs, Severity: SeverityHigh},
		{Word: "marijuana", Category: CategoryDrugs, Severity: SeverityMedium},
		{Word: "cannabis", Category: CategoryDrugs, Severity: SeverityMedium},

		{Word: "stupid", Category: CategoryInsult, Severity: SeverityMedium},
		{Word: "idiot", Category: CategoryInsult, Severity: SeverityMedium},
		{Word: "dumb", Category: CategoryInsult, Severity: SeverityMedium},
		{Word: "retard", Category: CategoryInsult, Severity: SeverityHigh},
		{Word: "moron", Category: CategoryInsult, Severity: SeverityMedium},
	}
}
