package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusqa/moderation/internal/metrics"
	"github.com/campusqa/moderation/internal/rules"
)

// ErrRulesUnavailable is returned when the rule set cannot be loaded. The
// gate fails closed: the submission is rejected.
var ErrRulesUnavailable = errors.New("moderation: restricted words unavailable")

// RuleLoader supplies the current rule set.
type RuleLoader interface {
	Load(ctx context.Context) ([]rules.Rule, error)
}

// Submission holds the text fields of a new question, answer or comment.
// Empty fields are not scanned.
type Submission struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// fields returns the non-empty fields in scan order.
func (s Submission) fields() []field {
	all := []field{
		{"title", s.Title},
		{"content", s.Content},
		{"answer", s.Answer},
		{"comment", s.Comment},
	}
	out := all[:0]
	for _, f := range all {
		if f.text != "" {
			out = append(out, f)
		}
	}
	return out
}

type field struct {
	name string
	text string
}

// RejectedError reports the restricted word that caused a submission to be
// rejected. Its message is shown to the end user verbatim.
type RejectedError struct {
	Field string
	Rule  rules.Rule
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("Your content contains inappropriate language. The word \"%s\" (%s) is not allowed.",
		e.Rule.Word, e.Rule.Category)
}

// Gate checks submissions against the restricted-word rule set.
type Gate struct {
	rules RuleLoader
}

// NewGate creates a Gate that loads rules from loader on every check.
func NewGate(loader RuleLoader) *Gate {
	return &Gate{rules: loader}
}

// Check scans every non-empty field of sub in the order title, content,
// answer, comment and returns a *RejectedError for the first match. Rules
// are loaded once per call; a load failure returns ErrRulesUnavailable.
func (g *Gate) Check(ctx context.Context, sub Submission) error {
	fields := sub.fields()
	if len(fields) == 0 {
		metrics.ContentChecks.WithLabelValues("passed").Inc()
		return nil
	}

	start := time.Now()
	rs, err := g.rules.Load(ctx)
	metrics.RuleLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ContentChecks.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrRulesUnavailable, err)
	}

	for _, f := range fields {
		if rule := Scan(f.text, rs); rule != nil {
			metrics.ContentChecks.WithLabelValues("rejected").Inc()
			metrics.ContentRejections.WithLabelValues(string(rule.Category)).Inc()
			return &RejectedError{Field: f.name, Rule: *rule}
		}
	}

	metrics.ContentChecks.WithLabelValues("passed").Inc()
	return nil
}
