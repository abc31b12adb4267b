package moderation

import (
	"context"
	"fmt"
	"log"
)

// ScanRequest is sent to moderation.scan by services that want text checked
// outside the request path (for example, re-checking existing content after
// the rule set changes).
type ScanRequest struct {
	ContentID   string `json:"content_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Text        string `json:"text"`
}

// ScanResult is the reply to a ScanRequest.
type ScanResult struct {
	ContentID   string `json:"content_id,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Blocked     bool   `json:"blocked"`
	Word        string `json:"word,omitempty"`
	Category    string `json:"category,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Review loads the current rule set and scans req.Text. When the rules
// cannot be loaded the result is blocked and carries the load error, matching
// the gate's fail-closed behaviour.
func Review(ctx context.Context, loader RuleLoader, req ScanRequest) ScanResult {
	res := ScanResult{ContentID: req.ContentID, ContentType: req.ContentType}

	rs, err := loader.Load(ctx)
	if err != nil {
		log.Printf("[moderation] rule load failed for content=%s: %v", req.ContentID, err)
		res.Blocked = true
		res.Error = fmt.Errorf("%w: %v", ErrRulesUnavailable, err).Error()
		return res
	}

	if rule := Scan(req.Text, rs); rule != nil {
		res.Blocked = true
		res.Word = rule.Word
		res.Category = string(rule.Category)
		res.Severity = string(rule.Severity)
	}
	return res
}
