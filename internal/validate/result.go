// Package validate evaluates proposed terminal commands and code snippets
// against the loaded rule tables. Refusals are values, never errors: every
// outcome is a Result, produced fresh per call.
package validate

import "github.com/execguard/execguard/internal/rules"

// Result is the verdict for one validation call.
type Result struct {
	Allowed        bool           `json:"allowed"`
	Reason         string         `json:"reason,omitempty"`
	Severity       rules.Severity `json:"severity,omitempty"`
	MatchedPattern string         `json:"matched_pattern,omitempty"`
	RuleID         string         `json:"rule_id,omitempty"`
}

// allow is the shared allowed verdict.
func allow() Result {
	return Result{Allowed: true}
}

// blockedBy builds a refusal from a matched rule.
func blockedBy(r rules.Rule) Result {
	return Result{
		Allowed:        false,
		Reason:         r.Reason,
		Severity:       r.Severity,
		MatchedPattern: r.Pattern.String(),
		RuleID:         r.ID,
	}
}
