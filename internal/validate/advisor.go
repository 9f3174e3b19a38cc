package validate

import (
	"strings"

	"github.com/execguard/execguard/internal/rules"
)

// RiskAdvisor surfaces warnings for commands that are risky but not
// blocked. It never mutates state and never refuses; output accompanies an
// allowed verdict.
type RiskAdvisor struct {
	provider rules.Provider
}

// NewRiskAdvisor returns an advisor reading tables from provider.
func NewRiskAdvisor(provider rules.Provider) *RiskAdvisor {
	return &RiskAdvisor{provider: provider}
}

// Warnings returns one human-readable warning per matching advisory rule,
// in table order. Unlike the blocked tables, every matching rule
// contributes: the caller wants the full picture, not the first hit.
func (a *RiskAdvisor) Warnings(command string) []string {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil
	}

	var warnings []string
	for _, r := range a.provider.Tables().AdvisoryCommands {
		if r.Pattern.MatchString(trimmed) {
			warnings = append(warnings, r.Reason)
		}
	}
	return warnings
}
