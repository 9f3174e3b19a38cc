package validate

import (
	"regexp"
	"strings"

	"github.com/execguard/execguard/internal/rules"
)

// MaxCodeLen caps analyzed code size. Anything larger is refused outright:
// pattern matching cost grows with input, and oversized snippets bloat the
// audit log.
const MaxCodeLen = 100_000

// shellExecPatterns catch code that shells out with a destructive payload,
// whatever the host language. They run after the table pass, across all
// languages.
var shellExecPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(os\.system|subprocess\.(run|call|Popen|check_output))\s*\([^)]*(rm\s+-[a-zA-Z]*[rf]|mkfs|dd\s+if=|/dev/(sd|tcp)|:\(\)\s*\{)`),
	regexp.MustCompile(`child_process\.(exec|execSync|spawn|spawnSync)\s*\([^)]*(rm\s+-[a-zA-Z]*[rf]|mkfs|dd\s+if=|/dev/(sd|tcp))`),
	regexp.MustCompile(`Runtime\.getRuntime\(\)\.exec\s*\([^)]*(rm\s+-[a-zA-Z]*[rf]|mkfs|dd\s+if=)`),
	regexp.MustCompile(`(shell_exec|proc_open|passthru)\s*\([^)]*(rm\s+-[a-zA-Z]*[rf]|mkfs|dd\s+if=)`),
}

// CodeValidator checks code snippets against the language-scoped
// blocked-code rule table.
type CodeValidator struct {
	provider rules.Provider
}

// NewCodeValidator returns a validator reading tables from provider.
func NewCodeValidator(provider rules.Provider) *CodeValidator {
	return &CodeValidator{provider: provider}
}

// Validate evaluates code tagged with a language. Rules scoped to other
// languages are skipped; unscoped rules always apply. First match wins.
func (v *CodeValidator) Validate(code, language string) Result {
	if strings.TrimSpace(code) == "" {
		return Result{
			Allowed:  false,
			Reason:   "empty code",
			Severity: rules.SeverityMedium,
		}
	}

	lang := strings.ToLower(strings.TrimSpace(language))

	for _, r := range v.provider.Tables().BlockedCode {
		if !r.AppliesTo(lang) {
			continue
		}
		if r.Pattern.MatchString(code) {
			return blockedBy(r)
		}
	}

	for _, re := range shellExecPatterns {
		if re.MatchString(code) {
			return Result{
				Allowed:        false,
				Reason:         "embedded shell execution with a destructive payload",
				Severity:       rules.SeverityCritical,
				MatchedPattern: re.String(),
			}
		}
	}

	if len(code) > MaxCodeLen {
		return Result{
			Allowed:  false,
			Reason:   "code exceeds maximum analyzable size",
			Severity: rules.SeverityMedium,
		}
	}

	return allow()
}
