package validate

import (
	"regexp"
	"strings"

	"github.com/execguard/execguard/internal/rules"
)

// Obfuscation detectors that run regardless of table contents. A decoder
// piped into a shell hides the real payload from every pattern rule, so
// the pipe itself is the signal.
var (
	base64PipeShell = regexp.MustCompile(`base64\s+(-[dD]|--decode)[^|;]*\|\s*(sudo\s+)?(ba|da|z)?sh\b`)
	echoPipeDecode  = regexp.MustCompile(`\|\s*base64\s+(-[dD]|--decode)\s*\|\s*(sudo\s+)?(ba|da|z)?sh\b`)
	hexEscape       = regexp.MustCompile(`\$'\\x[0-9a-fA-F]`)
)

// CommandValidator checks terminal commands against the blocked-command
// rule table. It is stateless apart from the table provider, so a given
// input always yields the same verdict for the same tables.
type CommandValidator struct {
	provider rules.Provider
}

// NewCommandValidator returns a validator reading tables from provider.
func NewCommandValidator(provider rules.Provider) *CommandValidator {
	return &CommandValidator{provider: provider}
}

// Validate evaluates a raw command string. The whole trimmed command is
// tested first; if clean, each chained sub-segment is tested independently
// so a destructive command cannot hide behind a benign prefix.
func (v *CommandValidator) Validate(command string) Result {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Result{
			Allowed:  false,
			Reason:   "empty command",
			Severity: rules.SeverityMedium,
		}
	}

	table := v.provider.Tables().BlockedCommands

	if res, matched := matchFirst(table, trimmed); matched {
		return res
	}

	for _, segment := range SplitSegments(trimmed) {
		if res, matched := matchFirst(table, segment); matched {
			return res
		}
	}

	for _, re := range []*regexp.Regexp{base64PipeShell, echoPipeDecode} {
		if re.MatchString(trimmed) {
			return Result{
				Allowed:        false,
				Reason:         "base64-decoded payload piped into a shell interpreter",
				Severity:       rules.SeverityCritical,
				MatchedPattern: re.String(),
			}
		}
	}
	if hexEscape.MatchString(trimmed) {
		return Result{
			Allowed:        false,
			Reason:         "hex escape sequence literal obscures command content",
			Severity:       rules.SeverityHigh,
			MatchedPattern: hexEscape.String(),
		}
	}

	return allow()
}

// matchFirst tests input against the table in order. First match wins.
func matchFirst(table []rules.Rule, input string) (Result, bool) {
	for _, r := range table {
		if r.Pattern.MatchString(input) {
			return blockedBy(r), true
		}
	}
	return Result{}, false
}

// SplitSegments splits a command on unescaped shell chaining operators:
// ';', '&&', '||' and backticks. It is deliberately simple and not
// quote-aware; the goal is catching chained sub-commands, not parsing
// shell grammar.
func SplitSegments(command string) []string {
	var segments []string
	var current strings.Builder
	escaped := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if escaped {
			current.WriteRune(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
			current.WriteRune(c)
		case ';', '`':
			flush()
		case '&', '|':
			if i+1 < len(runes) && runes[i+1] == c {
				flush()
				i++
			} else {
				current.WriteRune(c)
			}
		default:
			current.WriteRune(c)
		}
	}
	flush()

	// A single segment equal to the input adds nothing over the
	// whole-string pass.
	if len(segments) == 1 && segments[0] == strings.TrimSpace(command) {
		return nil
	}
	return segments
}
