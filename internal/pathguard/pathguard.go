// Package pathguard validates proposed working directories. Restricted
// path sets come from a Platform implementation so policy can be swapped
// per deployment target without touching the validation logic.
package pathguard

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/execguard/execguard/internal/rules"
	"github.com/execguard/execguard/internal/validate"
)

// Platform supplies the restricted directory set for one target OS.
type Platform interface {
	// Name identifies the platform in refusal messages.
	Name() string
	// Restricted returns absolute directories that may not be used as a
	// working directory, nor any of their descendants.
	Restricted() []string
	// CaseInsensitive reports whether path comparison ignores case.
	CaseInsensitive() bool
}

// Unix is the restricted-path policy for Linux and other Unix-likes.
type Unix struct{}

func (Unix) Name() string          { return "unix" }
func (Unix) CaseInsensitive() bool { return false }
func (Unix) Restricted() []string {
	return []string{
		"/etc", "/boot", "/proc", "/sys", "/dev", "/root",
		"/bin", "/sbin", "/usr/bin", "/usr/sbin", "/lib", "/lib64",
		"/var/log", "/var/run", "/run",
	}
}

// Windows is the restricted-path policy for Windows hosts.
type Windows struct{}

func (Windows) Name() string          { return "windows" }
func (Windows) CaseInsensitive() bool { return true }
func (Windows) Restricted() []string {
	return []string{
		`C:\Windows`, `C:\Windows\System32`,
		`C:\Program Files`, `C:\Program Files (x86)`,
		`C:\ProgramData`,
	}
}

// ForGOOS selects the platform policy for the given GOOS value.
func ForGOOS(goos string) Platform {
	if goos == "windows" {
		return Windows{}
	}
	return Unix{}
}

// Guard validates working directories against one platform policy plus
// any config-supplied extra restrictions.
type Guard struct {
	platform Platform
	extra    []string
}

// New creates a guard for the current OS. extra entries are additional
// restricted directories from configuration.
func New(extra []string) *Guard {
	return NewForPlatform(ForGOOS(runtime.GOOS), extra)
}

// NewForPlatform creates a guard with an explicit platform policy.
func NewForPlatform(p Platform, extra []string) *Guard {
	return &Guard{platform: p, extra: extra}
}

// Validate checks a proposed working directory. An empty path is always
// allowed; the caller falls back to its own safe default. Restricted-path
// hits refuse at high severity; a missing or non-directory path refuses at
// low severity, a usability error rather than an attack.
func (g *Guard) Validate(dir string) validate.Result {
	if strings.TrimSpace(dir) == "" {
		return validate.Result{Allowed: true}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return validate.Result{
			Allowed:  false,
			Reason:   "working directory could not be resolved: " + err.Error(),
			Severity: rules.SeverityLow,
		}
	}
	abs = filepath.Clean(abs)

	for _, restricted := range append(g.platform.Restricted(), g.extra...) {
		if g.within(abs, restricted) {
			return validate.Result{
				Allowed:  false,
				Reason:   "working directory " + abs + " is inside restricted path " + restricted,
				Severity: rules.SeverityHigh,
			}
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return validate.Result{
			Allowed:  false,
			Reason:   "working directory does not exist: " + abs,
			Severity: rules.SeverityLow,
		}
	}
	if !info.IsDir() {
		return validate.Result{
			Allowed:  false,
			Reason:   "working directory is not a directory: " + abs,
			Severity: rules.SeverityLow,
		}
	}

	return validate.Result{Allowed: true}
}

// within reports whether path equals base or descends from it.
func (g *Guard) within(path, base string) bool {
	if g.platform.CaseInsensitive() {
		path = strings.ToLower(path)
		base = strings.ToLower(base)
	}
	if path == base {
		return true
	}
	// Accept either separator so the Windows policy is testable on any
	// build platform.
	for _, sep := range []string{"/", `\`} {
		if strings.HasPrefix(path, strings.TrimSuffix(base, sep)+sep) {
			return true
		}
	}
	return false
}
