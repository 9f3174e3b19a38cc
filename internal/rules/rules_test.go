package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbedded(t *testing.T) {
	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.BlockedCommands) == 0 {
		t.Error("no blocked command rules loaded")
	}
	if len(tables.BlockedCode) == 0 {
		t.Error("no blocked code rules loaded")
	}
	if len(tables.AdvisoryCommands) == 0 {
		t.Error("no advisory rules loaded")
	}
}

func TestEmbeddedRuleIDsUnique(t *testing.T) {
	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, info := range tables.List() {
		if seen[info.ID] {
			t.Errorf("duplicate rule id %q", info.ID)
		}
		seen[info.ID] = true
	}
}

func TestLoadDirAppendsAfterEmbedded(t *testing.T) {
	dir := t.TempDir()
	custom := `
kind: command
rules:
  - id: custom-block
    pattern: 'forbidden-tool'
    reason: site policy forbids this tool
    severity: high
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	embeddedCount := len(tables.BlockedCommands)

	if err := tables.LoadDir(dir); err != nil {
		t.Fatal(err)
	}
	if len(tables.BlockedCommands) != embeddedCount+1 {
		t.Fatalf("got %d command rules, want %d", len(tables.BlockedCommands), embeddedCount+1)
	}

	last := tables.BlockedCommands[len(tables.BlockedCommands)-1]
	if last.ID != "custom-block" {
		t.Errorf("custom rule not appended last, got %q", last.ID)
	}
}

func TestLoadDirRejectsBadPattern(t *testing.T) {
	dir := t.TempDir()
	bad := `
kind: command
rules:
  - id: broken
    pattern: '([unclosed'
    reason: broken regex
    severity: low
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	if err := tables.LoadDir(dir); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestLoadDirRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	bad := `
kind: mystery
rules:
  - id: x
    pattern: 'y'
    reason: z
    severity: low
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	tables := &Tables{}
	if err := tables.LoadDir(dir); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRuleAppliesTo(t *testing.T) {
	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}

	var scoped, unscoped *Rule
	for i := range tables.BlockedCode {
		r := &tables.BlockedCode[i]
		if r.Languages != nil && scoped == nil {
			scoped = r
		}
		if r.Languages == nil && unscoped == nil {
			unscoped = r
		}
	}
	if scoped == nil || unscoped == nil {
		t.Fatal("expected both scoped and unscoped code rules in the defaults")
	}

	if !unscoped.AppliesTo("cobol") {
		t.Error("unscoped rule should apply to any language")
	}
	if scoped.AppliesTo("cobol") {
		t.Errorf("rule %s should not apply to cobol", scoped.ID)
	}
}

func TestFind(t *testing.T) {
	tables, err := LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}

	info, ok := tables.Find("fs-root-delete")
	if !ok {
		t.Fatal("fs-root-delete not found")
	}
	if info.Severity != "critical" {
		t.Errorf("severity = %q, want critical", info.Severity)
	}
	if info.Table != "blocked-commands" {
		t.Errorf("table = %q, want blocked-commands", info.Table)
	}

	if _, ok := tables.Find("no-such-rule"); ok {
		t.Error("Find returned a rule for a bogus id")
	}
}

func TestParseSeverity(t *testing.T) {
	for input, want := range map[string]Severity{
		"low":      SeverityLow,
		"medium":   SeverityMedium,
		"high":     SeverityHigh,
		"critical": SeverityCritical,
	} {
		got, err := ParseSeverity(input)
		if err != nil {
			t.Fatalf("ParseSeverity(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", input, got, want)
		}
		if got.String() != input {
			t.Errorf("String() = %q, want %q", got.String(), input)
		}
	}

	if _, err := ParseSeverity("catastrophic"); err == nil {
		t.Error("expected error for unknown severity")
	}
}
