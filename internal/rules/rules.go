// Package rules loads and compiles the detection rule tables that drive
// command and code validation. Tables are declarative data: embedded YAML
// defaults, optionally layered with rules from a custom directory.
package rules

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	embeddedrules "github.com/execguard/execguard/rules"
	"github.com/execguard/execguard/internal/safefile"
)

// maxRuleFileBytes caps a single rule file read from disk. Embedded files
// are not subject to the cap.
const maxRuleFileBytes = 1 << 20

// Rule is one compiled detection rule. Rules are immutable after load.
type Rule struct {
	ID        string
	Pattern   *regexp.Regexp
	Reason    string
	Severity  Severity
	Languages map[string]bool // nil = applies to every language
}

// AppliesTo reports whether the rule is in scope for the given normalized
// language tag. Rules without a language list apply everywhere.
func (r Rule) AppliesTo(language string) bool {
	if r.Languages == nil {
		return true
	}
	return r.Languages[language]
}

// ruleSpec is the YAML shape of a single rule.
type ruleSpec struct {
	ID        string   `yaml:"id"`
	Pattern   string   `yaml:"pattern"`
	Reason    string   `yaml:"reason"`
	Severity  Severity `yaml:"severity"`
	Languages []string `yaml:"languages,omitempty"`
}

// ruleFile is the YAML shape of one rule file.
type ruleFile struct {
	Kind  string     `yaml:"kind"` // command, code, advisory
	Rules []ruleSpec `yaml:"rules"`
}

// Tables holds the three compiled rule tables. Order within each table is
// the file order, and the validators honor it (first match wins).
type Tables struct {
	BlockedCommands  []Rule
	BlockedCode      []Rule
	AdvisoryCommands []Rule
}

// Provider supplies the current rule tables. The static loader and the
// hot-reloading watcher both satisfy it.
type Provider interface {
	Tables() *Tables
}

// Static wraps a fixed Tables value as a Provider.
type Static struct {
	tables *Tables
}

// NewStatic returns a Provider that always serves t.
func NewStatic(t *Tables) *Static { return &Static{tables: t} }

// Tables implements Provider.
func (s *Static) Tables() *Tables { return s.tables }

// LoadEmbedded parses the rule files shipped in the binary.
func LoadEmbedded() (*Tables, error) {
	t := &Tables{}
	if err := t.loadFS(embeddedrules.FS()); err != nil {
		return nil, fmt.Errorf("embedded rules: %w", err)
	}
	return t, nil
}

// LoadDir parses every .yaml/.yml file in dir and appends its rules after
// any rules already in t, so custom rules are evaluated after the
// embedded defaults. Files are read through safefile and must stay under
// 1 MiB.
func (t *Tables) LoadDir(dir string) error {
	entries, err := filepath.Glob(filepath.Join(dir, "*.y*ml"))
	if err != nil {
		return fmt.Errorf("listing rules dir: %w", err)
	}
	sort.Strings(entries)
	for _, path := range entries {
		data, err := safefile.ReadFileMax(path, maxRuleFileBytes)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}
		if err := t.add(data); err != nil {
			return fmt.Errorf("rule file %s: %w", path, err)
		}
	}
	return nil
}

func (t *Tables) loadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if err := t.add(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
}

// add parses one rule file and appends its compiled rules to the matching
// table.
func (t *Tables) add(data []byte) error {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	var target *[]Rule
	switch rf.Kind {
	case "command":
		target = &t.BlockedCommands
	case "code":
		target = &t.BlockedCode
	case "advisory":
		target = &t.AdvisoryCommands
	default:
		return fmt.Errorf("unknown rule kind %q", rf.Kind)
	}

	for _, spec := range rf.Rules {
		rule, err := compile(spec)
		if err != nil {
			return err
		}
		*target = append(*target, rule)
	}
	return nil
}

func compile(spec ruleSpec) (Rule, error) {
	if spec.ID == "" {
		return Rule{}, fmt.Errorf("rule with pattern %q has no id", spec.Pattern)
	}
	if spec.Reason == "" {
		return Rule{}, fmt.Errorf("rule %s has no reason", spec.ID)
	}
	re, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", spec.ID, err)
	}
	rule := Rule{
		ID:       spec.ID,
		Pattern:  re,
		Reason:   spec.Reason,
		Severity: spec.Severity,
	}
	if len(spec.Languages) > 0 {
		rule.Languages = make(map[string]bool, len(spec.Languages))
		for _, lang := range spec.Languages {
			rule.Languages[strings.ToLower(strings.TrimSpace(lang))] = true
		}
	}
	return rule, nil
}

// Info is rule metadata for listing and explaining, without the compiled
// regexp internals.
type Info struct {
	ID        string   `json:"id"`
	Table     string   `json:"table"`
	Pattern   string   `json:"pattern"`
	Reason    string   `json:"reason"`
	Severity  string   `json:"severity"`
	Languages []string `json:"languages,omitempty"`
}

// List returns metadata for every loaded rule, grouped by table in
// evaluation order.
func (t *Tables) List() []Info {
	var out []Info
	appendTable := func(name string, table []Rule) {
		for _, r := range table {
			info := Info{
				ID:       r.ID,
				Table:    name,
				Pattern:  r.Pattern.String(),
				Reason:   r.Reason,
				Severity: r.Severity.String(),
			}
			for lang := range r.Languages {
				info.Languages = append(info.Languages, lang)
			}
			sort.Strings(info.Languages)
			out = append(out, info)
		}
	}
	appendTable("blocked-commands", t.BlockedCommands)
	appendTable("blocked-code", t.BlockedCode)
	appendTable("advisory", t.AdvisoryCommands)
	return out
}

// Find returns metadata for the rule with the given id, or false.
func (t *Tables) Find(id string) (Info, bool) {
	for _, info := range t.List() {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}
