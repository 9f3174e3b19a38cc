package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/execguard/execguard"
	"github.com/execguard/execguard/internal/audit"
)

func newCheckCmd() *cobra.Command {
	var agent, workdir string

	cmd := &cobra.Command{
		Use:   "check [command...]",
		Short: "Run a terminal command through the gateway validators",
		Example: `  execguard check -- ls -la
  execguard check -- "echo hi; rm -rf /"
  execguard check --workdir /etc -- ls`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := newCheckGuard()
			if err != nil {
				return err
			}
			defer g.Close() //nolint:errcheck // best-effort cleanup

			res := g.PreExecutionCheck(cmd.Context(), execguard.Request{
				AgentID: agent,
				Kind:    audit.KindTerminal,
				Command: strings.Join(args, " "),
				Reason:  "cli check",
				WorkDir: workdir,
			})
			printVerdict(res)
			if !res.Validation.Allowed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "cli", "agent id to check as")
	cmd.Flags().StringVar(&workdir, "workdir", "", "proposed working directory")
	return cmd
}

func newCheckCodeCmd() *cobra.Command {
	var agent, language, file string

	cmd := &cobra.Command{
		Use:   "check-code [code]",
		Short: "Run a code snippet through the gateway validators",
		Example: `  execguard check-code --lang python 'import os; os.system("rm -rf /")'
  execguard check-code --lang javascript --file snippet.js`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var code string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading code file: %w", err)
				}
				code = string(data)
			case len(args) > 0:
				code = strings.Join(args, " ")
			default:
				return fmt.Errorf("provide code as an argument or via --file")
			}

			g, err := newCheckGuard()
			if err != nil {
				return err
			}
			defer g.Close() //nolint:errcheck // best-effort cleanup

			res := g.PreExecutionCheck(cmd.Context(), execguard.Request{
				AgentID:  agent,
				Kind:     audit.KindCode,
				Code:     code,
				Language: language,
				Reason:   "cli check",
			})
			printVerdict(res)
			if !res.Validation.Allowed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "cli", "agent id to check as")
	cmd.Flags().StringVar(&language, "lang", "", "language tag for the code")
	cmd.Flags().StringVar(&file, "file", "", "read code from this file")
	return cmd
}

func newCheckGuard() (*execguard.Guard, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// CLI checks audit into a temp dir so casual use does not pollute the
	// configured trail.
	tmp, err := os.MkdirTemp("", "execguard-cli-*")
	if err != nil {
		return nil, err
	}
	cfg.Audit.Backend = "jsonl"
	cfg.Audit.Dir = tmp
	return execguard.New(cfg, execguard.WithLogger(quietLogger()))
}

func printVerdict(res execguard.Result) {
	if res.Validation.Allowed {
		color.Green("ALLOWED")
	} else {
		color.Red("BLOCKED [%s] %s", res.Validation.Severity, res.Validation.Reason)
		if res.Validation.RuleID != "" {
			fmt.Printf("  rule: %s\n", res.Validation.RuleID)
		}
	}
	for _, w := range res.RiskWarnings {
		color.Yellow("  warning: %s", w)
	}
}
