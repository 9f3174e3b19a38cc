// Package commands implements the execguard CLI. The CLI is an
// inspection surface only: it runs inputs through the validators, lists
// rules, and reads audit logs. Enforcement stays in the library.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/execguard/execguard/internal/config"
)

var cfgFile string

// NewRoot builds the root command with all subcommands attached.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "execguard",
		Short: "Pre-execution security gateway for autonomous agents",
		Long: "Execguard applies rule-based validation, rate limiting, environment sanitization, " +
			"and an audit trail to agent-proposed commands and code. It classifies; it never executes.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "execguard.yaml", "config file path")

	root.AddCommand(
		newCheckCmd(),
		newCheckCodeCmd(),
		newRulesCmd(),
		newLogsCmd(),
		newEnvCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the configured file, falling back to defaults when it
// does not exist.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return config.Defaults(), nil
	}
	return config.Load(cfgFile)
}

// quietLogger suppresses info noise in CLI output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
