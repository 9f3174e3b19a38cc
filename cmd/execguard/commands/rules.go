package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/execguard/execguard/internal/rules"
)

func newRulesCmd() *cobra.Command {
	var explain, table string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List or explain the loaded detection rules",
		Example: `  execguard rules
  execguard rules --table blocked-commands
  execguard rules --explain fs-root-delete`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tables, err := rules.LoadEmbedded()
			if err != nil {
				return err
			}
			if cfg.CustomRulesDir != "" {
				if err := tables.LoadDir(cfg.CustomRulesDir); err != nil {
					return err
				}
			}

			if explain != "" {
				info, ok := tables.Find(explain)
				if !ok {
					return fmt.Errorf("no rule with id %q", explain)
				}
				fmt.Printf("id:       %s\n", info.ID)
				fmt.Printf("table:    %s\n", info.Table)
				fmt.Printf("severity: %s\n", info.Severity)
				fmt.Printf("reason:   %s\n", info.Reason)
				fmt.Printf("pattern:  %s\n", info.Pattern)
				if len(info.Languages) > 0 {
					fmt.Printf("languages: %s\n", strings.Join(info.Languages, ", "))
				}
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTABLE\tSEVERITY\tREASON")
			for _, info := range tables.List() {
				if table != "" && info.Table != table {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Table, info.Severity, info.Reason)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&explain, "explain", "", "show full detail for one rule id")
	cmd.Flags().StringVar(&table, "table", "", "filter by table (blocked-commands, blocked-code, advisory)")
	return cmd
}
