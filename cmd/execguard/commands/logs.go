package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/execguard/execguard/internal/audit"
)

func newLogsCmd() *cobra.Command {
	var limit int
	var agent string
	var blockedOnly bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read recent audit log entries",
		Example: `  execguard logs
  execguard logs --limit 100
  execguard logs --blocked
  execguard logs --agent coder`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var entries []audit.Entry
			switch cfg.Audit.Backend {
			case "sqlite":
				store, err := audit.NewSQLiteStore(cfg.Audit.DBPath, quietLogger())
				if err != nil {
					return err
				}
				defer store.Close() //nolint:errcheck // best-effort cleanup
				var blocked *bool
				if blockedOnly {
					blocked = &blockedOnly
				}
				entries, err = store.Query(audit.QueryOpts{
					AgentID: agent,
					Blocked: blocked,
					Limit:   limit,
				})
				if err != nil {
					return err
				}
			default:
				log, err := audit.NewLog(cfg.Audit.Dir, quietLogger())
				if err != nil {
					return err
				}
				entries, err = log.Recent(limit)
				if err != nil {
					return err
				}
				// JSONL has no query layer; filter here.
				filtered := entries[:0]
				for _, e := range entries {
					if agent != "" && e.AgentID != agent {
						continue
					}
					if blockedOnly && !e.Blocked {
						continue
					}
					filtered = append(filtered, e)
				}
				entries = filtered
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tAGENT\tKIND\tVERDICT\tDETAIL\tRESULT")
			for _, e := range entries {
				verdict := "allowed"
				detail := summarize(e)
				if e.Blocked {
					verdict = "blocked"
					detail = e.BlockReason
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp, e.AgentID, e.Kind, verdict, detail, e.ExecutionResult)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	cmd.Flags().StringVar(&agent, "agent", "", "filter by agent id")
	cmd.Flags().BoolVar(&blockedOnly, "blocked", false, "only show blocked entries")
	return cmd
}

func summarize(e audit.Entry) string {
	s := e.Command
	if e.Kind == audit.KindCode {
		s = e.Code
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
