package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/execguard/execguard/internal/sanitize"
)

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the sanitized environment a child process would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			env := sanitize.Environment(cfg.Env.ExtraSecretPrefixes)

			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s=%s\n", k, env[k])
			}
			return nil
		},
	}
}
