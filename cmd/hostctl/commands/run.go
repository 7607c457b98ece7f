package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Run returns the command that executes a runbook.
//
// Flags:
//
//	--host: Target host (default: the runbook's host field)
//	--hosts: Comma-separated hosts to run on in parallel
//	--var: Template variable override, repeatable (key=value)
//	--yes, -y: Answer yes to every confirmation step
//	--dry-run: Print what would run without connecting
//	--from-step: Skip steps before this 1-based index
func Run() *cobra.Command {
	var (
		opts handlers.RunOptions
		vars []string
	)

	cmd := &cobra.Command{
		Use:   "run <runbook.yaml>",
		Short: "Execute a runbook against a host",
		Long: `Execute the steps of a runbook in order against one host.

Examples:
  # Run against the host named in the runbook
  hostctl run deploy-backend.yaml

  # Override the target and a template variable
  hostctl run deploy-backend.yaml --host staging --var tag=backend:v2

  # Preview the shell text without connecting
  hostctl run deploy-backend.yaml --dry-run

  # Resume after fixing a failed step 4
  hostctl run deploy-backend.yaml --from-step 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}
			opts.Vars = parsed
			return handlers.Run(cmd.Context(), configPath, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Target host from the inventory")
	cmd.Flags().StringSliceVar(&opts.Hosts, "hosts", nil, "Run on several hosts in parallel (comma-separated)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Override a runbook variable (key=value, repeatable)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not prompt before confirmation steps")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print steps without executing them")
	cmd.Flags().IntVar(&opts.FromStep, "from-step", 0, "Start at this step (1-based)")
	cmd.MarkFlagsMutuallyExclusive("host", "hosts")

	return cmd
}

// parseVars turns key=value pairs into a map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", p)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}
