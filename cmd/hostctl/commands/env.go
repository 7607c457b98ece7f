package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Env returns the command group for editing remote .env files.
func Env() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect and edit remote .env files",
	}
	cmd.AddCommand(envShow())
	cmd.AddCommand(envSet())
	return cmd
}

func envShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <host> <path>",
		Short: "Print a remote .env file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.EnvShow(cmd.Context(), configPath, args[0], args[1])
		},
	}
}

func envSet() *cobra.Command {
	var opts handlers.EnvSetOptions

	cmd := &cobra.Command{
		Use:   "set <host> <path> [KEY=VALUE...]",
		Short: "Set, unset or unquote variables in a remote .env file",
		Long: `Edit a remote .env file in place, keeping comments and order.

Examples:
  hostctl env set prod /opt/app/.env DEBUG=false API_URL=https://api.example.com
  hostctl env set prod /opt/app/.env --unset LEGACY_TOKEN
  hostctl env set prod /opt/app/.env --unquote --backup`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseVars(args[2:])
			if err != nil {
				return err
			}
			opts.Values = values
			return handlers.EnvSet(cmd.Context(), configPath, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Unset, "unset", nil, "Remove these keys")
	cmd.Flags().BoolVar(&opts.Unquote, "unquote", false, "Strip surrounding quotes from all values")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "Keep a timestamped copy of the original file")

	return cmd
}
