package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Check returns the command that verifies a host is ready for runbooks.
func Check() *cobra.Command {
	return &cobra.Command{
		Use:   "check <host>",
		Short: "Verify connectivity and required tools on a host",
		Long: `Connect to a host and check that the tools runbooks use are installed.

docker is required; unzip and curl are reported when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Check(cmd.Context(), configPath, args[0])
		},
	}
}
