package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Logs returns the command that prints a container's logs.
func Logs() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <host> <container>",
		Short: "Print recent logs of a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Logs(cmd.Context(), configPath, args[0], args[1], tail)
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 100, "Number of lines to show (0 for all)")

	return cmd
}
