package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Upload returns the command that copies a local file to a host.
func Upload() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <host> <local-path> <remote-path>",
		Short: "Copy a local file to a host over SFTP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Upload(cmd.Context(), configPath, args[0], args[1], args[2])
		},
	}
}
