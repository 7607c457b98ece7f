package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
	"github.com/imamik/hostctl/internal/config"
)

// Init returns the command for interactively creating an inventory.
//
// Flags:
//
//	--output, -o: Path to output file (default "hostctl.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create an inventory file",
		Long: `Interactively create hostctl.yaml with one host.

The wizard asks for the host's address, user and how to authenticate.
Passwords are never written to the file: choose the environment variable
hostctl should read the password from instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultConfigFilename, "Output file path")

	return cmd
}
