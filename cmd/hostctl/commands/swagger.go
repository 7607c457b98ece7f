package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Swagger returns the command that summarises a Swagger 2.0 file.
func Swagger() *cobra.Command {
	return &cobra.Command{
		Use:   "swagger <swagger.json>",
		Short: "Print the endpoints of a Swagger 2.0 document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Swagger(args[0])
		},
	}
}
