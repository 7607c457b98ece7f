package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Exec returns the command that runs one shell command on a host.
func Exec() *cobra.Command {
	var (
		stream  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "exec <host> -- <command...>",
		Short: "Run a shell command on a host",
		Long: `Run a single shell command on a host and print its output.

Examples:
  hostctl exec prod -- docker ps -a
  hostctl exec prod --stream -- docker logs -f backend
  hostctl exec prod --timeout 30s -- 'df -h / && free -m'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Exec(cmd.Context(), configPath, args[0], strings.Join(args[1:], " "), stream, timeout)
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "Print output while the command runs")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the command after this long (default: inventory command_timeout)")

	return cmd
}
