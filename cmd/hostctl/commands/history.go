package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// History returns the command group for past runs.
func History() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}
	cmd.AddCommand(historyList())
	cmd.AddCommand(historyShow())
	return cmd
}

func historyList() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.HistoryList(cmd.Context(), configPath, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func historyShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the steps and output of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return handlers.HistoryShow(cmd.Context(), configPath, uint(id))
		},
	}
}
