package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostctl/cmd/hostctl/handlers"
)

// Package returns the command that zips a project directory.
func Package() *cobra.Command {
	var opts handlers.PackageOptions

	cmd := &cobra.Command{
		Use:   "package <dir>",
		Short: "Zip a project directory for upload",
		Long: `Zip a project directory, skipping dependency and VCS folders.

node_modules, .git, dist, __pycache__, venv and existing zip files are
always excluded. Add patterns with --exclude (doublestar globs such as
"**/*.log" or "coverage").

With --push the archive is also stored in the inventory's artifacts bucket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Package(cmd.Context(), configPath, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Archive path (default: <dir>.zip)")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Additional exclude patterns")
	cmd.Flags().BoolVar(&opts.Push, "push", false, "Upload the archive to the artifacts bucket")

	return cmd
}
