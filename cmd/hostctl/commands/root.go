// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Global flags shared by all subcommands.
var (
	configPath string
	verbose    bool
)

// Root returns the root command for the hostctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hostctl",
		Short: "Run maintenance runbooks on remote hosts over SSH",
		Long: `hostctl runs declarative runbooks against hosts listed in hostctl.yaml.

A runbook is a YAML list of steps: shell commands, file rewrites, .env edits,
docker builds and restarts. Steps run in order over one SSH connection and
stop at the first failure.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogging(verbose)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to inventory file (default: hostctl.yaml in this or a parent directory)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to stderr")

	// Remote operations
	cmd.AddCommand(Run())
	cmd.AddCommand(Exec())
	cmd.AddCommand(Upload())
	cmd.AddCommand(Env())
	cmd.AddCommand(Logs())
	cmd.AddCommand(Check())
	cmd.AddCommand(Keys())

	// Local utilities
	cmd.AddCommand(Package())
	cmd.AddCommand(Swagger())
	cmd.AddCommand(History())
	cmd.AddCommand(Init())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// configureLogging routes component logs to stderr only in verbose mode.
func configureLogging(verbose bool) {
	if verbose {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		return
	}
	log.SetOutput(io.Discard)
}
