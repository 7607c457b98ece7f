// Package main is the entry point for the hostctl CLI.
//
// hostctl runs maintenance runbooks (shell commands, file rewrites, .env
// edits, docker rebuilds and restarts) against hosts declared in an
// inventory file, over a single SSH connection per host.
//
// For detailed usage information, run:
//
//	hostctl --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/hostctl/cmd/hostctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
