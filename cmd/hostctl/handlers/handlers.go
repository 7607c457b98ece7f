// Package handlers implements the business logic for CLI commands.
//
// Each exported function backs one cobra command. Dependencies that reach
// outside the process (SSH, the history database, object storage, terminal
// prompts) are held in factory variables so tests can replace them.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/imamik/hostctl/internal/config"
	"github.com/imamik/hostctl/internal/history"
	"github.com/imamik/hostctl/internal/platform/s3"
	"github.com/imamik/hostctl/internal/platform/ssh"
	"github.com/imamik/hostctl/internal/runbook"
	"github.com/imamik/hostctl/internal/ui"
)

// RemoteClient is an open connection to one host.
type RemoteClient interface {
	runbook.Executor
	Connect(ctx context.Context) error
	Close() error
}

// ArtifactStore stores packaged archives.
type ArtifactStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutFile(ctx context.Context, bucket, key, path string) error
}

// Factory function variables - can be replaced in tests.
var (
	// findConfigFile locates hostctl.yaml in the working directory or above.
	findConfigFile = config.FindConfigFile

	// loadConfigFile reads and validates an inventory.
	loadConfigFile = config.Load

	// newRemoteClient creates an SSH client for a host.
	newRemoteClient = func(cfg *ssh.Config) (RemoteClient, error) {
		return ssh.NewClient(cfg)
	}

	// openHistory opens the run history database.
	openHistory = history.Open

	// newArtifactStore creates the object storage client for package --push.
	newArtifactStore = func(ctx context.Context, opts s3.Options) (ArtifactStore, error) {
		return s3.NewClient(ctx, opts)
	}

	// confirm asks the operator before confirmation steps.
	confirm runbook.ConfirmFunc = runbook.PromptConfirm

	// newPrinter creates the console printer for operator output.
	newPrinter = func(w io.Writer) *ui.Printer {
		return ui.New(w)
	}
)

// stdout is read on every call so tests can redirect os.Stdout.
func stdout() io.Writer {
	return os.Stdout
}

// loadConfig loads the inventory from configPath, or finds it when empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		path, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no config file found: %w\nRun 'hostctl init' to create one", err)
		}
		configPath = path
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Using inventory: %s", configPath)
	return cfg, nil
}

// connect opens an SSH connection to the named inventory host.
func connect(ctx context.Context, cfg *config.Config, hostName string) (RemoteClient, error) {
	host, err := cfg.Host(hostName)
	if err != nil {
		return nil, err
	}

	sshCfg, err := host.SSHConfig(cfg.Defaults)
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", hostName, err)
	}

	client, err := newRemoteClient(sshCfg)
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", hostName, err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// closeClient closes c, logging rather than returning the error.
func closeClient(c RemoteClient) {
	if err := c.Close(); err != nil {
		log.Printf("[SSH] Close %s: %v", c.Host(), err)
	}
}
