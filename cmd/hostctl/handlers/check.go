package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/hostctl/internal/docker"
	"github.com/imamik/hostctl/internal/platform/ssh"
	"github.com/imamik/hostctl/internal/util/prerequisites"
)

// Check connects to a host and reports the tools runbooks rely on.
func Check(ctx context.Context, configPath, hostName string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	out := newPrinter(stdout())
	out.Title("Checking " + hostName)

	client, err := connect(ctx, cfg, hostName)
	if err != nil {
		return err
	}
	defer closeClient(client)
	out.Info("ssh: connected to %s", client.Host())

	results, err := prerequisites.Check(ctx, client, prerequisites.DefaultTools())
	if err != nil {
		return err
	}

	dockerFound := false
	for _, r := range results.Results {
		switch {
		case r.Found:
			line := fmt.Sprintf("%s: %s", r.Tool.Name, r.Path)
			if r.Version != "" {
				line += " (" + r.Version + ")"
			}
			out.Info("%s", line)
			if r.Tool.Name == "docker" {
				dockerFound = true
			}
		case r.Tool.Required:
			out.Warn("%s: not installed (required, %s)", r.Tool.Name, r.Tool.Description)
		default:
			out.Warn("%s: not installed (optional, %s)", r.Tool.Name, r.Tool.Description)
		}
	}

	var daemonErr error
	if dockerFound {
		res, err := client.Execute(ctx, docker.Version(), ssh.ExecOptions{})
		if err != nil {
			daemonErr = fmt.Errorf("docker daemon not reachable: %w", err)
			out.Warn("docker daemon: not reachable")
		} else {
			out.Info("docker daemon: %s", strings.TrimSpace(res.Stdout))
		}
	}

	if err := results.Error(); err != nil {
		return err
	}
	return daemonErr
}
