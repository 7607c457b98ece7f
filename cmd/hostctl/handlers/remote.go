package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/hostctl/internal/envfile"
	"github.com/imamik/hostctl/internal/runbook"
)

// Exec runs one shell command on a host.
func Exec(ctx context.Context, configPath, hostName, command string, stream bool, timeout time.Duration) error {
	step := runbook.Step{
		Name:    "exec",
		Timeout: timeout,
		Run:     &runbook.RunAction{Command: command, Stream: stream},
	}
	return runStep(ctx, configPath, hostName, "exec", step)
}

// Upload copies a local file to a host.
func Upload(ctx context.Context, configPath, hostName, localPath, remotePath string) error {
	step := runbook.Step{
		Name:   "upload",
		Upload: &runbook.UploadAction{Source: localPath, Dest: remotePath},
	}
	return runStep(ctx, configPath, hostName, "upload", step)
}

// Logs prints the last tail lines of a container's logs.
func Logs(ctx context.Context, configPath, hostName, container string, tail int) error {
	step := runbook.Step{
		Name:       "logs " + container,
		DockerLogs: &runbook.DockerLogsAction{Container: container, Tail: tail},
	}
	return runStep(ctx, configPath, hostName, "logs", step)
}

// EnvSetOptions holds the flags of env set.
type EnvSetOptions struct {
	Values  map[string]string
	Unset   []string
	Unquote bool
	Backup  bool
}

// EnvSet edits a remote .env file.
func EnvSet(ctx context.Context, configPath, hostName, path string, opts EnvSetOptions) error {
	if len(opts.Values) == 0 && len(opts.Unset) == 0 && !opts.Unquote {
		return fmt.Errorf("nothing to change: pass KEY=VALUE pairs, --unset or --unquote")
	}
	step := runbook.Step{
		Name: "edit " + path,
		EnvSet: &runbook.EnvSetAction{
			Path:    path,
			Values:  opts.Values,
			Unset:   opts.Unset,
			Unquote: opts.Unquote,
			Backup:  opts.Backup,
		},
	}
	return runStep(ctx, configPath, hostName, "env set", step)
}

// EnvShow prints the assignments of a remote .env file in file order.
func EnvShow(ctx context.Context, configPath, hostName, path string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	client, err := connect(ctx, cfg, hostName)
	if err != nil {
		return err
	}
	defer closeClient(client)

	data, err := client.ReadFile(ctx, path)
	if err != nil {
		return err
	}

	out := newPrinter(stdout())
	f := envfile.Parse(string(data))
	keys := f.Keys()
	if len(keys) == 0 {
		out.Printf("%s has no variables\n", path)
		return nil
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		v, _ := f.Get(k)
		out.Printf("%s=%s\n", k, v)
	}
	return nil
}
