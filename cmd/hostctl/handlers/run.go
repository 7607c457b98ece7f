package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/imamik/hostctl/internal/config"
	"github.com/imamik/hostctl/internal/platform/ssh"
	"github.com/imamik/hostctl/internal/runbook"
	"github.com/imamik/hostctl/internal/ui"
	"github.com/imamik/hostctl/internal/util/async"
)

// maxParallelHosts bounds concurrent connections for --hosts.
const maxParallelHosts = 4

// RunOptions holds the flags of the run command.
type RunOptions struct {
	Host     string
	Hosts    []string
	Vars     map[string]string
	Yes      bool
	DryRun   bool
	FromStep int
}

// Run loads a runbook and executes it on the selected hosts.
//
// A single host streams output directly. With several hosts the runbook runs
// on each in parallel (sequential within a host) and each host's output is
// printed as one block once all hosts finish.
func Run(ctx context.Context, configPath, runbookPath string, opts RunOptions) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	rb, err := runbook.Load(runbookPath)
	if err != nil {
		return err
	}
	rb, err = rb.Render(opts.Vars)
	if err != nil {
		return err
	}
	if err := rb.Validate(); err != nil {
		return err
	}

	hosts, err := targetHosts(cfg, rb, opts)
	if err != nil {
		return err
	}

	if len(hosts) == 1 {
		return runOnHost(ctx, cfg, rb, hosts[0], newPrinter(stdout()), opts)
	}

	if !opts.Yes && !opts.DryRun && needsConfirmation(rb) {
		return fmt.Errorf("runbook %s has confirmation steps; pass --yes to run it on several hosts", rb.Name)
	}

	outputs := make([]bytes.Buffer, len(hosts))
	tasks := make([]async.Task, len(hosts))
	for i, h := range hosts {
		tasks[i] = async.Task{
			Name: h,
			Func: func(ctx context.Context) error {
				return runOnHost(ctx, cfg, rb, h, ui.NewPlain(&outputs[i]), opts)
			},
		}
	}

	runErr := async.RunParallel(ctx, tasks, maxParallelHosts)
	w := stdout()
	for i := range outputs {
		_, _ = outputs[i].WriteTo(w)
	}
	return runErr
}

// targetHosts resolves --hosts, --host and the runbook's host, in that order.
func targetHosts(cfg *config.Config, rb *runbook.Runbook, opts RunOptions) ([]string, error) {
	var hosts []string
	switch {
	case len(opts.Hosts) > 0:
		hosts = opts.Hosts
	case opts.Host != "":
		hosts = []string{opts.Host}
	case rb.Host != "":
		hosts = []string{rb.Host}
	default:
		return nil, errors.New("no target host: pass --host or set host in the runbook")
	}

	seen := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if seen[h] {
			return nil, fmt.Errorf("host %q listed twice", h)
		}
		seen[h] = true
		if _, err := cfg.Host(h); err != nil {
			return nil, err
		}
	}
	return hosts, nil
}

func needsConfirmation(rb *runbook.Runbook) bool {
	for _, s := range rb.Steps {
		if s.Confirm {
			return true
		}
	}
	return false
}

// runOnHost executes rb on one host over a single connection. Dry runs never
// connect and are not recorded.
func runOnHost(ctx context.Context, cfg *config.Config, rb *runbook.Runbook, hostName string, out *ui.Printer, opts RunOptions) error {
	runOpts := runbook.Options{
		DryRun:         opts.DryRun,
		FromStep:       opts.FromStep,
		AssumeYes:      opts.Yes,
		Confirm:        confirm,
		DefaultTimeout: cfg.Defaults.CommandTimeout,
	}

	if opts.DryRun {
		host, err := cfg.Host(hostName)
		if err != nil {
			return err
		}
		_, err = runbook.NewRunner(offlineHost(host.Address), out, runOpts).Run(ctx, rb)
		return err
	}

	rec := startRecording(ctx, cfg, rb.Name, hostName)
	client, err := connect(ctx, cfg, hostName)
	if err != nil {
		out.Result(err)
		rec.finish(ctx, err)
		return err
	}
	defer closeClient(client)

	runOpts.OnStep = func(sr runbook.StepReport) { rec.step(ctx, sr) }
	_, err = runbook.NewRunner(client, out, runOpts).Run(ctx, rb)
	rec.finish(ctx, err)
	return err
}

// runStep runs a single ad-hoc step on a host, recorded like a runbook run.
func runStep(ctx context.Context, configPath, hostName, name string, step runbook.Step) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	rb := &runbook.Runbook{Name: name, Host: hostName, Steps: []runbook.Step{step}}
	return runOnHost(ctx, cfg, rb, hostName, newPrinter(stdout()), RunOptions{Yes: true})
}

// offlineHost satisfies runbook.Executor for dry runs. Only Host is ever
// called; everything else refuses to touch the network.
type offlineHost string

var errOffline = errors.New("dry run: host not connected")

func (h offlineHost) Host() string { return string(h) }

func (offlineHost) Execute(context.Context, string, ssh.ExecOptions) (*ssh.Result, error) {
	log.Printf("[Runner] Execute called during dry run")
	return nil, errOffline
}

func (offlineHost) WriteFile(context.Context, string, []byte, os.FileMode) error {
	return errOffline
}

func (offlineHost) ReadFile(context.Context, string) ([]byte, error) {
	return nil, errOffline
}

func (offlineHost) Upload(context.Context, string, string) (int64, error) {
	return 0, errOffline
}

func (offlineHost) Exists(context.Context, string) (bool, error) {
	return false, errOffline
}
