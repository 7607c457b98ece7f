package runbook

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/imamik/hostctl/internal/platform/ssh"
)

type fakeResponse struct {
	stdout string
	stderr string
	exit   int
	// block waits for context cancellation before answering.
	block bool
}

type writeCall struct {
	path string
	data string
	mode os.FileMode
}

// fakeExecutor is an in-memory Executor. Commands without a canned
// response succeed with empty output.
type fakeExecutor struct {
	mu        sync.Mutex
	host      string
	responses map[string]fakeResponse
	files     map[string][]byte
	commands  []string
	writes    []writeCall
	uploads   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		host:      "203.0.113.10",
		responses: map[string]fakeResponse{},
		files:     map[string][]byte{},
	}
}

func (f *fakeExecutor) Host() string { return f.host }

func (f *fakeExecutor) Execute(ctx context.Context, command string, opts ssh.ExecOptions) (*ssh.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	resp := f.responses[command]
	f.mu.Unlock()

	if resp.block {
		<-ctx.Done()
		return &ssh.Result{Command: command, ExitCode: -1}, ctx.Err()
	}

	if opts.Stdout != nil {
		_, _ = opts.Stdout.Write([]byte(resp.stdout))
	}
	if opts.Stderr != nil {
		_, _ = opts.Stderr.Write([]byte(resp.stderr))
	}
	res := &ssh.Result{Command: command, Stdout: resp.stdout, Stderr: resp.stderr, ExitCode: resp.exit}
	if resp.exit != 0 {
		return res, &ssh.ExitError{Host: f.host, Result: res}
	}
	return res, nil
}

func (f *fakeExecutor) WriteFile(_ context.Context, path string, data []byte, mode os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = append([]byte(nil), data...)
	f.writes = append(f.writes, writeCall{path: path, data: string(data), mode: mode})
	return nil
}

func (f *fakeExecutor) ReadFile(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

func (f *fakeExecutor) Upload(_ context.Context, local, remote string) (int64, error) {
	info, err := os.Stat(local)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, local+"->"+remote)
	return info.Size(), nil
}

func (f *fakeExecutor) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok, nil
}

var _ Executor = (*fakeExecutor)(nil)
