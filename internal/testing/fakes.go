package testing

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/imamik/hostctl/internal/platform/ssh"
)

// Response is the scripted outcome of one command on a FakeHost.
type Response struct {
	Stdout string
	Stderr string
	Exit   int
}

// FakeHost is an in-memory remote host. Commands without a scripted
// Response succeed with no output. Files are served from Files.
type FakeHost struct {
	mu sync.Mutex

	Address    string
	Responses  map[string]Response
	Files      map[string][]byte
	Commands   []string
	Uploads    []string
	ConnectErr error
	Closed     bool
}

// NewFakeHost creates a fake host reachable at address.
func NewFakeHost(address string) *FakeHost {
	return &FakeHost{
		Address:   address,
		Responses: map[string]Response{},
		Files:     map[string][]byte{},
	}
}

// Host returns the address.
func (f *FakeHost) Host() string { return f.Address }

// Connect returns ConnectErr.
func (f *FakeHost) Connect(context.Context) error { return f.ConnectErr }

// Close marks the host closed.
func (f *FakeHost) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Execute records command and replays its scripted Response.
func (f *FakeHost) Execute(_ context.Context, command string, opts ssh.ExecOptions) (*ssh.Result, error) {
	f.mu.Lock()
	f.Commands = append(f.Commands, command)
	resp := f.Responses[command]
	f.mu.Unlock()

	if opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, resp.Stdout)
	}
	if opts.Stderr != nil {
		_, _ = io.WriteString(opts.Stderr, resp.Stderr)
	}
	res := &ssh.Result{Command: command, Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.Exit}
	if resp.Exit != 0 {
		return res, &ssh.ExitError{Host: f.Address, Result: res}
	}
	return res, nil
}

// WriteFile stores a copy of data.
func (f *FakeHost) WriteFile(_ context.Context, path string, data []byte, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[path] = append([]byte(nil), data...)
	return nil
}

// ReadFile returns a stored file or an fs.ErrNotExist error.
func (f *FakeHost) ReadFile(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return data, nil
}

// Upload records "local -> remote" and returns the local file size.
func (f *FakeHost) Upload(_ context.Context, localPath, remotePath string) (int64, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Uploads = append(f.Uploads, localPath+" -> "+remotePath)
	return info.Size(), nil
}

// Exists reports whether path is in Files.
func (f *FakeHost) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Files[path]
	return ok, nil
}
