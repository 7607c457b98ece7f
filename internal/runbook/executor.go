package runbook

import (
	"context"
	"os"

	"github.com/imamik/hostctl/internal/platform/ssh"
)

// Executor performs remote operations on one host. *ssh.Client implements it.
type Executor interface {
	Host() string
	Execute(ctx context.Context, command string, opts ssh.ExecOptions) (*ssh.Result, error)
	WriteFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error
	ReadFile(ctx context.Context, remotePath string) ([]byte, error)
	Upload(ctx context.Context, localPath, remotePath string) (int64, error)
	Exists(ctx context.Context, remotePath string) (bool, error)
}

var _ Executor = (*ssh.Client)(nil)
