package ssh

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ExecOptions controls a single Execute call.
type ExecOptions struct {
	// Stdout and Stderr receive output as it arrives. Nil means buffered only.
	Stdout io.Writer
	Stderr io.Writer
	// Stdin is fed to the remote command when set.
	Stdin io.Reader
	// Timeout bounds the command. Zero means only ctx applies.
	Timeout time.Duration
}

// Result is the captured outcome of one remote command.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout followed by stderr, trimmed.
func (r *Result) Combined() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Host   string
	Result *Result
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command exited with status %d on %s\nCommand: %s",
		e.Result.ExitCode, e.Host, firstLine(e.Result.Command))
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += "\nStderr: " + lastLines(stderr, 10)
	}
	return msg
}

// ConnectError reports a failure to establish the SSH connection.
type ConnectError struct {
	Addr string
	User string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to establish SSH connection to %s@%s: %v", e.User, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
