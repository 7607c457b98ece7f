// Package prerequisites checks that a remote host has the tools hostctl
// runbooks shell out to.
package prerequisites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/hostctl/internal/platform/ssh"
)

// Runner executes a command on the remote host.
type Runner interface {
	Execute(ctx context.Context, command string, opts ssh.ExecOptions) (*ssh.Result, error)
}

// Tool represents a remote binary that may be required.
type Tool struct {
	// Name is the binary name to look for in the remote PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// VersionArgs are passed to the tool to print its version.
	VersionArgs string
}

// DefaultTools returns the tools runbooks depend on.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "docker",
			Required:    true,
			Description: "Builds images and runs the application containers",
			VersionArgs: "--version",
		},
		{
			Name:        "unzip",
			Required:    false,
			Description: "Unpacks project archives uploaded with hostctl package",
			VersionArgs: "-v",
		},
		{
			Name:        "curl",
			Required:    false,
			Description: "Used by health check commands inside runbooks",
			VersionArgs: "--version",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, tool.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check looks up each tool on the remote host with `command -v`.
// A non-zero exit means the tool is absent; any other failure aborts.
func Check(ctx context.Context, r Runner, tools []Tool) (*CheckResults, error) {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		res, err := r.Execute(ctx, "command -v "+tool.Name, ssh.ExecOptions{})
		var exitErr *ssh.ExitError
		switch {
		case err == nil:
			result.Found = true
			result.Path = strings.TrimSpace(res.Stdout)
			result.Version = toolVersion(ctx, r, tool)
		case errors.As(err, &exitErr):
			results.Missing = append(results.Missing, tool)
		default:
			return nil, fmt.Errorf("failed to check %s: %w", tool.Name, err)
		}

		results.Results = append(results.Results, result)
	}

	return results, nil
}

// toolVersion returns the first line of the tool's version output, or an
// empty string when it cannot be determined.
func toolVersion(ctx context.Context, r Runner, tool Tool) string {
	if tool.VersionArgs == "" {
		return ""
	}
	res, err := r.Execute(ctx, tool.Name+" "+tool.VersionArgs+" 2>&1", ssh.ExecOptions{})
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return strings.TrimSpace(line)
}
