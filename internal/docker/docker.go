// Package docker builds the docker CLI invocations hostctl sends to a host.
//
// Nothing here talks to a daemon: every function returns shell text with all
// user-supplied values quoted, ready for ssh.Client.Execute.
package docker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/utils/v4"
)

// BuildOptions describes a `docker build`.
type BuildOptions struct {
	Context    string
	Tag        string
	Dockerfile string
	NoCache    bool
	BuildArgs  map[string]string
}

// Build returns a docker build command run from the build context directory.
func Build(opts BuildOptions) (string, error) {
	if opts.Context == "" {
		return "", fmt.Errorf("build context cannot be empty")
	}
	if opts.Tag == "" {
		return "", fmt.Errorf("image tag cannot be empty")
	}

	args := []string{"docker", "build"}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Dockerfile != "" {
		args = append(args, "-f", utils.ShQuote(opts.Dockerfile))
	}
	for _, k := range sortedKeys(opts.BuildArgs) {
		args = append(args, "--build-arg", utils.ShQuote(k+"="+opts.BuildArgs[k]))
	}
	args = append(args, "-t", utils.ShQuote(opts.Tag), ".")

	return "cd " + utils.ShQuote(opts.Context) + " && " + strings.Join(args, " "), nil
}

// RunOptions describes a detached `docker run`.
type RunOptions struct {
	Name    string
	Image   string
	Ports   []string
	EnvFile string
	Env     map[string]string
	Network string
	Restart string
	Volumes []string
	Workdir string
	// Replace stops and removes an existing container with the same name first.
	Replace bool
	Args    []string
}

// Run returns a docker run -d command, preceded by stop/rm when Replace is set.
func Run(opts RunOptions) (string, error) {
	if opts.Name == "" {
		return "", fmt.Errorf("container name cannot be empty")
	}
	if opts.Image == "" {
		return "", fmt.Errorf("image cannot be empty")
	}

	args := []string{"docker", "run", "-d", "--name", utils.ShQuote(opts.Name)}
	if opts.Restart != "" {
		args = append(args, "--restart", utils.ShQuote(opts.Restart))
	}
	if opts.Network != "" {
		args = append(args, "--network", utils.ShQuote(opts.Network))
	}
	for _, p := range opts.Ports {
		if err := validatePort(p); err != nil {
			return "", err
		}
		args = append(args, "-p", utils.ShQuote(p))
	}
	if opts.EnvFile != "" {
		args = append(args, "--env-file", utils.ShQuote(opts.EnvFile))
	}
	for _, k := range sortedKeys(opts.Env) {
		args = append(args, "-e", utils.ShQuote(k+"="+opts.Env[k]))
	}
	for _, v := range opts.Volumes {
		args = append(args, "-v", utils.ShQuote(v))
	}
	if opts.Workdir != "" {
		args = append(args, "-w", utils.ShQuote(opts.Workdir))
	}
	args = append(args, utils.ShQuote(opts.Image))
	for _, a := range opts.Args {
		args = append(args, utils.ShQuote(a))
	}

	cmd := strings.Join(args, " ")
	if opts.Replace {
		cmd = Stop(opts.Name) + "; " + Remove(opts.Name) + "; " + cmd
	}
	return cmd, nil
}

// validatePort accepts [ip:]hostPort:containerPort[/proto] and bare containerPort.
func validatePort(spec string) error {
	s, _, _ := strings.Cut(spec, "/")
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return fmt.Errorf("invalid port mapping %q", spec)
	}
	start := 0
	if len(parts) == 3 {
		start = 1
	}
	for _, p := range parts[start:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("invalid port mapping %q", spec)
		}
	}
	return nil
}

// Stop stops containers, tolerating ones that do not exist.
func Stop(names ...string) string {
	return "docker stop " + quoteAll(names) + " || true"
}

// Remove removes containers, tolerating ones that do not exist.
func Remove(names ...string) string {
	return "docker rm " + quoteAll(names) + " || true"
}

// Restart restarts containers.
func Restart(names ...string) string {
	return "docker restart " + quoteAll(names)
}

// Logs returns the last tail lines of a container's logs. tail <= 0 means all.
func Logs(name string, tail int) string {
	if tail > 0 {
		return fmt.Sprintf("docker logs --tail %d %s", tail, utils.ShQuote(name))
	}
	return "docker logs " + utils.ShQuote(name)
}

// NetworkCreate creates a bridge network unless it already exists.
func NetworkCreate(name string) string {
	q := utils.ShQuote(name)
	return "docker network inspect " + q + " >/dev/null 2>&1 || docker network create " + q
}

// NetworkConnect attaches a container to a network, tolerating an existing attachment.
func NetworkConnect(network, container string) string {
	return "docker network connect " + utils.ShQuote(network) + " " + utils.ShQuote(container) + " || true"
}

// Ps lists containers with a compact table format.
func Ps(all bool) string {
	cmd := "docker ps"
	if all {
		cmd += " -a"
	}
	return cmd + ` --format 'table {{.Names}}\t{{.Image}}\t{{.Status}}\t{{.Ports}}'`
}

// Version prints the server version, failing when the daemon is unreachable.
func Version() string {
	return "docker version --format '{{.Server.Version}}'"
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = utils.ShQuote(n)
	}
	return strings.Join(quoted, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
