package runbook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/utils/v4"

	"github.com/imamik/hostctl/internal/docker"
	"github.com/imamik/hostctl/internal/envfile"
	"github.com/imamik/hostctl/internal/platform/ssh"
	"github.com/imamik/hostctl/internal/ui"
	"github.com/imamik/hostctl/internal/util/naming"
	"github.com/imamik/hostctl/internal/util/netutil"
	"github.com/imamik/hostctl/internal/util/retry"
)

const (
	defaultHTTPCheckTimeout = 30 * time.Second
	httpCheckInterval       = 2 * time.Second
	httpRequestTimeout      = 10 * time.Second
)

// action is implemented by every step action type.
type action interface {
	kind() string
	validate() error
	// describe returns the text echoed before execution. shell reports
	// whether the text is a command sent to the remote shell.
	describe(env *stepEnv) (text string, shell bool)
	execute(ctx context.Context, env *stepEnv) (*ssh.Result, error)
}

// detailer is implemented by actions with content worth showing on a dry run.
type detailer interface {
	detail() string
}

// stepEnv is what actions may touch while running.
type stepEnv struct {
	exec       Executor
	out        *ui.Printer
	now        func() time.Time
	httpClient *http.Client
}

// shell runs a command, printing buffered output after it finishes or
// streaming it while it runs.
func (e *stepEnv) shell(ctx context.Context, command string, stream bool) (*ssh.Result, error) {
	var opts ssh.ExecOptions
	if stream {
		opts.Stdout = e.out.Writer()
		opts.Stderr = e.out.Writer()
	}
	res, err := e.exec.Execute(ctx, command, opts)
	if !stream && res != nil {
		e.out.Output(res.Stdout, res.Stderr)
	}
	return res, err
}

// backup copies data to <path>.bak.<unix seconds>.
func (e *stepEnv) backup(ctx context.Context, path string, data []byte) error {
	dest := naming.Backup(path, e.now())
	if err := e.exec.WriteFile(ctx, dest, data, 0); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", dest, err)
	}
	e.out.Info("backup: %s", dest)
	return nil
}

// readOptional reads a remote file, reporting whether it existed.
func (e *stepEnv) readOptional(ctx context.Context, path string) ([]byte, bool, error) {
	data, err := e.exec.ReadFile(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (a *RunAction) kind() string { return "run" }

func (a *RunAction) validate() error {
	if strings.TrimSpace(a.Command) == "" {
		return errors.New("command is required")
	}
	return nil
}

func (a *RunAction) command() string {
	if a.Workdir == "" {
		return a.Command
	}
	return "cd " + utils.ShQuote(a.Workdir) + " && " + a.Command
}

func (a *RunAction) describe(*stepEnv) (string, bool) { return a.command(), true }

func (a *RunAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	res, err := env.shell(ctx, a.command(), a.Stream)
	var exitErr *ssh.ExitError
	if err != nil && !(a.IgnoreExit && errors.As(err, &exitErr)) {
		return res, err
	}
	if a.Expect != "" && (res == nil || !strings.Contains(res.Combined(), a.Expect)) {
		return res, fmt.Errorf("output does not contain %q", a.Expect)
	}
	return res, nil
}

func (a *WriteFileAction) kind() string { return "write_file" }

func (a *WriteFileAction) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	_, err := a.fileMode()
	return err
}

func (a *WriteFileAction) fileMode() (os.FileMode, error) {
	if a.Mode == "" {
		return 0, nil
	}
	m, err := strconv.ParseUint(a.Mode, 8, 32)
	if err != nil || m > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q (want octal such as 0644)", a.Mode)
	}
	return os.FileMode(m), nil
}

func (a *WriteFileAction) describe(*stepEnv) (string, bool) {
	text := fmt.Sprintf("write %s (%d bytes", a.Path, len(a.Content))
	if a.Mode != "" {
		text += ", mode " + a.Mode
	}
	return text + ")", false
}

func (a *WriteFileAction) detail() string { return a.Content }

func (a *WriteFileAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	mode, err := a.fileMode()
	if err != nil {
		return nil, err
	}
	if a.Backup {
		old, existed, err := env.readOptional(ctx, a.Path)
		if err != nil {
			return nil, err
		}
		if existed {
			if err := env.backup(ctx, a.Path, old); err != nil {
				return nil, err
			}
		}
	}
	return nil, env.exec.WriteFile(ctx, a.Path, []byte(a.Content), mode)
}

func (a *UploadAction) kind() string { return "upload" }

func (a *UploadAction) validate() error {
	var errs []error
	if a.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if a.Dest == "" {
		errs = append(errs, errors.New("dest is required"))
	}
	return errors.Join(errs...)
}

func (a *UploadAction) describe(*stepEnv) (string, bool) {
	return fmt.Sprintf("upload %s -> %s", a.Source, a.Dest), false
}

func (a *UploadAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	n, err := env.exec.Upload(ctx, a.Source, a.Dest)
	if err != nil {
		return nil, err
	}
	env.out.Info("uploaded %d bytes", n)
	return nil, nil
}

func (a *ReplaceAction) kind() string { return "replace" }

func (a *ReplaceAction) validate() error {
	var errs []error
	if a.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if a.Old == "" {
		errs = append(errs, errors.New("old is required"))
	}
	return errors.Join(errs...)
}

func (a *ReplaceAction) describe(*stepEnv) (string, bool) {
	return fmt.Sprintf("replace %q with %q in %s", a.Old, a.New, a.Path), false
}

func (a *ReplaceAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	data, existed, err := env.readOptional(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	if !existed {
		if a.AllowMissing {
			env.out.Info("%s does not exist, nothing to replace", a.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", a.Path, fs.ErrNotExist)
	}

	content := string(data)
	n := strings.Count(content, a.Old)
	if n == 0 {
		if a.AllowMissing {
			env.out.Info("text not found in %s, nothing to replace", a.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("text %q not found in %s", a.Old, a.Path)
	}

	if a.Backup {
		if err := env.backup(ctx, a.Path, data); err != nil {
			return nil, err
		}
	}
	if err := env.exec.WriteFile(ctx, a.Path, []byte(strings.ReplaceAll(content, a.Old, a.New)), 0); err != nil {
		return nil, err
	}
	env.out.Info("replaced %d occurrence(s)", n)
	return nil, nil
}

func (a *EnvSetAction) kind() string { return "env_set" }

func (a *EnvSetAction) validate() error {
	var errs []error
	if a.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if len(a.Values) == 0 && len(a.Unset) == 0 && !a.Unquote {
		errs = append(errs, errors.New("one of values, unset or unquote is required"))
	}
	for _, k := range a.sortedKeys() {
		if !envfile.ValidKey(k) {
			errs = append(errs, fmt.Errorf("invalid key %q", k))
		}
		if strings.ContainsAny(a.Values[k], "\r\n") {
			errs = append(errs, fmt.Errorf("value for %s must be a single line", k))
		}
	}
	return errors.Join(errs...)
}

func (a *EnvSetAction) sortedKeys() []string {
	keys := make([]string, 0, len(a.Values))
	for k := range a.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *EnvSetAction) describe(*stepEnv) (string, bool) {
	parts := []string{"edit " + a.Path + ":"}
	if len(a.Values) > 0 {
		parts = append(parts, "set "+strings.Join(a.sortedKeys(), ","))
	}
	if len(a.Unset) > 0 {
		parts = append(parts, "unset "+strings.Join(a.Unset, ","))
	}
	if a.Unquote {
		parts = append(parts, "unquote values")
	}
	return strings.Join(parts, " "), false
}

func (a *EnvSetAction) detail() string {
	var b strings.Builder
	for _, k := range a.sortedKeys() {
		fmt.Fprintf(&b, "%s=%s\n", k, a.Values[k])
	}
	return b.String()
}

func (a *EnvSetAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	data, existed, err := env.readOptional(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	f := envfile.Parse(string(data))
	for _, k := range a.sortedKeys() {
		if err := f.Set(k, a.Values[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range a.Unset {
		f.Unset(k)
	}
	unquoted := 0
	if a.Unquote {
		unquoted = f.Unquote()
	}

	mode := os.FileMode(0)
	if existed {
		if a.Backup {
			if err := env.backup(ctx, a.Path, data); err != nil {
				return nil, err
			}
		}
	} else {
		mode = 0o600
	}
	if err := env.exec.WriteFile(ctx, a.Path, []byte(f.String()), mode); err != nil {
		return nil, err
	}
	env.out.Info("%s: %d set, %d unset, %d unquoted", a.Path, len(a.Values), len(a.Unset), unquoted)
	return nil, nil
}

func (a *DockerBuildAction) kind() string { return "docker_build" }

func (a *DockerBuildAction) command() (string, error) {
	return docker.Build(docker.BuildOptions{
		Context:    a.Context,
		Tag:        a.Tag,
		Dockerfile: a.Dockerfile,
		NoCache:    a.NoCache,
		BuildArgs:  a.BuildArgs,
	})
}

func (a *DockerBuildAction) validate() error {
	_, err := a.command()
	return err
}

func (a *DockerBuildAction) describe(*stepEnv) (string, bool) {
	cmd, _ := a.command()
	return cmd, true
}

func (a *DockerBuildAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	cmd, err := a.command()
	if err != nil {
		return nil, err
	}
	return env.shell(ctx, cmd, true)
}

func (a *DockerRunAction) kind() string { return "docker_run" }

func (a *DockerRunAction) command() (string, error) {
	return docker.Run(docker.RunOptions{
		Name:    a.Name,
		Image:   a.Image,
		Ports:   a.Ports,
		EnvFile: a.EnvFile,
		Env:     a.Env,
		Network: a.Network,
		Restart: a.Restart,
		Volumes: a.Volumes,
		Replace: a.Replace,
	})
}

func (a *DockerRunAction) validate() error {
	_, err := a.command()
	return err
}

func (a *DockerRunAction) describe(*stepEnv) (string, bool) {
	cmd, _ := a.command()
	return cmd, true
}

func (a *DockerRunAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	cmd, err := a.command()
	if err != nil {
		return nil, err
	}
	return env.shell(ctx, cmd, false)
}

func (a *DockerRestartAction) kind() string { return "docker_restart" }

func (a *DockerRestartAction) validate() error {
	if len(a.Containers) == 0 {
		return errors.New("containers is required")
	}
	for _, c := range a.Containers {
		if c == "" {
			return errors.New("container names cannot be empty")
		}
	}
	return nil
}

func (a *DockerRestartAction) describe(*stepEnv) (string, bool) {
	return docker.Restart(a.Containers...), true
}

func (a *DockerRestartAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	return env.shell(ctx, docker.Restart(a.Containers...), false)
}

func (a *DockerLogsAction) kind() string { return "docker_logs" }

func (a *DockerLogsAction) validate() error {
	if a.Container == "" {
		return errors.New("container is required")
	}
	if a.Tail < 0 {
		return errors.New("tail cannot be negative")
	}
	return nil
}

func (a *DockerLogsAction) describe(*stepEnv) (string, bool) {
	return docker.Logs(a.Container, a.Tail), true
}

func (a *DockerLogsAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	return env.shell(ctx, docker.Logs(a.Container, a.Tail), false)
}

func (a *DockerNetworkAction) kind() string { return "docker_network" }

func (a *DockerNetworkAction) validate() error {
	if a.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (a *DockerNetworkAction) command() string {
	parts := []string{docker.NetworkCreate(a.Name)}
	for _, c := range a.Connect {
		parts = append(parts, "("+docker.NetworkConnect(a.Name, c)+")")
	}
	return strings.Join(parts, " && ")
}

func (a *DockerNetworkAction) describe(*stepEnv) (string, bool) { return a.command(), true }

func (a *DockerNetworkAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	return env.shell(ctx, a.command(), false)
}

func (a *SleepAction) kind() string { return "sleep" }

func (a *SleepAction) validate() error {
	if a.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	return nil
}

func (a *SleepAction) describe(*stepEnv) (string, bool) {
	return "sleep " + a.Duration.String(), false
}

func (a *SleepAction) execute(ctx context.Context, _ *stepEnv) (*ssh.Result, error) {
	timer := time.NewTimer(a.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (a *WaitPortAction) kind() string { return "wait_port" }

func (a *WaitPortAction) validate() error {
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("port %d out of range", a.Port)
	}
	if a.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

func (a *WaitPortAction) target(env *stepEnv) string {
	if a.Host != "" {
		return a.Host
	}
	return env.exec.Host()
}

func (a *WaitPortAction) describe(env *stepEnv) (string, bool) {
	return fmt.Sprintf("wait for %s:%d", a.target(env), a.Port), false
}

func (a *WaitPortAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = netutil.DefaultPortWaitTimeout
	}
	return nil, netutil.WaitForPort(ctx, a.target(env), a.Port, timeout)
}

func (a *HTTPCheckAction) kind() string { return "http_check" }

func (a *HTTPCheckAction) validate() error {
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q must be an absolute http(s) URL", a.URL)
	}
	if a.ExpectStatus != 0 && (a.ExpectStatus < 100 || a.ExpectStatus > 599) {
		return fmt.Errorf("expect_status %d is not an HTTP status", a.ExpectStatus)
	}
	if a.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

func (a *HTTPCheckAction) expected() int {
	if a.ExpectStatus == 0 {
		return http.StatusOK
	}
	return a.ExpectStatus
}

func (a *HTTPCheckAction) describe(*stepEnv) (string, bool) {
	return fmt.Sprintf("GET %s (expect %d)", a.URL, a.expected()), false
}

func (a *HTTPCheckAction) execute(ctx context.Context, env *stepEnv) (*ssh.Result, error) {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = defaultHTTPCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last error
	err := retry.Until(ctx, httpCheckInterval, func() error {
		status, err := a.probe(ctx, env.httpClient)
		switch {
		case err != nil:
			last = err
		case status != a.expected():
			last = fmt.Errorf("got status %d, want %d", status, a.expected())
		default:
			return nil
		}
		return last
	})
	switch {
	case err == nil:
		env.out.Info("%s answered %d", a.URL, a.expected())
		return nil, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("timeout after %s waiting for %s: %w", timeout, a.URL, last)
	default:
		return nil, fmt.Errorf("http check of %s interrupted: %w", a.URL, err)
	}
}

func (a *HTTPCheckAction) probe(ctx context.Context, client *http.Client) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, httpRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
