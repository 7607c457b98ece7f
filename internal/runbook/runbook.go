package runbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Runbook is a named list of steps run against one host.
type Runbook struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Host        string            `yaml:"host,omitempty"`
	Vars        map[string]string `yaml:"vars,omitempty"`
	Steps       []Step            `yaml:"steps"`
}

// Step is one unit of work. Exactly one action field is set.
type Step struct {
	Name            string        `yaml:"name,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	ContinueOnError bool          `yaml:"continue_on_error,omitempty"`
	Confirm         bool          `yaml:"confirm,omitempty"`

	Run           *RunAction           `yaml:"run,omitempty"`
	WriteFile     *WriteFileAction     `yaml:"write_file,omitempty"`
	Upload        *UploadAction        `yaml:"upload,omitempty"`
	Replace       *ReplaceAction       `yaml:"replace,omitempty"`
	EnvSet        *EnvSetAction        `yaml:"env_set,omitempty"`
	DockerBuild   *DockerBuildAction   `yaml:"docker_build,omitempty"`
	DockerRun     *DockerRunAction     `yaml:"docker_run,omitempty"`
	DockerRestart *DockerRestartAction `yaml:"docker_restart,omitempty"`
	DockerLogs    *DockerLogsAction    `yaml:"docker_logs,omitempty"`
	DockerNetwork *DockerNetworkAction `yaml:"docker_network,omitempty"`
	Sleep         *SleepAction         `yaml:"sleep,omitempty"`
	WaitPort      *WaitPortAction      `yaml:"wait_port,omitempty"`
	HTTPCheck     *HTTPCheckAction     `yaml:"http_check,omitempty"`
}

// RunAction runs a shell command.
type RunAction struct {
	Command    string `yaml:"command"`
	Stream     bool   `yaml:"stream,omitempty"`
	IgnoreExit bool   `yaml:"ignore_exit,omitempty"`
	// Expect fails the step unless the combined output contains it.
	Expect  string `yaml:"expect,omitempty"`
	Workdir string `yaml:"workdir,omitempty"`
}

// WriteFileAction replaces a remote file's content.
type WriteFileAction struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
	// Mode is an octal permission string such as "0644".
	Mode   string `yaml:"mode,omitempty"`
	Backup bool   `yaml:"backup,omitempty"`
}

// UploadAction copies a local file to the host.
type UploadAction struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// ReplaceAction substitutes text inside a remote file.
type ReplaceAction struct {
	Path         string `yaml:"path"`
	Old          string `yaml:"old"`
	New          string `yaml:"new"`
	AllowMissing bool   `yaml:"allow_missing,omitempty"`
	Backup       bool   `yaml:"backup,omitempty"`
}

// EnvSetAction edits a remote .env file.
type EnvSetAction struct {
	Path    string            `yaml:"path"`
	Values  map[string]string `yaml:"values,omitempty"`
	Unset   []string          `yaml:"unset,omitempty"`
	Unquote bool              `yaml:"unquote,omitempty"`
	Backup  bool              `yaml:"backup,omitempty"`
}

// DockerBuildAction builds an image on the host.
type DockerBuildAction struct {
	Context    string            `yaml:"context"`
	Tag        string            `yaml:"tag"`
	Dockerfile string            `yaml:"dockerfile,omitempty"`
	NoCache    bool              `yaml:"no_cache,omitempty"`
	BuildArgs  map[string]string `yaml:"build_args,omitempty"`
}

// DockerRunAction starts a detached container.
type DockerRunAction struct {
	Name    string            `yaml:"name"`
	Image   string            `yaml:"image"`
	Ports   []string          `yaml:"ports,omitempty"`
	EnvFile string            `yaml:"env_file,omitempty"`
	Network string            `yaml:"network,omitempty"`
	Restart string            `yaml:"restart,omitempty"`
	Volumes []string          `yaml:"volumes,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Replace bool              `yaml:"replace,omitempty"`
}

// DockerRestartAction restarts containers.
type DockerRestartAction struct {
	Containers []string `yaml:"containers"`
}

// DockerLogsAction prints a container's recent logs.
type DockerLogsAction struct {
	Container string `yaml:"container"`
	Tail      int    `yaml:"tail,omitempty"`
}

// DockerNetworkAction ensures a network exists and attaches containers.
type DockerNetworkAction struct {
	Name    string   `yaml:"name"`
	Connect []string `yaml:"connect,omitempty"`
}

// SleepAction pauses locally.
type SleepAction struct {
	Duration time.Duration `yaml:"duration"`
}

// WaitPortAction waits until a TCP port accepts connections. Host defaults
// to the runbook's target host.
type WaitPortAction struct {
	Port    int           `yaml:"port"`
	Host    string        `yaml:"host,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// HTTPCheckAction polls a URL until it answers with the expected status.
type HTTPCheckAction struct {
	URL          string        `yaml:"url"`
	ExpectStatus int           `yaml:"expect_status,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
}

// Load reads and parses a runbook file. A missing name defaults to the file
// name without extension.
func Load(path string) (*Runbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runbook: %w", err)
	}
	rb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if rb.Name == "" {
		rb.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return rb, nil
}

// Parse decodes a runbook. Unknown fields are rejected so typos in action
// names fail loudly instead of producing an empty step.
func Parse(data []byte) (*Runbook, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rb Runbook
	if err := dec.Decode(&rb); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("runbook is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &rb, nil
}

// DisplayName returns the step's name, or its action when unnamed.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	a, err := s.action()
	if err != nil {
		return "unnamed step"
	}
	return a.kind()
}

// Action returns the step's action kind ("run", "write_file", ...).
func (s *Step) Action() string {
	a, err := s.action()
	if err != nil {
		return ""
	}
	return a.kind()
}

// action returns the single configured action.
func (s *Step) action() (action, error) {
	var set []action
	add := func(ok bool, a action) {
		if ok {
			set = append(set, a)
		}
	}
	add(s.Run != nil, s.Run)
	add(s.WriteFile != nil, s.WriteFile)
	add(s.Upload != nil, s.Upload)
	add(s.Replace != nil, s.Replace)
	add(s.EnvSet != nil, s.EnvSet)
	add(s.DockerBuild != nil, s.DockerBuild)
	add(s.DockerRun != nil, s.DockerRun)
	add(s.DockerRestart != nil, s.DockerRestart)
	add(s.DockerLogs != nil, s.DockerLogs)
	add(s.DockerNetwork != nil, s.DockerNetwork)
	add(s.Sleep != nil, s.Sleep)
	add(s.WaitPort != nil, s.WaitPort)
	add(s.HTTPCheck != nil, s.HTTPCheck)

	switch len(set) {
	case 0:
		return nil, errors.New("no action set")
	case 1:
		return set[0], nil
	default:
		kinds := make([]string, len(set))
		for i, a := range set {
			kinds[i] = a.kind()
		}
		return nil, fmt.Errorf("exactly one action allowed, found %s", strings.Join(kinds, ", "))
	}
}
