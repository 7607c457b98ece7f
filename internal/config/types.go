package config

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Default values applied when the inventory leaves a setting empty.
const (
	DefaultPort           = 22
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 15 * time.Minute
	DefaultConnectRetries = 3
	DefaultHistoryPath    = "~/.hostctl/history.db"
	DefaultKnownHosts     = "~/.ssh/known_hosts"
)

var hostNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config is the hostctl inventory.
type Config struct {
	Hosts     []Host    `yaml:"hosts"`
	Defaults  Defaults  `yaml:"defaults,omitempty"`
	History   History   `yaml:"history,omitempty"`
	Metrics   Metrics   `yaml:"metrics,omitempty"`
	Artifacts Artifacts `yaml:"artifacts,omitempty"`
}

// Host is one remote machine reachable over SSH.
type Host struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port,omitempty"`
	User    string `yaml:"user"`

	// PasswordEnv names the environment variable holding the password.
	PasswordEnv string `yaml:"password_env,omitempty"`
	KeyFile     string `yaml:"key_file,omitempty"`

	KnownHosts            string `yaml:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key,omitempty"`
}

// Defaults are connection settings shared by all hosts.
type Defaults struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
	ConnectRetries int           `yaml:"connect_retries,omitempty"`
}

// History configures the local run history database.
type History struct {
	Path     string `yaml:"path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Metrics configures the Pushgateway that receives run metrics.
type Metrics struct {
	Pushgateway string `yaml:"pushgateway,omitempty"`
}

// Artifacts configures the S3-compatible bucket for packaged projects.
type Artifacts struct {
	Endpoint     string `yaml:"endpoint,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Bucket       string `yaml:"bucket,omitempty"`
	AccessKeyEnv string `yaml:"access_key_env,omitempty"`
	SecretKeyEnv string `yaml:"secret_key_env,omitempty"`
}

// Enabled reports whether an artifact bucket is configured.
func (a Artifacts) Enabled() bool {
	return a.Bucket != ""
}

// Validate checks the inventory for structural errors.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Hosts) == 0 {
		errs = append(errs, errors.New("at least one host is required"))
	}

	seen := make(map[string]bool, len(c.Hosts))
	for i, h := range c.Hosts {
		label := h.Name
		if label == "" {
			label = fmt.Sprintf("hosts[%d]", i)
		}
		if seen[h.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate host name", label))
		}
		seen[h.Name] = true
		if err := h.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}

	if c.Defaults.ConnectTimeout < 0 || c.Defaults.CommandTimeout < 0 {
		errs = append(errs, errors.New("defaults: timeouts cannot be negative"))
	}
	if c.Defaults.ConnectRetries < 0 {
		errs = append(errs, errors.New("defaults: connect_retries cannot be negative"))
	}

	if c.Artifacts.Enabled() {
		if c.Artifacts.Endpoint == "" {
			errs = append(errs, errors.New("artifacts: endpoint is required when bucket is set"))
		}
		if c.Artifacts.AccessKeyEnv == "" || c.Artifacts.SecretKeyEnv == "" {
			errs = append(errs, errors.New("artifacts: access_key_env and secret_key_env are required when bucket is set"))
		}
	}

	return errors.Join(errs...)
}

func (h *Host) validate() error {
	var errs []error
	if h.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !hostNamePattern.MatchString(h.Name) {
		errs = append(errs, errors.New("name must be lowercase alphanumeric, hyphens or underscores"))
	}
	if h.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if h.User == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if h.Port < 0 || h.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", h.Port))
	}
	if h.PasswordEnv == "" && h.KeyFile == "" {
		errs = append(errs, errors.New("one of password_env or key_file is required"))
	}
	return errors.Join(errs...)
}

// Host returns the host with the given name.
func (c *Config) Host(name string) (*Host, error) {
	for i := range c.Hosts {
		if c.Hosts[i].Name == name {
			return &c.Hosts[i], nil
		}
	}
	return nil, fmt.Errorf("host %q not found in inventory", name)
}

// HostNames returns the names of all hosts in declaration order.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		names = append(names, h.Name)
	}
	return names
}

// ApplyDefaults fills unset defaults in place.
func (c *Config) ApplyDefaults() {
	if c.Defaults.ConnectTimeout == 0 {
		c.Defaults.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Defaults.CommandTimeout == 0 {
		c.Defaults.CommandTimeout = DefaultCommandTimeout
	}
	if c.Defaults.ConnectRetries == 0 {
		c.Defaults.ConnectRetries = DefaultConnectRetries
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
	for i := range c.Hosts {
		if c.Hosts[i].Port == 0 {
			c.Hosts[i].Port = DefaultPort
		}
	}
}
