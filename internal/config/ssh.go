package config

import (
	"fmt"
	"os"

	"github.com/imamik/hostctl/internal/platform/ssh"
)

// SSHConfig resolves the host's credentials into a client configuration.
// The password is read from PasswordEnv and the key from KeyFile; either
// missing source is an error because the host declared it.
func (h *Host) SSHConfig(d Defaults) (*ssh.Config, error) {
	cfg := &ssh.Config{
		Host:        h.Address,
		Port:        h.Port,
		User:        h.User,
		DialTimeout: d.ConnectTimeout,
		MaxRetries:  d.ConnectRetries,
	}

	if h.PasswordEnv != "" {
		password := os.Getenv(h.PasswordEnv)
		if password == "" {
			return nil, fmt.Errorf("host %s: environment variable %s is not set", h.Name, h.PasswordEnv)
		}
		cfg.Password = password
	}

	if h.KeyFile != "" {
		path, err := ExpandHome(h.KeyFile)
		if err != nil {
			return nil, err
		}
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("host %s: failed to read key file: %w", h.Name, err)
		}
		cfg.PrivateKey = key
	}

	if h.InsecureIgnoreHostKey {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
		return cfg, nil
	}

	knownHosts := h.KnownHosts
	if knownHosts == "" {
		knownHosts = DefaultKnownHosts
	}
	path, err := ExpandHome(knownHosts)
	if err != nil {
		return nil, err
	}
	cb, err := ssh.KnownHostsCallback(path)
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", h.Name, err)
	}
	cfg.HostKeyCallback = cb

	return cfg, nil
}
