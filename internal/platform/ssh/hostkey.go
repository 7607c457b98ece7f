package ssh

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNoKnownHosts is returned when none of the candidate known_hosts files exist.
var ErrNoKnownHosts = errors.New("no known_hosts file found")

// KnownHostsCallback builds a host key callback from the known_hosts files
// among paths that exist.
func KnownHostsCallback(paths ...string) (ssh.HostKeyCallback, error) {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("%w (looked in %v); add the host with ssh-keyscan or set insecure_ignore_host_key", ErrNoKnownHosts, paths)
	}

	cb, err := knownhosts.New(existing...)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return cb, nil
}

// InsecureIgnoreHostKey accepts any host key. Only for hosts explicitly
// configured with insecure_ignore_host_key.
func InsecureIgnoreHostKey() ssh.HostKeyCallback {
	return ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in per host
}
