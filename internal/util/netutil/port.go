// Package netutil provides operator-side network probes used to confirm that
// a service on a managed host is reachable after a deploy.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/imamik/hostctl/internal/util/retry"
)

const (
	// DefaultPortWaitTimeout bounds WaitForPort when the caller passes zero.
	DefaultPortWaitTimeout = 60 * time.Second

	probeInterval = 1 * time.Second
	probeTimeout  = 2 * time.Second
)

// WaitForPort waits for a TCP port to accept connections on host.
// It probes immediately and then every second until the port opens,
// the timeout elapses, or ctx is cancelled.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	if timeout <= 0 {
		timeout = DefaultPortWaitTimeout
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Until(ctx, probeInterval, func() error {
		return probe(ctx, address)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("timeout after %s waiting for %s", timeout, address)
	default:
		return ctx.Err()
	}
}

func probe(ctx context.Context, address string) error {
	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}
