package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/hostctl/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second

	// sessionDrainTimeout bounds how long an interrupted session may take to
	// acknowledge the close before its output is abandoned.
	sessionDrainTimeout = 5 * time.Second
)

// Config holds SSH client configuration.
type Config struct {
	Host string
	Port int
	User string

	// Password enables password and keyboard-interactive authentication.
	Password string
	// PrivateKey is a PEM encoded private key for public key authentication.
	PrivateKey []byte

	// DialTimeout bounds the TCP connect and the SSH handshake.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	// If zero, defaultMaxRetries is used; negative disables retries.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback verifies the server host key. Required.
	HostKeyCallback ssh.HostKeyCallback
}

// Addr returns the host:port the client dials.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client executes commands and transfers files on one remote host.
// It parses credentials once during construction and keeps a single
// connection open until Close.
type Client struct {
	config *Config
	auth   []ssh.AuthMethod

	mu   sync.Mutex
	conn *ssh.Client
	sftp *sftp.Client
}

// NewClient creates a new SSH client and validates its configuration.
// No network activity happens until Connect or the first remote call.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 && cfg.Password == "" {
		return nil, fmt.Errorf("config needs a private key or a password")
	}
	if cfg.HostKeyCallback == nil {
		return nil, fmt.Errorf("config host key callback cannot be nil")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	switch {
	case configCopy.MaxRetries == 0:
		configCopy.MaxRetries = defaultMaxRetries
	case configCopy.MaxRetries < 0:
		configCopy.MaxRetries = 0
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}

	var auth []ssh.AuthMethod
	if len(configCopy.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if configCopy.Password != "" {
		password := configCopy.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	return &Client{
		config: &configCopy,
		auth:   auth,
	}, nil
}

// Host returns the configured host name or address.
func (c *Client) Host() string {
	return c.config.Host
}

// Connect establishes the SSH connection with retry logic.
// It is a no-op when the client is already connected.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

func (c *Client) connection(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	clientConfig := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            c.auth,
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := c.config.Addr()
	var conn *ssh.Client

	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		conn, dialErr = dial(ctx, addr, clientConfig)
		if dialErr != nil && isPermanent(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			log.Printf("[SSH] Connection to %s failed (attempt %d): %v", addr, attempt, err)
		}),
	)
	if err != nil {
		return nil, &ConnectError{Addr: addr, User: c.config.User, Err: err}
	}

	log.Printf("[SSH] Connected to %s as %s", addr, c.config.User)
	c.conn = conn
	return conn, nil
}

// dial connects with ctx-aware TCP dialing and bounds the handshake by the
// client timeout.
func dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(config.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return nil, err
	}
	_ = netConn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isPermanent reports dial errors that another attempt cannot fix.
func isPermanent(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "knownhosts:")
}

// Close releases the SFTP subsystem and the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
		c.sftp = nil
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
		c.conn = nil
	}
	return errors.Join(errs...)
}

// Execute runs command in a new session and waits for it to finish.
//
// Output is always captured into the returned Result. When opts carries
// writers, output is also copied to them as it arrives. A non-zero exit
// status returns the Result together with an *ExitError.
func (c *Client) Execute(ctx context.Context, command string, opts ExecOptions) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	session, err := conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	var mu sync.Mutex
	session.Stdout = tee(&stdout, opts.Stdout, &mu)
	session.Stderr = tee(&stderr, opts.Stderr, &mu)
	if opts.Stdin != nil {
		session.Stdin = opts.Stdin
	}

	log.Printf("[SSH] %s: %s", c.config.Host, firstLine(command))

	start := time.Now()
	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start command on %s: %w", c.config.Host, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		select {
		case <-done:
		case <-time.After(sessionDrainTimeout):
		}
		res := newResult(command, &stdout, &stderr, -1, time.Since(start), &mu)
		return res, fmt.Errorf("command interrupted on %s after %s: %w",
			c.config.Host, res.Duration.Round(time.Millisecond), ctx.Err())
	}

	res := newResult(command, &stdout, &stderr, 0, time.Since(start), &mu)
	if waitErr == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError
	switch {
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	case errors.As(waitErr, &missingErr):
		res.ExitCode = -1
	default:
		return res, fmt.Errorf("command failed on %s: %w", c.config.Host, waitErr)
	}
	return res, &ExitError{Host: c.config.Host, Result: res}
}

func newResult(command string, stdout, stderr *bytes.Buffer, code int, d time.Duration, mu *sync.Mutex) *Result {
	mu.Lock()
	defer mu.Unlock()
	return &Result{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: code,
		Duration: d,
	}
}

// tee captures into buf and, when w is set, forwards to w. Writes from the
// stdout and stderr copiers are serialised through mu so a caller may pass the
// same writer for both.
func tee(buf *bytes.Buffer, w io.Writer, mu *sync.Mutex) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		buf.Write(p)
		if w != nil {
			if _, err := w.Write(p); err != nil {
				return 0, err
			}
		}
		return len(p), nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
