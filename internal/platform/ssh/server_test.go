package ssh

import (
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/pkg/sftp"
)

const testPassword = "s3cret"

// testServer is an in-process SSH server with canned command behaviour and a
// real SFTP subsystem rooted in the local filesystem.
type testServer struct {
	addr   string
	server *gliderssh.Server
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	return startServer(t, func(s gliderssh.Session) {
		server, err := sftp.NewServer(s)
		if err != nil {
			return
		}
		_ = server.Serve()
		_ = server.Close()
	})
}

// startFailingCloseServer serves an SFTP subsystem that accepts every write
// but reports errQuota when the written file is closed.
func startFailingCloseServer(t *testing.T) *testServer {
	t.Helper()
	return startServer(t, func(s gliderssh.Session) {
		h := failingCloseHandler{}
		server := sftp.NewRequestServer(s, sftp.Handlers{FileGet: h, FilePut: h, FileCmd: h, FileList: h})
		_ = server.Serve()
		_ = server.Close()
	})
}

func startServer(t *testing.T, sftpHandler gliderssh.SubsystemHandler) *testServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := &gliderssh.Server{
		Handler: handleCommand,
		PasswordHandler: func(_ gliderssh.Context, password string) bool {
			return password == testPassword
		},
		SubsystemHandlers: map[string]gliderssh.SubsystemHandler{
			"sftp": sftpHandler,
		},
	}

	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return &testServer{addr: ln.Addr().String(), server: srv}
}

func (s *testServer) config(t *testing.T) *Config {
	t.Helper()
	host, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return &Config{
		Host:            host,
		Port:            p,
		User:            "root",
		Password:        testPassword,
		MaxRetries:      -1,
		HostKeyCallback: InsecureIgnoreHostKey(),
	}
}

func handleCommand(s gliderssh.Session) {
	cmd := s.RawCommand()
	switch {
	case cmd == "echo hello":
		_, _ = io.WriteString(s, "hello\n")
		_ = s.Exit(0)
	case cmd == "whoami":
		_, _ = io.WriteString(s, s.User()+"\n")
		_ = s.Exit(0)
	case cmd == "mixed":
		_, _ = io.WriteString(s, "out line\n")
		_, _ = io.WriteString(s.Stderr(), "err line\n")
		_ = s.Exit(0)
	case cmd == "fail":
		_, _ = io.WriteString(s.Stderr(), "boom\n")
		_ = s.Exit(3)
	case cmd == "cat":
		_, _ = io.Copy(s, s)
		_ = s.Exit(0)
	case cmd == "hang":
		_, _ = io.Copy(io.Discard, s)
	case strings.HasPrefix(cmd, "printf "):
		_, _ = io.WriteString(s, strings.TrimPrefix(cmd, "printf "))
		_ = s.Exit(0)
	default:
		_, _ = io.WriteString(s.Stderr(), "sh: "+cmd+": command not found\n")
		_ = s.Exit(127)
	}
}

var errQuota = errors.New("disk quota exceeded")

type failingCloseHandler struct{}

func (failingCloseHandler) Fileread(*sftp.Request) (io.ReaderAt, error) {
	return nil, os.ErrNotExist
}

func (failingCloseHandler) Filewrite(*sftp.Request) (io.WriterAt, error) {
	return failingCloseWriter{}, nil
}

func (failingCloseHandler) Filecmd(*sftp.Request) error {
	return nil
}

func (failingCloseHandler) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	return dirLister{dirInfo(r.Filepath)}, nil
}

type failingCloseWriter struct{}

func (failingCloseWriter) WriteAt(p []byte, _ int64) (int, error) { return len(p), nil }
func (failingCloseWriter) Close() error { return errQuota }

type dirLister []os.FileInfo

func (l dirLister) ListAt(dst []os.FileInfo, off int64) (int, error) {
	if off >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(dst, l[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// dirInfo reports every path as an existing directory.
type dirInfo string

func (d dirInfo) Name() string { return string(d) }
func (dirInfo) Size() int64 { return 0 }
func (dirInfo) Mode() os.FileMode { return os.ModeDir | 0o755 }
func (dirInfo) ModTime() time.Time { return time.Time{} }
func (dirInfo) IsDir() bool { return true }
func (dirInfo) Sys() any { return nil }
