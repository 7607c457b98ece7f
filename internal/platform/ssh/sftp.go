package ssh

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"

	"github.com/pkg/sftp"
)

func (c *Client) sftpClient(ctx context.Context) (*sftp.Client, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftp != nil {
		return c.sftp, nil
	}

	sc, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to start SFTP subsystem on %s: %w", c.config.Host, err)
	}
	c.sftp = sc
	return sc, nil
}

// WriteFile replaces remotePath with data, creating parent directories.
// A zero mode leaves permissions as the server creates them.
func (c *Client) WriteFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	sc, err := c.sftpClient(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := sc.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", remotePath, err)
	}

	f, err := sc.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", remotePath, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", remotePath, err)
	}
	if mode != 0 {
		if err := f.Chmod(mode); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to chmod %s: %w", remotePath, err)
		}
	}
	// The server may only report a failed write when the handle closes.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", remotePath, err)
	}

	log.Printf("[SSH] Wrote %d bytes to %s:%s", len(data), c.config.Host, remotePath)
	return nil
}

// ReadFile returns the content of remotePath. A missing file yields an error
// matching fs.ErrNotExist.
func (c *Client) ReadFile(ctx context.Context, remotePath string) ([]byte, error) {
	sc, err := c.sftpClient(ctx)
	if err != nil {
		return nil, err
	}

	f, err := sc.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", remotePath, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: f})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	return data, nil
}

// Upload copies a local file to remotePath, creating parent directories.
// The local file mode is preserved.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory; package it first", localPath)
	}

	sc, err := c.sftpClient(ctx)
	if err != nil {
		return 0, err
	}
	if err := sc.MkdirAll(path.Dir(remotePath)); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", remotePath, err)
	}

	dst, err := sc.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for writing: %w", remotePath, err)
	}

	n, err := io.Copy(dst, &ctxReader{ctx: ctx, r: src})
	if err != nil {
		_ = dst.Close()
		return n, fmt.Errorf("failed to upload %s to %s: %w", localPath, remotePath, err)
	}
	if err := dst.Chmod(info.Mode().Perm()); err != nil {
		_ = dst.Close()
		return n, fmt.Errorf("failed to chmod %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", remotePath, err)
	}

	log.Printf("[SSH] Uploaded %s -> %s:%s (%d bytes)", localPath, c.config.Host, remotePath, n)
	return n, nil
}

// Exists reports whether remotePath exists.
func (c *Client) Exists(ctx context.Context, remotePath string) (bool, error) {
	sc, err := c.sftpClient(ctx)
	if err != nil {
		return false, err
	}
	if _, err := sc.Stat(remotePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", remotePath, err)
	}
	return true, nil
}

// ctxReader stops a transfer between chunks once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
