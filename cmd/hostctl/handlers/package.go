package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/hostctl/internal/archive"
	"github.com/imamik/hostctl/internal/platform/s3"
	"github.com/imamik/hostctl/internal/util/naming"
)

// PackageOptions holds the flags of the package command.
type PackageOptions struct {
	Output  string
	Exclude []string
	Push    bool
}

// Package zips a project directory and optionally stores it in the
// artifacts bucket.
func Package(ctx context.Context, configPath, dir string, opts PackageOptions) error {
	output := opts.Output
	if output == "" {
		output = filepath.Clean(dir) + ".zip"
	}

	excludes := append(append([]string{}, archive.DefaultExcludes...), opts.Exclude...)
	stats, err := archive.Zip(dir, output, excludes)
	if err != nil {
		return err
	}
	fmt.Printf("Packaged %d files (%s) into %s\n", stats.Files, formatBytes(stats.Bytes), output)

	if !opts.Push {
		return nil
	}
	return pushArtifact(ctx, configPath, output)
}

func pushArtifact(ctx context.Context, configPath, path string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	a := cfg.Artifacts
	if !a.Enabled() {
		return fmt.Errorf("--push needs an artifacts section in the inventory")
	}

	store, err := newArtifactStore(ctx, s3.Options{
		Endpoint:  a.Endpoint,
		Region:    a.Region,
		AccessKey: os.Getenv(a.AccessKeyEnv),
		SecretKey: os.Getenv(a.SecretKeyEnv),
	})
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx, a.Bucket); err != nil {
		return err
	}

	key := naming.ArtifactKey(path, time.Now())
	if err := store.PutFile(ctx, a.Bucket, key, path); err != nil {
		return err
	}
	fmt.Printf("Uploaded to s3://%s/%s\n", a.Bucket, key)
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %siB", float64(n)/float64(div), strings.Split("K,M,G,T", ",")[exp])
}
