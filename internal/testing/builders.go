package testing

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/imamik/hostctl/internal/config"
)

// PasswordEnv is the environment variable builder hosts read their password
// from. Save sets it for the duration of the test.
const PasswordEnv = "HOSTCTL_TEST_PASSWORD"

// InventoryBuilder provides a fluent interface for constructing inventories.
// Each method returns a new builder (immutable) for chaining.
type InventoryBuilder struct {
	cfg config.Config
}

// NewInventoryBuilder creates an empty inventory with history disabled.
func NewInventoryBuilder() *InventoryBuilder {
	return &InventoryBuilder{
		cfg: config.Config{
			History: config.History{Disabled: true},
		},
	}
}

// WithHost adds a password-authenticated host that skips host key checks.
func (b *InventoryBuilder) WithHost(name, address string) *InventoryBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Hosts = append(newBuilder.cfg.Hosts, config.Host{
		Name:                  name,
		Address:               address,
		User:                  "root",
		PasswordEnv:           PasswordEnv,
		InsecureIgnoreHostKey: true,
	})
	return newBuilder
}

// WithHistory enables run history at path.
func (b *InventoryBuilder) WithHistory(path string) *InventoryBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.History = config.History{Path: path}
	return newBuilder
}

// WithPushgateway enables metrics pushes to url.
func (b *InventoryBuilder) WithPushgateway(url string) *InventoryBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Metrics.Pushgateway = url
	return newBuilder
}

// WithArtifacts configures the artifacts bucket.
func (b *InventoryBuilder) WithArtifacts(endpoint, bucket, accessKeyEnv, secretKeyEnv string) *InventoryBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Artifacts = config.Artifacts{
		Endpoint:     endpoint,
		Bucket:       bucket,
		AccessKeyEnv: accessKeyEnv,
		SecretKeyEnv: secretKeyEnv,
	}
	return newBuilder
}

// Build returns a copy of the inventory.
func (b *InventoryBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// Save writes the inventory to dir/hostctl.yaml, sets PasswordEnv and
// returns the file path.
func (b *InventoryBuilder) Save(t *testing.T, dir string) string {
	t.Helper()
	t.Setenv(PasswordEnv, "secret")

	path := filepath.Join(dir, config.DefaultConfigFilename)
	if err := config.Save(b.Build(), path); err != nil {
		t.Fatalf("failed to save inventory: %v", err)
	}
	return path
}

func (b *InventoryBuilder) clone() *InventoryBuilder {
	cfg := b.cfg
	cfg.Hosts = slices.Clone(b.cfg.Hosts)
	return &InventoryBuilder{cfg: cfg}
}
