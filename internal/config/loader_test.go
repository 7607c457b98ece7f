package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInventory = `
hosts:
  - name: prod
    address: 203.0.113.10
    user: root
    password_env: PROD_SSH_PASSWORD
  - name: staging
    address: staging.example.com
    port: 2222
    user: deploy
    key_file: ~/.ssh/id_ed25519
defaults:
  command_timeout: 5m
metrics:
  pushgateway: http://localhost:9091
`

func TestLoadFromBytes(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromBytes([]byte(sampleInventory))
	require.NoError(t, err)

	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, []string{"prod", "staging"}, cfg.HostNames())
	assert.Equal(t, DefaultPort, cfg.Hosts[0].Port)
	assert.Equal(t, 2222, cfg.Hosts[1].Port)

	assert.Equal(t, 5*time.Minute, cfg.Defaults.CommandTimeout)
	assert.Equal(t, DefaultConnectTimeout, cfg.Defaults.ConnectTimeout)
	assert.Equal(t, DefaultConnectRetries, cfg.Defaults.ConnectRetries)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.Equal(t, "http://localhost:9091", cfg.Metrics.Pushgateway)
	assert.False(t, cfg.Artifacts.Enabled())
}

func TestLoadFromBytes_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			input:   "hosts: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "no hosts",
			input:   "defaults: {}",
			wantErr: "at least one host is required",
		},
		{
			name:    "invalid duration",
			input:   "defaults:\n  command_timeout: soon\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFromBytes([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(sampleInventory), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Hosts, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFindConfigFrom_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	want := filepath.Join(root, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(want, []byte(sampleInventory), 0o600))

	got, err := findConfigFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindConfigFrom_PrefersNearest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigFilename), []byte(sampleInventory), 0o600))
	want := filepath.Join(nested, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(want, []byte(sampleInventory), 0o600))

	got, err := findConfigFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromBytes([]byte(sampleInventory))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.ssh/id_ed25519", filepath.Join(home, ".ssh", "id_ed25519")},
		{"/etc/hosts", "/etc/hosts"},
		{"relative/~/path", "relative/~/path"},
		{"~user/file", "~user/file"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
