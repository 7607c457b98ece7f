package handlers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imamik/hostctl/internal/platform/ssh"
	hosttest "github.com/imamik/hostctl/internal/testing"
)

// saveAndRestoreFactories saves and restores the shared factory functions.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origFindConfigFile := findConfigFile
	origLoadConfigFile := loadConfigFile
	origNewRemoteClient := newRemoteClient
	origOpenHistory := openHistory
	origNewArtifactStore := newArtifactStore
	origConfirm := confirm
	origNewPrinter := newPrinter

	t.Cleanup(func() {
		findConfigFile = origFindConfigFile
		loadConfigFile = origLoadConfigFile
		newRemoteClient = origNewRemoteClient
		openHistory = origOpenHistory
		newArtifactStore = origNewArtifactStore
		confirm = origConfirm
		newPrinter = origNewPrinter
	})
}

// captureOutput captures stdout during function execution.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, r)
		close(done)
	}()

	f()

	w.Close()
	os.Stdout = old
	<-done
	return buf.String()
}

// writeInventory writes a hostctl.yaml with the given hosts (name=address)
// and returns its path. History goes to a file next to it.
func writeInventory(t *testing.T, hosts ...string) string {
	t.Helper()
	return saveInventory(t, inventoryBuilder(hosts...))
}

func inventoryBuilder(hosts ...string) *hosttest.InventoryBuilder {
	b := hosttest.NewInventoryBuilder()
	for _, h := range hosts {
		name, addr, _ := strings.Cut(h, "=")
		b = b.WithHost(name, addr)
	}
	return b
}

// saveInventory writes b with history enabled next to the inventory.
func saveInventory(t *testing.T, b *hosttest.InventoryBuilder) string {
	t.Helper()
	dir := t.TempDir()
	return b.WithHistory(filepath.Join(dir, "history.db")).Save(t, dir)
}

// historyPath returns the history database configured by writeInventory.
func historyPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "history.db")
}

// writeRunbook writes runbook YAML to a temp file.
func writeRunbook(t *testing.T, content string) string {
	t.Helper()
	return hosttest.WriteFile(t, "runbook.yaml", content)
}

// install makes newRemoteClient hand out fake hosts by address.
func install(t *testing.T, hosts ...*hosttest.FakeHost) {
	t.Helper()
	byAddr := make(map[string]*hosttest.FakeHost, len(hosts))
	for _, h := range hosts {
		byAddr[h.Address] = h
	}
	newRemoteClient = func(cfg *ssh.Config) (RemoteClient, error) {
		h, ok := byAddr[cfg.Host]
		if !ok {
			return nil, fmt.Errorf("unexpected host %s", cfg.Host)
		}
		return h, nil
	}
}
