package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hostctl/internal/history"
	"github.com/imamik/hostctl/internal/platform/ssh"
	hosttest "github.com/imamik/hostctl/internal/testing"
)

const deployRunbook = `
name: deploy-backend
host: prod
vars:
  tag: backend:v1
steps:
  - name: build
    run:
      command: docker build -t {{ .tag }} .
  - name: restart
    docker_restart:
      containers: [backend]
`

func TestLoadConfig_NotFound(t *testing.T) {
	saveAndRestoreFactories(t)
	findConfigFile = func() (string, error) {
		return "", errors.New("config file hostctl.yaml not found")
	}

	_, err := loadConfig("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config file found")
	assert.Contains(t, err.Error(), "Run 'hostctl init'")
}

func TestLoadConfig_UsesFoundFile(t *testing.T) {
	saveAndRestoreFactories(t)
	path := writeInventory(t, "prod=203.0.113.10")
	findConfigFile = func() (string, error) { return path, nil }

	cfg, err := loadConfig("")

	require.NoError(t, err)
	assert.Equal(t, []string{"prod"}, cfg.HostNames())
}

func TestRun_SingleHost(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10")
	rbPath := writeRunbook(t, deployRunbook)

	remote := hosttest.NewFakeHost("203.0.113.10")
	remote.Responses["docker build -t backend:v2 ."] = hosttest.Response{Stdout: "Successfully built abc123\n"}
	install(t, remote)

	var err error
	output := captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{Vars: map[string]string{"tag": "backend:v2"}})
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"docker build -t backend:v2 .", "docker restart 'backend'"}, remote.Commands)
	assert.True(t, remote.Closed)
	assert.Contains(t, output, "deploy-backend on 203.0.113.10")
	assert.Contains(t, output, "Successfully built abc123")
	assert.Contains(t, output, "Run completed")

	store, err := history.Open(historyPath(cfgPath))
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "deploy-backend", runs[0].Runbook)
	assert.Equal(t, "prod", runs[0].Host)
	assert.Equal(t, history.StatusSucceeded, runs[0].Status)

	run, err := store.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, "build", run.Steps[0].Name)
	assert.Contains(t, run.Steps[0].Output, "Successfully built abc123")
	assert.Equal(t, "docker_restart", run.Steps[1].Action)
}

func TestRun_FailureIsRecorded(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10")
	rbPath := writeRunbook(t, deployRunbook)

	remote := hosttest.NewFakeHost("203.0.113.10")
	remote.Responses["docker build -t backend:v1 ."] = hosttest.Response{Stdout: "no space left on device\n", Exit: 1}
	install(t, remote)

	var err error
	output := captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{})
	})

	require.Error(t, err)
	var exitErr *ssh.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Len(t, remote.Commands, 1, "restart must not run after a failed build")
	assert.Contains(t, output, "Run failed")

	store, err := history.Open(historyPath(cfgPath))
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "step 1 (build) failed")

	run, err := store.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, run.Steps, 1, "skipped steps are not recorded")
	assert.Equal(t, 1, run.Steps[0].ExitCode)
}

func TestRun_ConnectFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10")
	rbPath := writeRunbook(t, deployRunbook)

	remote := hosttest.NewFakeHost("203.0.113.10")
	remote.ConnectErr = &ssh.ConnectError{Addr: "203.0.113.10:22", User: "root", Err: errors.New("connection refused")}
	install(t, remote)

	var err error
	captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{})
	})

	var connErr *ssh.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Empty(t, remote.Commands)

	store, err := history.Open(historyPath(cfgPath))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
}

func TestRun_DryRunDoesNotConnect(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10")
	rbPath := writeRunbook(t, deployRunbook)
	newRemoteClient = func(*ssh.Config) (RemoteClient, error) {
		t.Fatal("dry run must not connect")
		return nil, nil
	}

	var err error
	output := captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{DryRun: true})
	})

	require.NoError(t, err)
	assert.Contains(t, output, "$ docker build -t backend:v1 .")
	assert.Contains(t, output, "dry run, not executed")
	assert.NoFileExists(t, historyPath(cfgPath))
}

func TestRun_MultipleHosts(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10", "staging=203.0.113.20")
	rbPath := writeRunbook(t, deployRunbook)

	prod := hosttest.NewFakeHost("203.0.113.10")
	staging := hosttest.NewFakeHost("203.0.113.20")
	install(t, prod, staging)

	var err error
	output := captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{Hosts: []string{"prod", "staging"}})
	})

	require.NoError(t, err)
	assert.Len(t, prod.Commands, 2)
	assert.Len(t, staging.Commands, 2)
	assert.Contains(t, output, "deploy-backend on 203.0.113.10")
	assert.Contains(t, output, "deploy-backend on 203.0.113.20")
}

func TestRun_MultipleHostsReportsEachFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10", "staging=203.0.113.20")
	rbPath := writeRunbook(t, deployRunbook)

	prod := hosttest.NewFakeHost("203.0.113.10")
	staging := hosttest.NewFakeHost("203.0.113.20")
	staging.Responses["docker restart 'backend'"] = hosttest.Response{Exit: 1}
	install(t, prod, staging)

	var err error
	captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{Hosts: []string{"prod", "staging"}})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging: step 2 (restart) failed")
	assert.NotContains(t, err.Error(), "prod:")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		runbook string
		opts    RunOptions
		wantErr string
	}{
		{
			name:    "no target host",
			runbook: "name: x\nsteps:\n  - run: {command: uptime}\n",
			wantErr: "no target host",
		},
		{
			name:    "unknown host",
			runbook: deployRunbook,
			opts:    RunOptions{Host: "nope"},
			wantErr: `host "nope" not found`,
		},
		{
			name:    "duplicate hosts",
			runbook: deployRunbook,
			opts:    RunOptions{Hosts: []string{"prod", "prod"}},
			wantErr: "listed twice",
		},
		{
			name:    "confirmation on several hosts",
			runbook: "name: x\nsteps:\n  - confirm: true\n    run: {command: reboot}\n",
			opts:    RunOptions{Hosts: []string{"prod", "staging"}},
			wantErr: "pass --yes",
		},
		{
			name:    "invalid runbook",
			runbook: "name: x\nhost: prod\nsteps:\n  - name: empty\n",
			wantErr: "no action set",
		},
		{
			name:    "missing template variable",
			runbook: "name: x\nhost: prod\nsteps:\n  - run: {command: 'echo {{ .nope }}'}\n",
			wantErr: "steps[0].run.command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveAndRestoreFactories(t)
			cfgPath := writeInventory(t, "prod=203.0.113.10", "staging=203.0.113.20")
			rbPath := writeRunbook(t, tt.runbook)
			newRemoteClient = func(*ssh.Config) (RemoteClient, error) {
				return nil, errors.New("must not connect")
			}

			err := Run(context.Background(), cfgPath, rbPath, tt.opts)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_HistoryOpenFailure(t *testing.T) {
	saveAndRestoreFactories(t)
	cfgPath := writeInventory(t, "prod=203.0.113.10")
	rbPath := writeRunbook(t, deployRunbook)
	install(t, hosttest.NewFakeHost("203.0.113.10"))
	openHistory = func(string) (*history.Store, error) {
		return nil, errors.New("disk full")
	}

	var err error
	captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{})
	})

	require.NoError(t, err, "history failures must not fail the run")
}

func TestRun_PushesMetrics(t *testing.T) {
	saveAndRestoreFactories(t)

	var mu sync.Mutex
	var pushes []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		pushes = append(pushes, r.Method+" "+r.URL.Path+"\n"+string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	cfgPath := saveInventory(t, inventoryBuilder("prod=203.0.113.10").WithPushgateway(gateway.URL))
	rbPath := writeRunbook(t, deployRunbook)
	install(t, hosttest.NewFakeHost("203.0.113.10"))

	var err error
	captureOutput(func() {
		err = Run(context.Background(), cfgPath, rbPath, RunOptions{})
	})

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushes, 1)
	assert.True(t, strings.HasPrefix(pushes[0], "POST /metrics/job/hostctl/host/prod"), pushes[0])
}
