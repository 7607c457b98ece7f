package runbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	rb, err := Parse([]byte(deployRunbook))
	require.NoError(t, err)

	out, err := rb.Render(map[string]string{"tag": "backend:v2"})
	require.NoError(t, err)

	assert.Equal(t, "/opt/app", out.Steps[0].Run.Workdir)
	assert.Equal(t, "/opt/app/Dockerfile", out.Steps[1].WriteFile.Path)
	assert.Equal(t, "/opt/app/.env", out.Steps[2].EnvSet.Path)
	assert.Equal(t, "backend:v2", out.Steps[3].DockerBuild.Tag)
	assert.Equal(t, "backend:v2", out.Vars["tag"])

	// The source runbook is untouched.
	assert.Equal(t, "{{ .app_dir }}", rb.Steps[0].Run.Workdir)
	assert.Equal(t, "backend:latest", rb.Vars["tag"])
}

func TestRender_EnvAndFunctions(t *testing.T) {
	t.Setenv("HOSTCTL_TEST_DB_PASSWORD", "p@ss word")

	rb := &Runbook{
		Name: "db",
		Vars: map[string]string{
			"password": `{{ env "HOSTCTL_TEST_DB_PASSWORD" }}`,
			"service":  "api",
		},
		Steps: []Step{
			{Name: "set {{ .service | upper }}", EnvSet: &EnvSetAction{
				Path:   "/srv/{{ .service }}/.env",
				Values: map[string]string{"DB_PASSWORD": "{{ .password }}"},
			}},
			{Run: &RunAction{Command: "echo {{ .password | shq }}"}},
			{DockerRestart: &DockerRestartAction{Containers: []string{"{{ .service }}", "worker"}}},
		},
	}

	out, err := rb.Render(nil)
	require.NoError(t, err)

	assert.Equal(t, "set API", out.Steps[0].Name)
	assert.Equal(t, "/srv/api/.env", out.Steps[0].EnvSet.Path)
	assert.Equal(t, "p@ss word", out.Steps[0].EnvSet.Values["DB_PASSWORD"])
	assert.Equal(t, "echo 'p@ss word'", out.Steps[1].Run.Command)
	assert.Equal(t, []string{"api", "worker"}, out.Steps[2].DockerRestart.Containers)
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rb      *Runbook
		wantErr string
	}{
		{
			name: "undefined var",
			rb: &Runbook{Steps: []Step{
				{Run: &RunAction{Command: "echo {{ .missing }}"}},
			}},
			wantErr: "steps[0].run.command",
		},
		{
			name: "syntax error",
			rb: &Runbook{Steps: []Step{
				{WriteFile: &WriteFileAction{Path: "/a", Content: "{{ .x "}},
			}},
			wantErr: "steps[0].write_file.content: invalid template",
		},
		{
			name:    "var referencing var",
			rb:      &Runbook{Vars: map[string]string{"a": "{{ .b }}", "b": "x"}},
			wantErr: "vars.a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.rb.Render(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRender_LiteralBraces(t *testing.T) {
	t.Parallel()

	rb := &Runbook{
		Name: "inspect",
		Steps: []Step{
			{Run: &RunAction{Command: "docker inspect --format {{`'{{.State.Running}}'`}} api"}},
		},
	}

	out, err := rb.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "docker inspect --format '{{.State.Running}}' api", out.Steps[0].Run.Command)

	rb.Steps[0].Run.Command = "docker inspect --format '{{.State.Running}}' api"
	_, err = rb.Render(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "literal braces")
}

func TestRender_LeavesPlainTextAlone(t *testing.T) {
	t.Parallel()

	// Shell syntax that merely resembles templates is left alone when no
	// template action opens.
	rb := &Runbook{Steps: []Step{
		{Run: &RunAction{Command: `docker ps --format '{.Names}' && echo ${HOME}`}},
	}}

	out, err := rb.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, `docker ps --format '{.Names}' && echo ${HOME}`, out.Steps[0].Run.Command)
}
