package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts BuildOptions
		want string
	}{
		{
			name: "basic",
			opts: BuildOptions{Context: "/root/glowlab_backend", Tag: "glowlab-backend"},
			want: "cd '/root/glowlab_backend' && docker build -t 'glowlab-backend' .",
		},
		{
			name: "no cache with dockerfile and args",
			opts: BuildOptions{
				Context:    "/root/lasotuvi",
				Tag:        "lasotuvi-api",
				Dockerfile: "Dockerfile.prod",
				NoCache:    true,
				BuildArgs:  map[string]string{"PY": "3.11", "APP": "main"},
			},
			want: "cd '/root/lasotuvi' && docker build --no-cache -f 'Dockerfile.prod' --build-arg 'APP=main' --build-arg 'PY=3.11' -t 'lasotuvi-api' .",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Build(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_Validation(t *testing.T) {
	t.Parallel()
	_, err := Build(BuildOptions{Tag: "x"})
	assert.Error(t, err)
	_, err = Build(BuildOptions{Context: "/x"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	t.Parallel()
	got, err := Run(RunOptions{
		Name:    "lasotuvi",
		Image:   "lasotuvi-api",
		Ports:   []string{"8000:8000"},
		EnvFile: ".env",
		Network: "app_network",
		Restart: "unless-stopped",
		Env:     map[string]string{"TZ": "Asia/Ho_Chi_Minh"},
		Volumes: []string{"/root/data:/data"},
		Replace: true,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"docker stop 'lasotuvi' || true; docker rm 'lasotuvi' || true; "+
			"docker run -d --name 'lasotuvi' --restart 'unless-stopped' --network 'app_network' "+
			"-p '8000:8000' --env-file '.env' -e 'TZ=Asia/Ho_Chi_Minh' -v '/root/data:/data' 'lasotuvi-api'",
		got)
}

func TestRun_QuotesHostileValues(t *testing.T) {
	t.Parallel()
	got, err := Run(RunOptions{Name: "app", Image: "img", Env: map[string]string{"SECRET": "it's; rm -rf /"}})
	require.NoError(t, err)
	assert.Contains(t, got, `-e 'SECRET=it'"'"'s; rm -rf /'`)
}

func TestRun_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts RunOptions
	}{
		{"no name", RunOptions{Image: "img"}},
		{"no image", RunOptions{Name: "n"}},
		{"bad port", RunOptions{Name: "n", Image: "i", Ports: []string{"abc:80"}}},
		{"port out of range", RunOptions{Name: "n", Image: "i", Ports: []string{"70000:80"}}},
		{"too many parts", RunOptions{Name: "n", Image: "i", Ports: []string{"1:2:3:4"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Run(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestValidatePort(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"80", "8001:8000", "127.0.0.1:5432:5432", "53:53/udp"} {
		assert.NoError(t, validatePort(ok), ok)
	}
}

func TestSimpleCommands(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "docker stop 'lasotuvi' 'glowlab_backend' || true", Stop("lasotuvi", "glowlab_backend"))
	assert.Equal(t, "docker rm 'postgres_db' || true", Remove("postgres_db"))
	assert.Equal(t, "docker restart 'glowlab_backend'", Restart("glowlab_backend"))
	assert.Equal(t, "docker logs --tail 50 'glowlab_backend'", Logs("glowlab_backend", 50))
	assert.Equal(t, "docker logs 'x'", Logs("x", 0))
	assert.Equal(t, "docker network inspect 'app_network' >/dev/null 2>&1 || docker network create 'app_network'", NetworkCreate("app_network"))
	assert.Equal(t, "docker network connect 'app_network' 'postgres_db' || true", NetworkConnect("app_network", "postgres_db"))
	assert.Contains(t, Ps(true), "docker ps -a --format")
	assert.Contains(t, Version(), "{{.Server.Version}}")
}
