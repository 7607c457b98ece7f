package commands

import (
	"bytes"
	"io"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "hostctl", cmd.Use)
	assert.Equal(t, "Run maintenance runbooks on remote hosts over SSH", cmd.Short)
	assert.True(t, cmd.SilenceUsage)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"run",
		"exec",
		"upload",
		"env",
		"logs",
		"check",
		"keys",
		"package",
		"swagger",
		"history",
		"init",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestRoot_GlobalFlags(t *testing.T) {
	cmd := Root()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)
}

func TestRoot_NestedSubcommands(t *testing.T) {
	cmd := Root()

	for _, path := range [][]string{
		{"env", "show"},
		{"env", "set"},
		{"history", "list"},
		{"history", "show"},
		{"keys", "generate"},
		{"keys", "install"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[1], found.Name())
	}
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	var buf bytes.Buffer
	log.SetOutput(&buf)
	configureLogging(false)
	log.Printf("[SSH] hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, io.Discard, log.Writer())

	configureLogging(true)
	assert.Equal(t, os.Stderr, log.Writer())
}
