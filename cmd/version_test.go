package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runVersion(&buf))

	out := buf.String()
	assert.Contains(t, out, "assistant "+AppVersion)
	assert.Contains(t, out, "Build Time:")
	assert.Contains(t, out, "Git Commit:")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "ask", "ingest", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
