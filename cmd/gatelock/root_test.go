package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatelock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "simulate")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "reset")
}

func TestSimulate_CompleteScenario(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: memory\n")

	out, err := runCommand(t,
		"simulate", "--config", cfg,
		"--scenario", "complete",
		"--content-id", "demo-1",
		"--redirect-url", "https://example.com/dl/demo-1",
		"--load-delay", "10ms",
		"--signal-delay", "20ms",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "state=probing")
	assert.Contains(t, out, "state=loading")
	assert.Contains(t, out, "state=ready")
	assert.Contains(t, out, "state=completed")
	assert.Contains(t, out, "redirect -> https://example.com/dl/demo-1")
}

func TestSimulate_ErrorScenarioExhaustsBudget(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: memory\n")

	out, err := runCommand(t,
		"simulate", "--config", cfg,
		"--scenario", "error",
		"--load-delay", "10ms",
		"--signal-delay", "20ms",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "state=failed attempts_left=2")
	assert.Contains(t, out, "state=failed attempts_left=1")
	assert.Contains(t, out, "state=exhausted attempts_left=0")
	assert.NotContains(t, out, "redirect ->")
}

func TestSimulate_InterferenceThenRecheck(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: memory\n")

	out, err := runCommand(t,
		"simulate", "--config", cfg,
		"--scenario", "complete",
		"--interference",
		"--load-delay", "10ms",
		"--signal-delay", "20ms",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "state=blocked")
	assert.Contains(t, out, "Ad blocker detected")
	assert.Contains(t, out, "state=completed")
}

func TestStatusAndReset_SQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "unlocks.db")
	cfg := writeConfig(t, "store:\n  backend: sqlite\n  path: "+dbPath+"\n")

	// A completed simulation persists the unlock.
	_, err := runCommand(t,
		"simulate", "--config", cfg,
		"--scenario", "complete",
		"--content-id", "demo-9",
		"--load-delay", "10ms",
		"--signal-delay", "20ms",
	)
	require.NoError(t, err)

	out, err := runCommand(t, "status", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "unlocked_demo-9")

	_, err = runCommand(t, "reset", "demo-9", "--config", cfg)
	require.NoError(t, err)

	out, err = runCommand(t, "status", "--config", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "unlocked_demo-9")
}

func TestReset_RequiresContentID(t *testing.T) {
	_, err := runCommand(t, "reset")
	require.Error(t, err)
}
