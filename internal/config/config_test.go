package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoConfigFile(t *testing.T) {
	root := t.TempDir()
	s, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 5, s.Scheduler.SessionSize)
	assert.Equal(t, 15, s.Scheduler.MaxIntervalSessions)
	assert.False(t, s.Suggestion.Enabled)
	assert.Equal(t, time.Second, s.Queue.WriteDelay)
	assert.False(t, s.DebugLogging)
}

func TestLoad_VaultLocalConfigOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".flint-note")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := "scheduler:\n  sessionSize: 10\nqueue:\n  writeDelay: 2s\ndebug: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Scheduler.SessionSize)
	assert.Equal(t, 2*time.Second, s.Queue.WriteDelay)
	assert.True(t, s.DebugLogging)
}

func TestLoad_EnvVarOverridesVaultConfig(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".flint-note")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := "scheduler:\n  sessionSize: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("FLINT_SCHEDULER_SESSIONSIZE", "20")

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 20, s.Scheduler.SessionSize)
}

func TestReadWriteVaultConfig_RoundTrips(t *testing.T) {
	root := t.TempDir()
	vc := &VaultConfig{VaultPath: root, VaultName: "My Vault"}
	require.NoError(t, WriteVaultConfig(root, vc))

	got, err := ReadVaultConfig(root)
	require.NoError(t, err)
	assert.Equal(t, vc.VaultPath, got.VaultPath)
	assert.Equal(t, vc.VaultName, got.VaultName)
}
