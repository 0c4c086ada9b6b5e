package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "irc.server", cfg.Server.Name)
	assert.Equal(t, 6667, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Limits.MaxChannels)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ircd.yaml", `
server:
  name: irc.test
  port: 6697
  password: hunter2
  motd:
    - line one
    - line two
limits:
  max_channels: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "irc.test", cfg.Server.Name)
	assert.Equal(t, 6697, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Server.Password)
	assert.Equal(t, []string{"line one", "line two"}, cfg.Server.MOTD)
	assert.Equal(t, 5, cfg.Limits.MaxChannels)
	// Untouched sections keep their defaults.
	assert.Equal(t, 4096, cfg.Limits.SendQueue)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "ircd.toml", `
[server]
name = "irc.toml.test"
port = 7000

[[operators]]
username = "root"
password_hash = "$2a$10$abcdefghijklmnopqrstuv"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "irc.toml.test", cfg.Server.Name)
	assert.Equal(t, 7000, cfg.Server.Port)
	require.Len(t, cfg.Operators, 1)
	assert.Equal(t, "root", cfg.Operators[0].Username)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "ircd.json", `{"server": {"name": "irc.json.test"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "irc.json.test", cfg.Server.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IRCD_SERVER_NAME", "irc.env.test")
	t.Setenv("IRCD_PORT", "7777")
	t.Setenv("IRCD_ADMIN_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "irc.env.test", cfg.Server.Name)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.True(t, cfg.Admin.Enabled)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsIncompleteOperator(t *testing.T) {
	cfg := Default()
	cfg.Operators = append(cfg.Operators, Operator{Username: "root"})
	assert.Error(t, cfg.Validate())
}

func TestListenAddresses(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:6667", cfg.ListenAddress())
	assert.Equal(t, "127.0.0.1:8080", cfg.AdminListenAddress())
}
