package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfgPath := writeConfig(t, "")

	c, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8787", c.Server.URL)
	assert.Equal(t, 60*time.Second, c.Server.Timeout)
	assert.Equal(t, 5, c.Reconnect.MaxAttempts)
	assert.Equal(t, 1000, c.Reconnect.InitialDelayMs)
	assert.Equal(t, 30000, c.Reconnect.MaxDelayMs)
	assert.Equal(t, "info", c.Logging.Level)
	assert.True(t, c.Chat.FoldToolRoles)
}

func TestLoadFromFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfgPath := writeConfig(t, `
server:
  url: https://agents.example.com
  timeout: 30s
reconnect:
  max_attempts: 3
  initial_delay_ms: 500
  max_delay_ms: 5000
logging:
  level: debug
`)

	c, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "https://agents.example.com", c.Server.URL)
	assert.Equal(t, 30*time.Second, c.Server.Timeout)
	assert.Equal(t, 3, c.Reconnect.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, c.Reconnect.InitialDelay())
	assert.Equal(t, 5*time.Second, c.Reconnect.MaxDelay())
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadRejectsBadReconnectPolicy(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfgPath := writeConfig(t, `
reconnect:
  initial_delay_ms: 10000
  max_delay_ms: 100
`)

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfgPath := writeConfig(t, `
server:
  timeout: not-a-duration
`)

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
