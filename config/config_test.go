package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "parking.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 5, cfg.Server.RateLimitBurst)
	assert.Equal(t, 30*time.Second, cfg.Liveness.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Liveness.CheckInterval)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, "parking/+/telemetry", cfg.MQTT.Topic)
	assert.Equal(t, "parking-status-backend", cfg.MQTT.ClientID)
	assert.Equal(t, "parking.db", cfg.Database.DSN)
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  rate_limit_per_sec: 50
liveness:
  timeout_seconds: 120
  check_interval_seconds: 15
mqtt:
  enabled: true
  broker_url: "tcp://broker:1883"
  topic: "lot/+/readings"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, 2*time.Minute, cfg.Liveness.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Liveness.CheckInterval)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "lot/+/readings", cfg.MQTT.Topic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
