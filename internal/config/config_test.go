package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, 6, cfg.Assets.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.Assets.Timeout())
	assert.Equal(t, "report:jobs", cfg.Jobs.Stream)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.TTL())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("ASSETS_BATCH_SIZE", "3")
	t.Setenv("STORAGE_BUCKET_URL", "mem://")
	t.Setenv("REPORT_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, 3, cfg.Assets.BatchSize)
	assert.Equal(t, "mem://", cfg.Storage.BucketURL)
	assert.Equal(t, time.UTC, cfg.Report.Location())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ici.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":7000"
database:
  host: from-file
  port: 6543
mqtt:
  enabled: true
  broker: tcp://broker:1883
  request_topic: a/b
storage:
  public_base_url: https://cdn.example.com
assets:
  max_pixels: 800
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_HOST", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "a/b", cfg.MQTT.RequestTopic)
	assert.Equal(t, "ici/reports/reply", cfg.MQTT.ReplyTopic)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, 800, cfg.Assets.MaxPixels)
	assert.Equal(t, 6, cfg.Assets.BatchSize)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	t.Run("batch size", func(t *testing.T) {
		t.Setenv("ASSETS_BATCH_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("timezone", func(t *testing.T) {
		t.Setenv("REPORT_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
}
