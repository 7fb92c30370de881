package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRIMOIRE_JWT_SECRET_KEY", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Room.MinSeats)
	assert.Equal(t, 20, cfg.Room.MaxSeats)
	assert.Equal(t, "trouble_brewing", cfg.Room.DefaultScript)
	assert.Equal(t, 5*time.Second, cfg.Room.ResyncInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.NATS.Enabled())
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Replication.EdgeFilter)
	assert.Equal(t, "s3cret", cfg.JWT.SecretKey)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":9000"
  log_level: debug
redis:
  host: redis.internal
  port: 6380
jwt:
  secret_key: from-file
  access_expire: 2h
room:
  document_ttl: 12h
  max_rooms: 10
replication:
  edge_filter: true
`)
	t.Setenv("GRIMOIRE_REDIS_HOST", "redis.override")
	t.Setenv("GRIMOIRE_NATS_URL", "nats://localhost:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "redis.override:6380", cfg.Redis.Addr())
	assert.Equal(t, "from-file", cfg.JWT.SecretKey)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccessExpire)
	assert.Equal(t, 12*time.Hour, cfg.Room.DocumentTTL)
	assert.Equal(t, 10, cfg.Room.MaxRooms)
	assert.True(t, cfg.Replication.EdgeFilter)
	assert.True(t, cfg.NATS.Enabled())
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  name: grimoire\n"))
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = Load(writeConfig(t, "jwt:\n  secret_key: x\nroom:\n  min_seats: 3\n"))
	assert.ErrorIs(t, err, ErrSeatRange)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
