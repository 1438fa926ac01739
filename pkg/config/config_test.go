package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultValues(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10, cfg.Room.Capacity)
	assert.True(t, cfg.Room.WaitingRoom)
	assert.Equal(t, 30*time.Second, cfg.Room.GraceTimeout)
	assert.Equal(t, 2*time.Second, cfg.Room.QualityInterval)
	assert.Equal(t, 20*time.Second, cfg.Room.NegotiationTimeout)
	assert.Len(t, cfg.WebRTC.SimulcastLayers, 3)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Room.Capacity, cfg.Room.Capacity)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("room:\n  capacity: 25\n  waiting_room: false\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Room.Capacity)
	assert.False(t, cfg.Room.WaitingRoom)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep defaults
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"zero room capacity", func(c *Config) { c.Room.Capacity = 0 }},
		{"negative grace timeout", func(c *Config) { c.Room.GraceTimeout = -time.Second }},
		{"pong not after ping", func(c *Config) { c.Signal.PongTimeout = c.Signal.PingInterval }},
		{"half port range", func(c *Config) { c.WebRTC.PortRange.Min = 10000 }},
		{"bad simulcast layer", func(c *Config) { c.WebRTC.SimulcastLayers[0].MaxBitrate = 0 }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
		{"rate limiting without rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEETRIX_LOG_LEVEL", "warn")
	t.Setenv("MEETRIX_JWT_SECRET", "supersecret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "supersecret", cfg.Auth.JWTSecret)
}
