package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Progress.Backend)
	assert.Equal(t, BackendRedis, cfg.Presence.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Presence.StalenessWindow)
	assert.Equal(t, 30*time.Second, cfg.Presence.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, cfg.Presence.MonitorInterval)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PRESENCE_BACKEND", "MEMORY")
	t.Setenv("PRESENCE_STALENESS_WINDOW", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Presence.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Presence.StalenessWindow)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTH_JWT_SECRET="+testSecret+"\nCOURSES_DIR=/srv/courses\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("AUTH_JWT_SECRET")
		os.Unsetenv("COURSES_DIR")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/courses", cfg.Courses.Dir)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{DSN: "postgres://x"},
			Redis:    RedisConfig{Address: "localhost:6379"},
			Progress: ProgressConfig{Backend: BackendPostgres},
			Presence: PresenceConfig{Backend: BackendRedis, StalenessWindow: 5 * time.Minute, HeartbeatInterval: 30 * time.Second},
			Auth:     AuthConfig{JWTSecret: testSecret},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown progress backend", func(c *Config) { c.Progress.Backend = "mongo" }},
		{"unknown presence backend", func(c *Config) { c.Presence.Backend = "etcd" }},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"heartbeat slower than window", func(c *Config) { c.Presence.HeartbeatInterval = 10 * time.Minute }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestUsesPostgres(t *testing.T) {
	tests := []struct {
		progress string
		presence string
		want     bool
	}{
		{BackendPostgres, BackendRedis, true},
		{BackendMemory, BackendPostgres, true},
		{BackendPostgres, BackendPostgres, true},
		{BackendMemory, BackendRedis, false},
		{BackendMemory, BackendMemory, false},
	}

	for _, tt := range tests {
		t.Run(tt.progress+"/"+tt.presence, func(t *testing.T) {
			cfg := &Config{
				Progress: ProgressConfig{Backend: tt.progress},
				Presence: PresenceConfig{Backend: tt.presence},
			}
			assert.Equal(t, tt.want, cfg.UsesPostgres())
		})
	}
}
