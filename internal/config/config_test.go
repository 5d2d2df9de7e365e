package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 75, cfg.Engine.NumberUniverse)
	assert.Equal(t, 5, cfg.Engine.DrawRetries)
	assert.Equal(t, 3, cfg.Engine.AwardRetries)
	assert.Equal(t, 5*time.Second, cfg.Engine.LockTimeout)
	assert.False(t, cfg.Engine.StrictMarking)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("engine:\n  number_universe: 90\n  strict_marking: true\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Engine.NumberUniverse)
	assert.True(t, cfg.Engine.StrictMarking)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, zerolog.DebugLevel, cfg.Log.ZerologLevel())
}

func TestLoad_RejectsEmptyUniverse(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("engine:\n  number_universe: 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())
}

func TestLogConfig_UnknownLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, LogConfig{Level: "loud"}.ZerologLevel())
	assert.Equal(t, zerolog.InfoLevel, LogConfig{}.ZerologLevel())
}
