package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, defaultServerHost, cfg.Server.Host)
	assert.Equal(t, defaultReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, defaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, defaultMigrationsPath, cfg.Database.MigrationsPath)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, defaultLogPretty, cfg.Logging.Pretty)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LUMEN_SERVER_PORT", "9090")
	t.Setenv("LUMEN_DATABASE_PATH", "/tmp/custom.db")
	t.Setenv("LUMEN_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LUMEN_LOGGING_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{
				Port:         8080,
				Host:         "0.0.0.0",
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
			Database: DatabaseConfig{
				Path:              "./data/lumen.db",
				ConnectionTimeout: 5 * time.Second,
				MigrationsPath:    "file://./migrations",
			},
			Logging: LoggingConfig{Level: "info"},
		}
	}

	valid := base()
	assert.NoError(t, valid.Validate())

	badPort := base()
	badPort.Server.Port = 0
	assert.Error(t, badPort.Validate())

	badTimeout := base()
	badTimeout.Server.ReadTimeout = 0
	assert.Error(t, badTimeout.Validate())

	badLevel := base()
	badLevel.Logging.Level = "trace"
	assert.Error(t, badLevel.Validate())
}
