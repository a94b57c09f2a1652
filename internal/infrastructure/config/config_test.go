package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"WMS_APP_NAME",
	"WMS_APP_ENV",
	"WMS_DATABASE_DRIVER",
	"WMS_DATABASE_HOST",
	"WMS_DATABASE_PORT",
	"WMS_DATABASE_PASSWORD",
	"WMS_DATABASE_SSLMODE",
	"WMS_DATABASE_MAX_OPEN_CONNS",
	"WMS_DATABASE_MAX_IDLE_CONNS",
	"WMS_WMS_BARCODE_PREFIX",
	"WMS_WMS_BARCODE_MAX_ATTEMPTS",
	"WMS_WMS_FORWARD_SYNC_DEDUP_TTL",
	"WMS_WMS_IDEMPOTENCY_BACKEND",
	"WMS_SCHEDULER_BACKFILL_INTERVAL",
	"WMS_SCHEDULER_RETRY_ATTEMPTS",
	"WMS_TELEMETRY_SAMPLING_RATIO",
	"WMS_TELEMETRY_DB_TRACE_ENABLED",
}

// clearConfigEnv unsets every variable the tests touch; t.Setenv restores them
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearConfigEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "wms", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "wms", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "CB", cfg.WMS.BarcodePrefix)
		assert.Equal(t, 5, cfg.WMS.BarcodeMaxAttempts)
		assert.Equal(t, 200, cfg.WMS.BoardRecentLimit)
		assert.Equal(t, 2000, cfg.WMS.BackfillBarcodeLimit)
		assert.Equal(t, 24*time.Hour, cfg.WMS.ForwardSyncDedupTTL)
		assert.Equal(t, "memory", cfg.WMS.IdempotencyBackend)
		assert.Equal(t, 10*time.Minute, cfg.Scheduler.BackfillInterval)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.False(t, cfg.Telemetry.DBTraceEnabled)
	})

	t.Run("loads values from environment variables with WMS prefix", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_APP_NAME", "wms-test")
		t.Setenv("WMS_DATABASE_HOST", "db.internal")
		t.Setenv("WMS_DATABASE_PORT", "5433")
		t.Setenv("WMS_WMS_BARCODE_PREFIX", "XB")
		t.Setenv("WMS_WMS_BARCODE_MAX_ATTEMPTS", "9")
		t.Setenv("WMS_WMS_FORWARD_SYNC_DEDUP_TTL", "2h")
		t.Setenv("WMS_SCHEDULER_BACKFILL_INTERVAL", "1m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "wms-test", cfg.App.Name)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "XB", cfg.WMS.BarcodePrefix)
		assert.Equal(t, 9, cfg.WMS.BarcodeMaxAttempts)
		assert.Equal(t, 2*time.Hour, cfg.WMS.ForwardSyncDedupTTL)
		assert.Equal(t, time.Minute, cfg.Scheduler.BackfillInterval)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("WMS_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("reads telemetry settings", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_TELEMETRY_SAMPLING_RATIO", "0.25")
		t.Setenv("WMS_TELEMETRY_DB_TRACE_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
		assert.True(t, cfg.Telemetry.DBTraceEnabled)
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("keeps an explicit zero", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_SCHEDULER_RETRY_ATTEMPTS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.Scheduler.RetryAttempts)
	})

	t.Run("names the offending key", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_WMS_BARCODE_MAX_ATTEMPTS", "0")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wms.barcode_max_attempts")
	})

	t.Run("rejects unknown idempotency backend", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_WMS_IDEMPOTENCY_BACKEND", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "idempotency_backend")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("WMS_APP_ENV", "production")
		t.Setenv("WMS_DATABASE_PASSWORD", "secure-password")
		t.Setenv("WMS_DATABASE_SSLMODE", "require")
		t.Setenv("WMS_WMS_IDEMPOTENCY_BACKEND", "redis")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("WMS_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("WMS_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("WMS_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be postgres in production")
	})

	t.Run("rejects process-local dedup in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("WMS_WMS_IDEMPOTENCY_BACKEND", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use redis in production")
	})
}

func TestLoadFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "wms.toml")
	content := `
[database]
driver = "sqlite"
sqlite_path = "/tmp/wms-test.db"

[wms]
board_recent_limit = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Database.IsSQLite())
	assert.Equal(t, "/tmp/wms-test.db", cfg.Database.SQLitePath)
	assert.Equal(t, 50, cfg.WMS.BoardRecentLimit)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
