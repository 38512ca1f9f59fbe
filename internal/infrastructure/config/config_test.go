package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"KLINIK_APP_NAME":                os.Getenv("KLINIK_APP_NAME"),
		"KLINIK_APP_ENV":                 os.Getenv("KLINIK_APP_ENV"),
		"KLINIK_APP_PORT":                os.Getenv("KLINIK_APP_PORT"),
		"KLINIK_DATABASE_HOST":           os.Getenv("KLINIK_DATABASE_HOST"),
		"KLINIK_DATABASE_PORT":           os.Getenv("KLINIK_DATABASE_PORT"),
		"KLINIK_DATABASE_USER":           os.Getenv("KLINIK_DATABASE_USER"),
		"KLINIK_DATABASE_PASSWORD":       os.Getenv("KLINIK_DATABASE_PASSWORD"),
		"KLINIK_DATABASE_DBNAME":         os.Getenv("KLINIK_DATABASE_DBNAME"),
		"KLINIK_DATABASE_SSLMODE":        os.Getenv("KLINIK_DATABASE_SSLMODE"),
		"KLINIK_DATABASE_MAX_OPEN_CONNS": os.Getenv("KLINIK_DATABASE_MAX_OPEN_CONNS"),
		"KLINIK_DATABASE_MAX_IDLE_CONNS": os.Getenv("KLINIK_DATABASE_MAX_IDLE_CONNS"),
		"KLINIK_FRAPPE_BASE_URL":         os.Getenv("KLINIK_FRAPPE_BASE_URL"),
		"KLINIK_FRAPPE_API_KEY":          os.Getenv("KLINIK_FRAPPE_API_KEY"),
		"KLINIK_FRAPPE_API_SECRET":       os.Getenv("KLINIK_FRAPPE_API_SECRET"),
		"KLINIK_SATUSEHAT_BASE_URL":      os.Getenv("KLINIK_SATUSEHAT_BASE_URL"),
		"KLINIK_SATUSEHAT_AUTH_URL":      os.Getenv("KLINIK_SATUSEHAT_AUTH_URL"),
		"KLINIK_SATUSEHAT_CLIENT_ID":     os.Getenv("KLINIK_SATUSEHAT_CLIENT_ID"),
		"KLINIK_SATUSEHAT_CLIENT_SECRET": os.Getenv("KLINIK_SATUSEHAT_CLIENT_SECRET"),
		"KLINIK_SYNC_BATCH_SIZE":         os.Getenv("KLINIK_SYNC_BATCH_SIZE"),
		"KLINIK_SYNC_PULL_PAGE_SIZE":     os.Getenv("KLINIK_SYNC_PULL_PAGE_SIZE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "klinik-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "klinik", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 10, cfg.Frappe.TimeoutSeconds)
		assert.Equal(t, 15, cfg.SatuSehat.TimeoutSeconds)
		assert.Equal(t, 100, cfg.Sync.BatchSize)
		assert.Equal(t, 500, cfg.Sync.PullPageSize)
		assert.Equal(t, 3, cfg.Scheduler.MaxConcurrentJobs)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with KLINIK prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("KLINIK_APP_NAME", "test-app")
		os.Setenv("KLINIK_APP_ENV", "testing")
		os.Setenv("KLINIK_APP_PORT", "9000")
		os.Setenv("KLINIK_DATABASE_HOST", "testdb.local")
		os.Setenv("KLINIK_DATABASE_PORT", "5433")
		os.Setenv("KLINIK_DATABASE_USER", "testuser")
		os.Setenv("KLINIK_DATABASE_PASSWORD", "testpass")
		os.Setenv("KLINIK_DATABASE_DBNAME", "testdb")
		os.Setenv("KLINIK_DATABASE_SSLMODE", "require")
		os.Setenv("KLINIK_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("KLINIK_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("KLINIK_FRAPPE_BASE_URL", "https://erp.example.com")
		os.Setenv("KLINIK_SATUSEHAT_CLIENT_ID", "client-abc")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "https://erp.example.com", cfg.Frappe.BaseURL)
		assert.Equal(t, "client-abc", cfg.SatuSehat.ClientID)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("KLINIK_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("KLINIK_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("KLINIK_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("KLINIK_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("validates pull page size cap", func(t *testing.T) {
		clearEnv()
		os.Setenv("KLINIK_SYNC_PULL_PAGE_SIZE", "1000")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pull_page_size")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"KLINIK_APP_ENV":                 os.Getenv("KLINIK_APP_ENV"),
		"KLINIK_DATABASE_PASSWORD":       os.Getenv("KLINIK_DATABASE_PASSWORD"),
		"KLINIK_DATABASE_SSLMODE":        os.Getenv("KLINIK_DATABASE_SSLMODE"),
		"KLINIK_FRAPPE_BASE_URL":         os.Getenv("KLINIK_FRAPPE_BASE_URL"),
		"KLINIK_FRAPPE_API_KEY":          os.Getenv("KLINIK_FRAPPE_API_KEY"),
		"KLINIK_FRAPPE_API_SECRET":       os.Getenv("KLINIK_FRAPPE_API_SECRET"),
		"KLINIK_SATUSEHAT_BASE_URL":      os.Getenv("KLINIK_SATUSEHAT_BASE_URL"),
		"KLINIK_SATUSEHAT_AUTH_URL":      os.Getenv("KLINIK_SATUSEHAT_AUTH_URL"),
		"KLINIK_SATUSEHAT_CLIENT_ID":     os.Getenv("KLINIK_SATUSEHAT_CLIENT_ID"),
		"KLINIK_SATUSEHAT_CLIENT_SECRET": os.Getenv("KLINIK_SATUSEHAT_CLIENT_SECRET"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	setValidProductionBase := func() {
		os.Setenv("KLINIK_APP_ENV", "production")
		os.Setenv("KLINIK_DATABASE_PASSWORD", "secure-password")
		os.Setenv("KLINIK_DATABASE_SSLMODE", "require")
		os.Setenv("KLINIK_FRAPPE_BASE_URL", "https://erp.example.com")
		os.Setenv("KLINIK_FRAPPE_API_KEY", "key")
		os.Setenv("KLINIK_FRAPPE_API_SECRET", "secret")
		os.Setenv("KLINIK_SATUSEHAT_BASE_URL", "https://api-satusehat.kemkes.go.id/fhir-r4/v1")
		os.Setenv("KLINIK_SATUSEHAT_AUTH_URL", "https://api-satusehat.kemkes.go.id/oauth2/v1")
		os.Setenv("KLINIK_SATUSEHAT_CLIENT_ID", "client")
		os.Setenv("KLINIK_SATUSEHAT_CLIENT_SECRET", "shh")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("KLINIK_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("KLINIK_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires backend credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("KLINIK_FRAPPE_API_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "frappe.api_secret")
	})

	t.Run("requires registry credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("KLINIK_SATUSEHAT_CLIENT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "satusehat.client_secret")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
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
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
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

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
