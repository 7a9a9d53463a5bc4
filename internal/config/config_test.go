package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAll_Defaults(t *testing.T) {
	clearTestEnv(t)

	cfg, err := LoadAll()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "", cfg.Server.APIBaseURL)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())

	assert.Equal(t, "", cfg.Auth.APIKey)
	assert.False(t, cfg.Auth.ProtectTransitions)

	assert.Equal(t, "", cfg.Database.PostgresURL)
	assert.Equal(t, "sms.db", cfg.Database.SQLitePath)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.False(t, cfg.Redis.Enabled, "redis must stay disabled without REDIS_ADDR")

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
}

func TestLoadAll_FromEnv(t *testing.T) {
	clearTestEnv(t)

	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("API_BASE_URL", "https://sms.example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("API_KEY", "SECRET123")
	t.Setenv("AUTH_PROTECT_TRANSITIONS", "true")
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_PENDING_TTL_SECONDS", "42")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")

	cfg, err := LoadAll()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "https://sms.example.com", cfg.Server.APIBaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins())
	assert.Equal(t, "SECRET123", cfg.Auth.APIKey)
	assert.True(t, cfg.Auth.ProtectTransitions)
	assert.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.PostgresURL)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 42*time.Second, cfg.Redis.TTL())

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
}

func TestLoadAll_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"invalid REDIS_DB", "REDIS_DB", "bad"},
		{"invalid DB_MAX_OPEN_CONNS", "DB_MAX_OPEN_CONNS", "x"},
		{"invalid SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT_SECONDS", "nope"},
		{"invalid TRACING_SAMPLE_RATE", "TRACING_SAMPLE_RATE", "lots"},
		{"invalid AUTH_PROTECT_TRANSITIONS", "AUTH_PROTECT_TRANSITIONS", "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := LoadAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoadAll_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"shutdown <= 0", map[string]string{"SHUTDOWN_TIMEOUT_SECONDS": "0"}, "SHUTDOWN_TIMEOUT_SECONDS"},
		{"max open conns <= 0", map[string]string{"DB_MAX_OPEN_CONNS": "0"}, "DB_MAX_OPEN_CONNS"},
		{"redis ttl <= 0", map[string]string{"REDIS_ADDR": "localhost:6379", "REDIS_PENDING_TTL_SECONDS": "0"}, "REDIS_PENDING_TTL_SECONDS"},
		{"sample rate > 1", map[string]string{"TRACING_SAMPLE_RATE": "1.5"}, "TRACING_SAMPLE_RATE"},
		{"unknown exporter", map[string]string{"TRACING_EXPORTER": "zipkin"}, "TRACING_EXPORTER"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearTestEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadAll_ReportsEveryProblem(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "0")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestLoadAgent(t *testing.T) {
	t.Run("requires WEBHOOK_URL", func(t *testing.T) {
		clearTestEnv(t)

		_, err := LoadAgent()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBHOOK_URL")
	})

	t.Run("defaults", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("WEBHOOK_URL", "https://example.com/webhook")

		cfg, err := LoadAgent()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.APIURL)
		assert.Equal(t, "https://example.com/webhook", cfg.WebhookURL)
		assert.Equal(t, 160, cfg.ContentMax)
		assert.Equal(t, 30*time.Second, cfg.Interval())
		assert.Equal(t, 50, cfg.BatchSize)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "stdout", cfg.Tracing.Exporter)
	})

	t.Run("batch size <= 0", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("WEBHOOK_URL", "https://example.com/webhook")
		t.Setenv("AGENT_BATCH_SIZE", "0")

		_, err := LoadAgent()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AGENT_BATCH_SIZE")
	})

	t.Run("invalid CONTENT_MAX", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("WEBHOOK_URL", "https://example.com/webhook")
		t.Setenv("CONTENT_MAX", "abc")

		_, err := LoadAgent()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CONTENT_MAX")
	})
}

func TestJoinErrors(t *testing.T) {
	assert.NoError(t, joinErrors(nil))

	e1 := errors.New("one")
	e2 := errors.New("two")
	err := joinErrors([]error{e1, e2})
	require.Error(t, err)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}

// clearTestEnv unsets every key the loaders read. t.Setenv first so the
// original values come back when the test ends.
func clearTestEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SERVER_ADDRESS", "API_BASE_URL", "CORS_ALLOWED_ORIGINS", "SHUTDOWN_TIMEOUT_SECONDS",
		"API_KEY", "AUTH_PROTECT_TRANSITIONS",
		"POSTGRES_URL", "SQLITE_PATH", "DB_MAX_OPEN_CONNS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PENDING_TTL_SECONDS",
		"LOG_LEVEL", "LOG_FORMAT",
		"TRACING_ENABLED", "TRACING_EXPORTER", "OTLP_ENDPOINT", "TRACING_SAMPLE_RATE", "TRACING_SERVICE_NAME",
		"AGENT_API_URL", "AGENT_API_KEY", "WEBHOOK_URL", "CONTENT_MAX", "AGENT_INTERVAL_SECONDS", "AGENT_BATCH_SIZE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}
