package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBackendEnv(t *testing.T) {
	t.Helper()
	t.Setenv(URLEnv, "https://example.supabase.co/")
	t.Setenv(KeyEnv, "anon-key")
}

func TestLoad_Defaults(t *testing.T) {
	setBackendEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co", cfg.Backend.URL, "trailing slash trimmed")
	assert.Equal(t, "anon-key", cfg.Backend.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "name", cfg.Schema.NameColumn)
	assert.Equal(t, "owner_id", cfg.Schema.OwnerColumn)
	assert.Equal(t, "data", cfg.Schema.DataColumn)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "mydashboard", cfg.Trace.ServiceName)
	assert.Empty(t, cfg.Trace.Endpoint)
}

func TestLoad_PrefixedOverrides(t *testing.T) {
	setBackendEnv(t)
	t.Setenv("MYDASHBOARD_BACKEND_TIMEOUT", "3s")
	t.Setenv("MYDASHBOARD_SCHEMA_NAME_COLUMN", "nome")
	t.Setenv("MYDASHBOARD_SCHEMA_OWNER_COLUMN", "user_id")
	t.Setenv("MYDASHBOARD_SCHEMA_DATA_COLUMN", "dados_json")
	t.Setenv("MYDASHBOARD_LOG_LEVEL", "debug")
	t.Setenv("MYDASHBOARD_LOG_JSON", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "nome", cfg.Schema.NameColumn)
	assert.Equal(t, "user_id", cfg.Schema.OwnerColumn)
	assert.Equal(t, "dados_json", cfg.Schema.DataColumn)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "localhost:4318", cfg.Trace.Endpoint)
}

func TestLoad_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SUPABASE_URL=https://dotenv.example\nSUPABASE_KEY=from-file\n"), 0o644))
	// Register cleanup for variables godotenv will set.
	t.Setenv(URLEnv, "")
	t.Setenv(KeyEnv, "")
	require.NoError(t, os.Unsetenv(URLEnv))
	require.NoError(t, os.Unsetenv(KeyEnv))

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example", cfg.Backend.URL)
	assert.Equal(t, "from-file", cfg.Backend.APIKey)
}

func TestLoad_MissingBackend(t *testing.T) {
	t.Setenv(URLEnv, "")
	t.Setenv(KeyEnv, "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), URLEnv)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setBackendEnv(t)
	t.Setenv("MYDASHBOARD_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Level")
}

func TestEnvToPath(t *testing.T) {
	assert.Equal(t, "backend.url", envToPath("SUPABASE_URL"))
	assert.Equal(t, "schema.name_column", envToPath("MYDASHBOARD_SCHEMA_NAME_COLUMN"))
	assert.Equal(t, "", envToPath("MYDASHBOARD_PASSWORD"))
	assert.Equal(t, "", envToPath("HOME"))
}

func TestConfig_StringMasksKey(t *testing.T) {
	setBackendEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotContains(t, cfg.String(), "anon-key")
}
