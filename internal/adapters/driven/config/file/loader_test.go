package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

func setupTestLoader(t *testing.T, content string, env map[string]string) *Loader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	l, err := NewLoader(path)
	require.NoError(t, err)
	l.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return l
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	l := setupTestLoader(t, "", nil)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)

	policy := cfg.Research.Policy()
	assert.Equal(t, "ultra", policy.Processor)
	assert.Equal(t, 300*time.Second, policy.Timeout)
	assert.Equal(t, 3*time.Second, policy.PollInterval)
}

func TestLoader_File(t *testing.T) {
	l := setupTestLoader(t, `
[storage]
driver = "sqlite"
data_dir = "/var/lib/drp"
connect_timeout_seconds = 2.5

[research]
api_key = "file-key"
processor = "core"
poll_interval_seconds = 1
limit = 5
max_fetch_errors = 2

[server]
addr = ":9000"
cors_origins = ["http://localhost:3000"]
debug = true
`, nil)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/drp", cfg.Storage.DataDir)
	assert.Equal(t, 2500*time.Millisecond, cfg.Storage.ConnectTimeout)
	assert.Equal(t, "deepresearchpod", cfg.Storage.Database)
	assert.Equal(t, "file-key", cfg.Research.APIKey)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.Debug)

	policy := cfg.Research.Policy()
	assert.Equal(t, "core", policy.Processor)
	assert.Equal(t, 120*time.Second, policy.Timeout)
	assert.Equal(t, time.Second, policy.PollInterval)
	assert.Equal(t, 5, policy.Limit)
	assert.Equal(t, 2, policy.MaxFetchErrors)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	l := setupTestLoader(t, `
[research]
api_key = "file-key"
processor = "core"
`, map[string]string{
		EnvMongoURI:            "mongodb://db:27017",
		EnvMongoDB:             "news",
		EnvAPIKey:              "env-key",
		EnvProcessor:           "ultra",
		EnvTimeoutSeconds:      "45",
		EnvPollIntervalSeconds: "0.5",
		EnvCORSOrigins:         " https://a.test , ,https://b.test",
		EnvStorageDriver:       "memory",
	})

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.URI)
	assert.Equal(t, "news", cfg.Storage.Database)
	assert.Equal(t, domain.StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "env-key", cfg.Research.APIKey)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)

	policy := cfg.Research.Policy()
	assert.Equal(t, "ultra", policy.Processor)
	assert.Equal(t, 45*time.Second, policy.Timeout)
	assert.Equal(t, 500*time.Millisecond, policy.PollInterval)
}

func TestLoader_BlankEnvIgnored(t *testing.T) {
	l := setupTestLoader(t, "", map[string]string{EnvAPIKey: "  ", EnvProcessor: ""})

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Research.APIKey)
	assert.Equal(t, "ultra", cfg.Research.Processor)
}

func TestLoader_InvalidEnvSeconds(t *testing.T) {
	l := setupTestLoader(t, "", map[string]string{EnvTimeoutSeconds: "soon"})

	_, err := l.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), EnvTimeoutSeconds)
}

func TestLoader_InvalidFile(t *testing.T) {
	l := setupTestLoader(t, "[research\nprocessor = ", nil)

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestNewLoader_DefaultPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	l, err := NewLoader("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".deepresearchpod", "config.toml"), l.Path())
}

func TestSplitOrigins(t *testing.T) {
	assert.Nil(t, SplitOrigins(""))
	assert.Equal(t, []string{"*"}, SplitOrigins("*"))
	assert.Equal(t, []string{"a", "b"}, SplitOrigins("a, b,"))
}
