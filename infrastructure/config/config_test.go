package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, int64(4<<20), cfg.MaxBodyBytes)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_address: ":9000"
storage_driver: badger
badger_path: /tmp/trees
rate_limit_rps: 5
shutdown_timeout: 3s
cors_allowed_origins: ["https://a.example"]
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_ADDRESS", ":9100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ServerAddress)
	assert.Equal(t, StorageBadger, cfg.StorageDriver)
	assert.Equal(t, "/tmp/trees", cfg.BadgerPath)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_FILE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TREESERVICE_TEST_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TREESERVICE_TEST_LOG_LEVEL") })

	_, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", os.Getenv("TREESERVICE_TEST_LOG_LEVEL"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: "unknown STORAGE_DRIVER"},
		{name: "badger without path", mutate: func(c *Config) { c.StorageDriver = StorageBadger; c.BadgerPath = "" }, wantErr: "BADGER_PATH"},
		{name: "badger in memory", mutate: func(c *Config) { c.StorageDriver = StorageBadger; c.BadgerPath = ""; c.BadgerInMemory = true }},
		{name: "dynamodb without table", mutate: func(c *Config) { c.StorageDriver = StorageDynamoDB; c.DynamoDBTable = "" }, wantErr: "TABLE_NAME"},
		{name: "auth without secret", mutate: func(c *Config) { c.AuthEnabled = true }, wantErr: "JWT_SECRET"},
		{name: "production without auth", mutate: func(c *Config) { c.Environment = "production"; c.StorageDriver = StorageDynamoDB }, wantErr: "AUTH_ENABLED"},
		{name: "production on memory", mutate: func(c *Config) {
			c.Environment = "production"
			c.AuthEnabled = true
			c.JWTSecret = "s"
		}, wantErr: "memory store"},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimitRPS = -1 }, wantErr: "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
