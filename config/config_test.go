package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"PORT":                      "server.port",
		"AWS_REGION":                "aws.region",
		"S3_BUCKET_NAME":            "s3.bucket",
		"SECURITY_RATE_LIMIT_REQS":  "security.rate_limit_reqs",
		"SOCKET_SEND_QUEUE_SIZE":    "socket.send_queue_size",
		"TABLES_BOOKS":              "tables.books",
		"HOME":                      "",
		"AWS_SECRET_ACCESS_KEY_ID":  "aws.secret_access_key_id",
		"GOPATH_SOMETHING_UNRELATE": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, envTransformFunc(in), in)
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SECURITY_RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Security.RateLimitWindow)
	assert.Equal(t, "Books", cfg.Tables.Books)
	assert.Equal(t, 64, cfg.Socket.SendQueueSize)
	assert.True(t, cfg.Notifications.Async)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
storage:
  driver: memory
security:
  jwt_secret: file-secret-0123456789
socket:
  send_queue_size: 8
notifications:
  async: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Socket.SendQueueSize)
	assert.False(t, cfg.Notifications.Async)
	assert.Equal(t, "file-secret-0123456789", cfg.Security.JWTSecret)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "short"
	cfg.Storage.Driver = "memory"
	assert.Error(t, cfg.Validate(), "short secret")

	cfg.Security.JWTSecret = "long-enough-secret-value"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "dynamodb"
	assert.Error(t, cfg.Validate(), "dynamodb requires a region")

	cfg.AWS.Region = "eu-west-1"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Driver = "postgres"
	assert.Error(t, cfg.Validate())
}
