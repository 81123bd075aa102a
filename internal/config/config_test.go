package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every MRPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"MRPANEL_INSTANCE_URL",
	"MRPANEL_TOKEN",
	"MRPANEL_REMOTE_NAME",
	"MRPANEL_PIPELINE_REMOTE_NAME",
	"MRPANEL_LISTEN_ADDR",
	"MRPANEL_DB_PATH",
	"MRPANEL_SECRET_KEY",
	"MRPANEL_REQUESTS_PER_SECOND",
	"MRPANEL_DISCUSSION_PAGE_SIZE",
	"MRPANEL_LOG_LEVEL",
}

// isolateConfigEnv saves and unsets all MRPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MRPANEL_INSTANCE_URL", "https://gitlab.example.com/")
	t.Setenv("MRPANEL_TOKEN", "glpat-test123")
	t.Setenv("MRPANEL_REMOTE_NAME", "upstream")
	t.Setenv("MRPANEL_PIPELINE_REMOTE_NAME", "fork")
	t.Setenv("MRPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("MRPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("MRPANEL_SECRET_KEY", strings.Repeat("ab", 32))
	t.Setenv("MRPANEL_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("MRPANEL_DISCUSSION_PAGE_SIZE", "50")
	t.Setenv("MRPANEL_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com", cfg.InstanceURL)
	assert.Equal(t, "glpat-test123", cfg.Token)
	assert.Equal(t, "upstream", cfg.RemoteName)
	assert.Equal(t, "fork", cfg.PipelineRemoteName)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Len(t, cfg.SecretKey, 32)
	assert.True(t, cfg.HasSecretKey())
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 0.001)
	assert.Equal(t, 50, cfg.DiscussionPageSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com", cfg.InstanceURL)
	assert.Equal(t, "", cfg.Token)
	assert.Equal(t, "", cfg.RemoteName)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "mrpanel.db", cfg.DBPath)
	assert.False(t, cfg.HasSecretKey())
	assert.InDelta(t, 10.0, cfg.RequestsPerSecond, 0.001)
	assert.Equal(t, 20, cfg.DiscussionPageSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MRPANEL_INSTANCE_URL", "gitlab.com"},
		{"MRPANEL_INSTANCE_URL", "ftp://gitlab.com"},
		{"MRPANEL_SECRET_KEY", "not-hex"},
		{"MRPANEL_SECRET_KEY", "abcd"},
		{"MRPANEL_REQUESTS_PER_SECOND", "fast"},
		{"MRPANEL_REQUESTS_PER_SECOND", "-1"},
		{"MRPANEL_DISCUSSION_PAGE_SIZE", "0"},
		{"MRPANEL_DISCUSSION_PAGE_SIZE", "101"},
		{"MRPANEL_LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
