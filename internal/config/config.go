// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	InstanceURL        string
	Token              string
	RemoteName         string
	PipelineRemoteName string
	ListenAddr         string
	DBPath             string
	SecretKey          []byte // 32-byte AES key for the token store; nil disables it.
	RequestsPerSecond  float64
	DiscussionPageSize int
	LogLevel           slog.Level
}

// HasSecretKey reports whether tokens can be persisted.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// Load reads configuration from MRPANEL_* environment variables and returns a
// validated Config. Nothing is required: without MRPANEL_TOKEN the app starts
// and API calls fail as unauthorized until a token is stored.
// Defaults: MRPANEL_INSTANCE_URL (https://gitlab.com), MRPANEL_LISTEN_ADDR
// (127.0.0.1:8080), MRPANEL_DB_PATH (mrpanel.db), MRPANEL_REQUESTS_PER_SECOND
// (10, 0 disables limiting), MRPANEL_DISCUSSION_PAGE_SIZE (20, max 100),
// MRPANEL_LOG_LEVEL (info).
func Load() (*Config, error) {
	cfg := &Config{
		InstanceURL:        "https://gitlab.com",
		Token:              os.Getenv("MRPANEL_TOKEN"),
		RemoteName:         os.Getenv("MRPANEL_REMOTE_NAME"),
		PipelineRemoteName: os.Getenv("MRPANEL_PIPELINE_REMOTE_NAME"),
		ListenAddr:         "127.0.0.1:8080",
		DBPath:             "mrpanel.db",
		RequestsPerSecond:  10,
		DiscussionPageSize: 20,
		LogLevel:           slog.LevelInfo,
	}

	if v, ok := os.LookupEnv("MRPANEL_INSTANCE_URL"); ok && v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("MRPANEL_INSTANCE_URL must be an http(s) URL, got %q", v)
		}
		cfg.InstanceURL = strings.TrimRight(v, "/")
	}

	if v, ok := os.LookupEnv("MRPANEL_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("MRPANEL_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("MRPANEL_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("MRPANEL_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	if v, ok := os.LookupEnv("MRPANEL_REQUESTS_PER_SECOND"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("MRPANEL_REQUESTS_PER_SECOND has invalid value %q", v)
		}
		cfg.RequestsPerSecond = rps
	}

	if v, ok := os.LookupEnv("MRPANEL_DISCUSSION_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return nil, fmt.Errorf("MRPANEL_DISCUSSION_PAGE_SIZE must be between 1 and 100, got %q", v)
		}
		cfg.DiscussionPageSize = n
	}

	if v, ok := os.LookupEnv("MRPANEL_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("MRPANEL_LOG_LEVEL has invalid value %q: %w", v, err)
		}
	}

	return cfg, nil
}
