package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 3, cfg.Scraper.RetryCount)
	assert.Equal(t, 2*time.Second, cfg.Scraper.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, "https://hk.carousell.com", cfg.Carousell.BaseURL)
	assert.Equal(t, "hongkong", cfg.Facebook.Location)
	assert.False(t, cfg.Facebook.HasCredentials())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retries", func(c *Config) { c.Scraper.RetryCount = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no deadline", func(c *Config) { c.Server.PlatformDeadline = 0 }},
		{"relative base url", func(c *Config) { c.Carousell.BaseURL = "hk.carousell.com" }},
		{"half credentials", func(c *Config) { c.Facebook.Email = "a@b.c" }},
		{"no platforms", func(c *Config) { c.Carousell.Enabled = false; c.Facebook.Enabled = false }},
		{"bad cache", func(c *Config) { c.Cache.Backend = "disk" }},
		{"bad mongo uri", func(c *Config) { c.History.Mongo.Enabled = true; c.History.Mongo.URI = "localhost" }},
		{"bad redis streams", func(c *Config) { c.History.Redis.Enabled = true; c.History.Redis.StreamCount = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad rotation", func(c *Config) { c.Proxy.Enabled = true; c.Proxy.Rotation = "sticky" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secondprice.yaml")
	yaml := `
server:
  port: 8088
scraper:
  retry_delay: 500ms
carousell:
  default_sort: recent
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("SECONDPRICE_FACEBOOK_LOCATION", "kowloon")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.RetryDelay)
	assert.Equal(t, "recent", cfg.Carousell.DefaultSort)
	assert.Equal(t, "kowloon", cfg.Facebook.Location)
	assert.Equal(t, 3, cfg.Scraper.RetryCount)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
