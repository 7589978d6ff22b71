package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.PlatformDeadline <= 0 {
		return fmt.Errorf("server.platform_deadline must be > 0")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if cfg.Scraper.RetryCount < 1 {
		return fmt.Errorf("scraper.retry_count must be >= 1, got %d", cfg.Scraper.RetryCount)
	}
	if cfg.Scraper.RetryDelay < 0 {
		return fmt.Errorf("scraper.retry_delay must be >= 0")
	}
	if cfg.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be > 0")
	}
	if cfg.Scraper.RateLimit < 0 {
		return fmt.Errorf("scraper.rate_limit must be >= 0")
	}
	if cfg.Scraper.MaxBodySize <= 0 {
		return fmt.Errorf("scraper.max_body_size must be > 0")
	}

	if cfg.Carousell.Enabled {
		if err := ValidateURL(cfg.Carousell.BaseURL); err != nil {
			return fmt.Errorf("carousell.base_url: %w", err)
		}
	}
	if cfg.Facebook.Enabled {
		if err := ValidateURL(cfg.Facebook.BaseURL); err != nil {
			return fmt.Errorf("facebook.base_url: %w", err)
		}
		if cfg.Facebook.ScrollStep < 1 {
			return fmt.Errorf("facebook.scroll_step must be >= 1, got %d", cfg.Facebook.ScrollStep)
		}
		if (cfg.Facebook.Email == "") != (cfg.Facebook.Password == "") {
			return fmt.Errorf("facebook.email and facebook.password must be set together")
		}
	}
	if !cfg.Carousell.Enabled && !cfg.Facebook.Enabled {
		return fmt.Errorf("at least one platform must be enabled")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "memcache":
		if cfg.Cache.MemcacheAddr == "" {
			return fmt.Errorf("cache.memcache_addr is required for the memcache backend")
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'memcache', got %q", cfg.Cache.Backend)
	}

	if cfg.History.Mongo.Enabled {
		if !strings.HasPrefix(cfg.History.Mongo.URI, "mongodb://") && !strings.HasPrefix(cfg.History.Mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("history.mongo.uri must start with mongodb:// or mongodb+srv://")
		}
		if cfg.History.Mongo.Database == "" || cfg.History.Mongo.Collection == "" {
			return fmt.Errorf("history.mongo.database and history.mongo.collection are required")
		}
	}
	if cfg.History.Redis.Enabled {
		if cfg.History.Redis.Addr == "" {
			return fmt.Errorf("history.redis.addr is required")
		}
		if cfg.History.Redis.StreamCount < 1 {
			return fmt.Errorf("history.redis.stream_count must be >= 1, got %d", cfg.History.Redis.StreamCount)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
