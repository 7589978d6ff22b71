package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SECONDPRICE_SERVER_PORT.
const EnvPrefix = "SECONDPRICE"

// Load reads configuration from file, environment, and .env.
// Priority (highest to lowest): env vars > .env > config file > defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("secondprice")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".secondprice"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.platform_deadline", cfg.Server.PlatformDeadline)

	v.SetDefault("scraper.retry_count", cfg.Scraper.RetryCount)
	v.SetDefault("scraper.retry_delay", cfg.Scraper.RetryDelay)
	v.SetDefault("scraper.timeout", cfg.Scraper.Timeout)
	v.SetDefault("scraper.user_agent", cfg.Scraper.UserAgent)
	v.SetDefault("scraper.accept", cfg.Scraper.Accept)
	v.SetDefault("scraper.accept_language", cfg.Scraper.AcceptLanguage)
	v.SetDefault("scraper.rate_limit", cfg.Scraper.RateLimit)
	v.SetDefault("scraper.rate_burst", cfg.Scraper.RateBurst)
	v.SetDefault("scraper.max_body_size", cfg.Scraper.MaxBodySize)

	v.SetDefault("carousell.enabled", cfg.Carousell.Enabled)
	v.SetDefault("carousell.base_url", cfg.Carousell.BaseURL)
	v.SetDefault("carousell.default_sort", cfg.Carousell.DefaultSort)

	v.SetDefault("facebook.enabled", cfg.Facebook.Enabled)
	v.SetDefault("facebook.base_url", cfg.Facebook.BaseURL)
	v.SetDefault("facebook.login_url", cfg.Facebook.LoginURL)
	v.SetDefault("facebook.location", cfg.Facebook.Location)
	v.SetDefault("facebook.email", cfg.Facebook.Email)
	v.SetDefault("facebook.password", cfg.Facebook.Password)
	v.SetDefault("facebook.headless", cfg.Facebook.Headless)
	v.SetDefault("facebook.stealth", cfg.Facebook.Stealth)
	v.SetDefault("facebook.scroll_step", cfg.Facebook.ScrollStep)
	v.SetDefault("facebook.viewport_width", cfg.Facebook.ViewportWidth)
	v.SetDefault("facebook.viewport_height", cfg.Facebook.ViewportHeight)
	v.SetDefault("facebook.browser_bin", cfg.Facebook.BrowserBin)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)
	v.SetDefault("proxy.urls", cfg.Proxy.URLs)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.memcache_addr", cfg.Cache.MemcacheAddr)
	v.SetDefault("cache.rate_limit_block", cfg.Cache.RateLimitBlock)

	v.SetDefault("history.mongo.enabled", cfg.History.Mongo.Enabled)
	v.SetDefault("history.mongo.uri", cfg.History.Mongo.URI)
	v.SetDefault("history.mongo.database", cfg.History.Mongo.Database)
	v.SetDefault("history.mongo.collection", cfg.History.Mongo.Collection)
	v.SetDefault("history.redis.enabled", cfg.History.Redis.Enabled)
	v.SetDefault("history.redis.addr", cfg.History.Redis.Addr)
	v.SetDefault("history.redis.password", cfg.History.Redis.Password)
	v.SetDefault("history.redis.db", cfg.History.Redis.DB)
	v.SetDefault("history.redis.stream_prefix", cfg.History.Redis.StreamPrefix)
	v.SetDefault("history.redis.stream_count", cfg.History.Redis.StreamCount)
	v.SetDefault("history.redis.stream_max_len", cfg.History.Redis.StreamMaxLen)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
