package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "1.0.0"

// Config is the root configuration for SecondPrice.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"   yaml:"scraper"`
	Carousell CarousellConfig `mapstructure:"carousell" yaml:"carousell"`
	Facebook  FacebookConfig  `mapstructure:"facebook"  yaml:"facebook"`
	Proxy     ProxyConfig     `mapstructure:"proxy"     yaml:"proxy"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	History   HistoryConfig   `mapstructure:"history"   yaml:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port             int           `mapstructure:"port"              yaml:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"      yaml:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"     yaml:"write_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"  yaml:"shutdown_timeout"`
	PlatformDeadline time.Duration `mapstructure:"platform_deadline" yaml:"platform_deadline"`
}

// ScraperConfig holds settings shared by every platform scraper.
type ScraperConfig struct {
	RetryCount     int           `mapstructure:"retry_count"     yaml:"retry_count"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	Accept         string        `mapstructure:"accept"          yaml:"accept"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`
	RateLimit      float64       `mapstructure:"rate_limit"      yaml:"rate_limit"` // requests per second per host, 0 disables
	RateBurst      int           `mapstructure:"rate_burst"      yaml:"rate_burst"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
}

// CarousellConfig configures the HTTP-based Carousell scraper.
type CarousellConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	BaseURL     string `mapstructure:"base_url"     yaml:"base_url"`
	DefaultSort string `mapstructure:"default_sort" yaml:"default_sort"`
}

// FacebookConfig configures the browser-based Facebook Marketplace scraper.
type FacebookConfig struct {
	Enabled        bool   `mapstructure:"enabled"         yaml:"enabled"`
	BaseURL        string `mapstructure:"base_url"        yaml:"base_url"`
	LoginURL       string `mapstructure:"login_url"       yaml:"login_url"`
	Location       string `mapstructure:"location"        yaml:"location"`
	Email          string `mapstructure:"email"           yaml:"email"`
	Password       string `mapstructure:"password"        yaml:"password"`
	Headless       bool   `mapstructure:"headless"        yaml:"headless"`
	Stealth        bool   `mapstructure:"stealth"         yaml:"stealth"`
	ScrollStep     int    `mapstructure:"scroll_step"     yaml:"scroll_step"`
	ViewportWidth  int    `mapstructure:"viewport_width"  yaml:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height" yaml:"viewport_height"`
	BrowserBin     string `mapstructure:"browser_bin"     yaml:"browser_bin"`
}

// HasCredentials reports whether a login can be attempted.
func (c FacebookConfig) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// ProxyConfig controls proxy rotation for HTTP scrapers.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// CacheConfig controls where rate-limit blocks are remembered.
type CacheConfig struct {
	Backend        string        `mapstructure:"backend"          yaml:"backend"` // memory, memcache
	MemcacheAddr   string        `mapstructure:"memcache_addr"    yaml:"memcache_addr"`
	RateLimitBlock time.Duration `mapstructure:"rate_limit_block" yaml:"rate_limit_block"`
}

// HistoryConfig controls where search events are recorded.
type HistoryConfig struct {
	Mongo MongoConfig `mapstructure:"mongo" yaml:"mongo"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// MongoConfig configures the MongoDB search-history collection.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// RedisConfig configures the Redis search-event streams.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"        yaml:"enabled"`
	Addr         string `mapstructure:"addr"           yaml:"addr"`
	Password     string `mapstructure:"password"       yaml:"password"`
	DB           int    `mapstructure:"db"             yaml:"db"`
	StreamPrefix string `mapstructure:"stream_prefix"  yaml:"stream_prefix"`
	StreamCount  int    `mapstructure:"stream_count"   yaml:"stream_count"`
	StreamMaxLen int64  `mapstructure:"stream_max_len" yaml:"stream_max_len"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             5000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     2 * time.Minute,
			ShutdownTimeout:  10 * time.Second,
			PlatformDeadline: 45 * time.Second,
		},
		Scraper: ScraperConfig{
			RetryCount:     3,
			RetryDelay:     2 * time.Second,
			Timeout:        30 * time.Second,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",
			Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			AcceptLanguage: "en-US,en;q=0.5",
			RateLimit:      1,
			RateBurst:      2,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
		},
		Carousell: CarousellConfig{
			Enabled:     true,
			BaseURL:     "https://hk.carousell.com",
			DefaultSort: "popular",
		},
		Facebook: FacebookConfig{
			Enabled:        true,
			BaseURL:        "https://www.facebook.com/marketplace",
			LoginURL:       "https://www.facebook.com/login",
			Location:       "hongkong",
			Headless:       true,
			Stealth:        true,
			ScrollStep:     100,
			ViewportWidth:  1280,
			ViewportHeight: 800,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Cache: CacheConfig{
			Backend:        "memory",
			MemcacheAddr:   "localhost:11211",
			RateLimitBlock: 5 * time.Minute,
		},
		History: HistoryConfig{
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "secondprice",
				Collection: "search_history",
			},
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				StreamPrefix: "secondprice:searches",
				StreamCount:  1,
				StreamMaxLen: 10000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
