package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/SecondPrice/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "secondprice",
		Short: "SecondPrice: second-hand marketplace search",
		Long: `SecondPrice searches second-hand marketplaces and merges the results.

Platforms:
  carousell   Carousell Hong Kong, fetched over HTTP
  facebook    Facebook Marketplace, rendered in headless Chromium

Run "secondprice serve" for the HTTP API or "secondprice search" for a
one-off query from the terminal.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(productCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SecondPrice %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Port:               %d\n", cfg.Server.Port)
			fmt.Printf("  Platform Deadline:  %s\n", cfg.Server.PlatformDeadline)
			fmt.Printf("  Shutdown Timeout:   %s\n", cfg.Server.ShutdownTimeout)
			fmt.Printf("\nScraper:\n")
			fmt.Printf("  Retry Count:        %d\n", cfg.Scraper.RetryCount)
			fmt.Printf("  Retry Delay:        %s\n", cfg.Scraper.RetryDelay)
			fmt.Printf("  Timeout:            %s\n", cfg.Scraper.Timeout)
			fmt.Printf("  Rate Limit:         %.2f req/s\n", cfg.Scraper.RateLimit)
			fmt.Printf("\nCarousell:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Carousell.Enabled)
			fmt.Printf("  Base URL:           %s\n", cfg.Carousell.BaseURL)
			fmt.Printf("  Default Sort:       %s\n", cfg.Carousell.DefaultSort)
			fmt.Printf("\nFacebook:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Facebook.Enabled)
			fmt.Printf("  Base URL:           %s\n", cfg.Facebook.BaseURL)
			fmt.Printf("  Location:           %s\n", cfg.Facebook.Location)
			fmt.Printf("  Headless:           %v\n", cfg.Facebook.Headless)
			fmt.Printf("  Credentials:        %v\n", cfg.Facebook.HasCredentials())
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Rotation:           %s\n", cfg.Proxy.Rotation)
			fmt.Printf("  Count:              %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Backend:            %s\n", cfg.Cache.Backend)
			fmt.Printf("\nHistory:\n")
			fmt.Printf("  MongoDB:            %v\n", cfg.History.Mongo.Enabled)
			fmt.Printf("  Redis:              %v\n", cfg.History.Redis.Enabled)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Path:               %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
