package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/SecondPrice/internal/history"
	"github.com/IshaanNene/SecondPrice/internal/storage"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

var (
	searchPlatforms string
	searchLimit     int
	searchSort      string
	searchOrder     string
	searchCategory  string
	searchLocation  string
	searchOutput    string
	searchFormat    string
)

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search every enabled marketplace and export the merged results",
		Long: `Search the enabled platforms concurrently, merge the listings, sort
them by price, and write them as JSON, JSONL or CSV.

A per-platform summary is printed to stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().StringVar(&searchPlatforms, "platforms", "", "comma-separated platform ids (default: all enabled)")
	cmd.Flags().IntVarP(&searchLimit, "limit", "l", types.DefaultLimit, "results per platform and in total")
	cmd.Flags().StringVar(&searchSort, "sort", types.SortByPrice, "merged ordering: price, or anything else to keep platform order")
	cmd.Flags().StringVar(&searchOrder, "order", types.OrderAsc, "sort order: asc, desc")
	cmd.Flags().StringVar(&searchCategory, "category", "", "platform category path")
	cmd.Flags().StringVar(&searchLocation, "location", "", "location for location-scoped platforms")
	cmd.Flags().StringVarP(&searchOutput, "output", "o", "-", "output file path, - for stdout")
	cmd.Flags().StringVarP(&searchFormat, "format", "f", "json", "output format: json, jsonl, csv")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))
	if keyword == "" {
		return fmt.Errorf("%w: keyword", types.ErrMissingParameter)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	exporter, err := storage.Open(searchFormat, searchOutput, logger)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		exporter.Close()
		return err
	}
	defer closeApp(a)

	opts := types.SearchOptions{
		Limit:      searchLimit,
		TotalLimit: searchLimit,
		SortBy:     searchSort,
		SortOrder:  strings.ToLower(searchOrder),
		Category:   searchCategory,
		Location:   searchLocation,
		Platforms:  splitList(searchPlatforms),
	}

	start := time.Now()
	got := a.manager.SearchMerged(ctx, keyword, opts)

	if err := exporter.Store(got.Listings); err != nil {
		exporter.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := exporter.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nSearch for %q complete in %s\n", keyword, time.Since(start).Round(time.Millisecond))
	for _, p := range got.Platforms {
		res := got.Results[p]
		line := fmt.Sprintf("   %-10s %-9s %3d listings  %s", p, res.Status, len(res.Listings), res.Duration.Round(time.Millisecond))
		if e := res.ErrorString(); e != "" {
			line += "  " + e
		}
		fmt.Fprintln(os.Stderr, line)
	}
	fmt.Fprintf(os.Stderr, "   Returned:  %d listings (%s)\n", len(got.Listings), exporter.Name())
	return nil
}

// productCmd creates the "product" subcommand.
func productCmd() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "product [url]",
		Short: "Fetch one listing's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if platform == "" {
				return fmt.Errorf("%w: --platform", types.ErrMissingParameter)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(a)

			product, err := a.manager.GetProductDetails(ctx, platform, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(product)
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "platform id: carousell, facebook")
	return cmd
}

// historyCmd creates the "history" subcommand, reading recent searches
// back from MongoDB or the Redis streams.
func historyCmd() *cobra.Command {
	var (
		keyword string
		limit   int64
		source  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches recorded in MongoDB or Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var events []history.Event
			switch source {
			case "mongo":
				store, err := history.NewMongo(ctx, cfg.History.Mongo, logger)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close(context.Background())
				if events, err = store.Recent(ctx, keyword, limit); err != nil {
					return err
				}
			case "redis":
				store := history.NewRedisStream(cfg.History.Redis, logger)
				defer store.Close(context.Background())
				if events, err = store.Recent(ctx, keyword, limit); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown history source %q (want mongo or redis)", source)
			}
			for _, ev := range events {
				fmt.Printf("%s  %-24q %4d listings  %5dms  %v\n",
					ev.At.Format(time.RFC3339), ev.Keyword, ev.TotalCount, ev.DurationMS, ev.Statuses)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "only searches for this keyword")
	cmd.Flags().Int64VarP(&limit, "limit", "l", 20, "number of searches to show")
	cmd.Flags().StringVarP(&source, "source", "s", "mongo", "history backend: mongo, redis")
	return cmd
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.logger.Error("cleanup failed", "error", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
