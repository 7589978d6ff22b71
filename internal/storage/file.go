package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// CSVHeader is the fixed column order of CSV exports.
var CSVHeader = []string{
	"id", "title", "price", "currency", "condition", "category",
	"source", "url", "images", "location", "createdAt",
}

// --- JSON ---

// JSONExporter buffers listings and writes them as one JSON array on Close.
type JSONExporter struct {
	w        io.WriteCloser
	listings []types.Listing
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewJSON creates a JSON array exporter writing to w.
func NewJSON(w io.WriteCloser, logger *slog.Logger) *JSONExporter {
	return &JSONExporter{
		w:        w,
		listings: []types.Listing{},
		logger:   logger.With("component", "json_export"),
	}
}

func (e *JSONExporter) Name() string { return "json" }

func (e *JSONExporter) Store(listings []types.Listing) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listings = append(e.listings, listings...)
	e.logger.Debug("listings buffered", "count", len(listings), "total", len(e.listings))
	return nil
}

func (e *JSONExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.w.Close()

	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e.listings); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	e.logger.Info("JSON written", "listings", len(e.listings))
	return nil
}

// --- JSONL ---

// JSONLExporter streams one listing per line.
type JSONLExporter struct {
	w      io.WriteCloser
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONL creates a newline-delimited JSON exporter writing to w.
func NewJSONL(w io.WriteCloser, logger *slog.Logger) *JSONLExporter {
	return &JSONLExporter{
		w:      w,
		enc:    json.NewEncoder(w),
		logger: logger.With("component", "jsonl_export"),
	}
}

func (e *JSONLExporter) Name() string { return "jsonl" }

func (e *JSONLExporter) Store(listings []types.Listing) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, l := range listings {
		if err := e.enc.Encode(l); err != nil {
			return fmt.Errorf("encode JSONL: %w", err)
		}
		e.count++
	}
	return nil
}

func (e *JSONLExporter) Close() error {
	e.logger.Info("JSONL written", "listings", e.count)
	return e.w.Close()
}

// --- CSV ---

// CSVExporter writes listings as rows under CSVHeader.
type CSVExporter struct {
	w      io.WriteCloser
	writer *csv.Writer
	header bool
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSV creates a CSV exporter writing to w.
func NewCSV(w io.WriteCloser, logger *slog.Logger) *CSVExporter {
	return &CSVExporter{
		w:      w,
		writer: csv.NewWriter(w),
		logger: logger.With("component", "csv_export"),
	}
}

func (e *CSVExporter) Name() string { return "csv" }

func (e *CSVExporter) Store(listings []types.Listing) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.header {
		if err := e.writer.Write(CSVHeader); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		e.header = true
	}
	for _, l := range listings {
		if err := e.writer.Write(csvRow(l)); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		e.count++
	}

	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// An empty export still gets its header.
	if !e.header {
		_ = e.writer.Write(CSVHeader)
		e.header = true
	}
	e.writer.Flush()
	e.logger.Info("CSV written", "listings", e.count)
	if err := e.writer.Error(); err != nil {
		e.w.Close()
		return err
	}
	return e.w.Close()
}

func csvRow(l types.Listing) []string {
	location, _ := l.Metadata["location"].(string)
	return []string{
		l.ID,
		l.Title,
		types.FormatPrice(l.Price),
		l.Currency,
		l.Condition,
		l.Category,
		l.Source,
		l.URL,
		strings.Join(l.Images, "|"),
		location,
		l.CreatedAt,
	}
}

// --- Factory ---

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Open creates an exporter for format ("json", "jsonl" or "csv") writing to
// path. An empty path or "-" writes to stdout.
func Open(format, path string, logger *slog.Logger) (Exporter, error) {
	if _, err := New(format, nopCloser{io.Discard}, logger); err != nil {
		return nil, err
	}
	var w io.WriteCloser = nopCloser{os.Stdout}
	if path != "" && path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}
		w = f
	}
	return New(format, w, logger)
}

// New creates the exporter for format writing to w.
func New(format string, w io.WriteCloser, logger *slog.Logger) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return NewJSON(w, logger), nil
	case "jsonl":
		return NewJSONL(w, logger), nil
	case "csv":
		return NewCSV(w, logger), nil
	default:
		w.Close()
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}
