// Package history records what was searched and how each platform answered.
// Listings themselves are never stored.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Event describes one search request.
type Event struct {
	ID         string            `json:"id"          bson:"_id"`
	Keyword    string            `json:"keyword"     bson:"keyword"`
	Platforms  []string          `json:"platforms"   bson:"platforms"`
	Statuses   map[string]string `json:"statuses"    bson:"statuses"`
	Counts     map[string]int    `json:"counts"      bson:"counts"`
	Errors     map[string]string `json:"errors"      bson:"errors,omitempty"`
	TotalCount int               `json:"total_count" bson:"total_count"`
	Limit      int               `json:"limit"       bson:"limit"`
	SortBy     string            `json:"sort_by"     bson:"sort_by"`
	SortOrder  string            `json:"sort_order"  bson:"sort_order"`
	DurationMS int64             `json:"duration_ms" bson:"duration_ms"`
	At         time.Time         `json:"at"          bson:"at"`
}

// NewEvent summarises per-platform results, listed in order.
func NewEvent(keyword string, opts types.SearchOptions, order []string, results map[string]types.SearchResult, took time.Duration) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Keyword:    keyword,
		Platforms:  append([]string(nil), order...),
		Statuses:   make(map[string]string, len(order)),
		Counts:     make(map[string]int, len(order)),
		Limit:      opts.EffectiveLimit(),
		SortBy:     opts.SortBy,
		SortOrder:  opts.SortOrder,
		DurationMS: took.Milliseconds(),
		At:         time.Now().UTC(),
	}
	for _, platform := range order {
		res, ok := results[platform]
		if !ok {
			continue
		}
		ev.Statuses[platform] = string(res.Status)
		ev.Counts[platform] = len(res.Listings)
		ev.TotalCount += len(res.Listings)
		if msg := res.ErrorString(); msg != "" {
			if ev.Errors == nil {
				ev.Errors = make(map[string]string)
			}
			ev.Errors[platform] = msg
		}
	}
	return ev
}

// Recorder persists search events.
type Recorder interface {
	Name() string
	Record(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// Multi writes every event to all of its recorders.
type Multi struct {
	recorders []Recorder
	logger    *slog.Logger
}

// NewMulti fans out to recorders.
func NewMulti(logger *slog.Logger, recorders ...Recorder) *Multi {
	return &Multi{
		recorders: recorders,
		logger:    logger.With("component", "multi_history"),
	}
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of recorders.
func (m *Multi) Len() int { return len(m.recorders) }

// Record tries every recorder and joins their failures.
func (m *Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Record(ctx, ev); err != nil {
			m.logger.Error("record failed", "recorder", r.Name(), "error", err)
			errs = append(errs, &types.StorageError{Backend: r.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(ctx); err != nil {
			errs = append(errs, &types.StorageError{Backend: r.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Name() string                        { return "nop" }
func (Nop) Record(context.Context, Event) error { return nil }
func (Nop) Close(context.Context) error         { return nil }
