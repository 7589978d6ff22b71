package history

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/SecondPrice/internal/config"
)

// StreamField is the stream entry field holding the base64 JSON event.
const StreamField = "b64_search"

// RedisStream appends events to one of StreamCount streams named
// {prefix}:{n}, so several consumers can share the load.
type RedisStream struct {
	client *redis.Client
	cfg    config.RedisConfig
	logger *slog.Logger
}

// NewRedisStream creates the client. Call Ping to check connectivity.
func NewRedisStream(cfg config.RedisConfig, logger *slog.Logger) *RedisStream {
	if cfg.StreamCount < 1 {
		cfg.StreamCount = 1
	}
	return &RedisStream{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		cfg:    cfg,
		logger: logger.With("component", "redis_history"),
	}
}

func (r *RedisStream) Name() string { return "redis" }

// Ping checks the server is reachable.
func (r *RedisStream) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Stream picks the stream an event goes to.
func (r *RedisStream) Stream() string {
	return r.cfg.StreamPrefix + ":" + strconv.Itoa(rand.IntN(r.cfg.StreamCount))
}

func (r *RedisStream) Record(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.Stream(),
		Values: map[string]any{
			StreamField: base64.StdEncoding.EncodeToString(payload),
		},
	}
	if r.cfg.StreamMaxLen > 0 {
		args.MaxLen = r.cfg.StreamMaxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", args.Stream, err)
	}
	return nil
}

// Recent reads up to limit newest events across every stream, newest first.
// An empty keyword matches all searches. Entries that do not decode are
// skipped.
func (r *RedisStream) Recent(ctx context.Context, keyword string, limit int64) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []Event
	for n := range r.cfg.StreamCount {
		stream := r.cfg.StreamPrefix + ":" + strconv.Itoa(n)
		entries, err := r.client.XRevRange(ctx, stream, "+", "-").Result()
		if err != nil {
			return nil, fmt.Errorf("redis xrevrange %s: %w", stream, err)
		}
		for _, entry := range entries {
			ev, err := DecodeEntry(entry.Values)
			if err != nil {
				r.logger.Warn("skipping stream entry", "stream", stream, "id", entry.ID, "error", err)
				continue
			}
			if keyword == "" || ev.Keyword == keyword {
				events = append(events, ev)
			}
		}
	}

	slices.SortStableFunc(events, func(a, b Event) int { return b.At.Compare(a.At) })
	if int64(len(events)) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *RedisStream) Close(ctx context.Context) error {
	return r.client.Close()
}

// DecodeEntry reverses Record for one stream entry's values.
func DecodeEntry(values map[string]any) (Event, error) {
	var ev Event
	raw, ok := values[StreamField].(string)
	if !ok {
		return ev, fmt.Errorf("stream entry has no %s field", StreamField)
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return ev, fmt.Errorf("decode base64: %w", err)
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
