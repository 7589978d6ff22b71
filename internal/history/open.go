package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IshaanNene/SecondPrice/internal/config"
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Open builds a Multi from the enabled backends. A backend that cannot be
// reached is left out and reported in the returned error; the Multi is
// always usable.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (*Multi, error) {
	var (
		recorders []Recorder
		errs      []error
	)

	if cfg.Mongo.Enabled {
		m, err := NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			errs = append(errs, &types.StorageError{Backend: "mongodb", Err: err})
		} else {
			recorders = append(recorders, m)
		}
	}

	if cfg.Redis.Enabled {
		r := NewRedisStream(cfg.Redis, logger)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close(ctx)
			errs = append(errs, &types.StorageError{Backend: "redis", Err: err})
		} else {
			recorders = append(recorders, r)
		}
	}

	return NewMulti(logger, recorders...), errors.Join(errs...)
}
