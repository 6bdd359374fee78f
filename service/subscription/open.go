package subscription

import (
	"context"
	"log/slog"
)

// Options selects the registry backend. Redis wins over SQLite; with neither
// set the registry lives in memory and does not survive a restart.
type Options struct {
	StoragePath    string
	RedisURL       string
	RedisKeyPrefix string
}

func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	switch {
	case opts.RedisURL != "":
		logger.Info("Using redis subscription store", "prefix", opts.RedisKeyPrefix)
		store, err := NewRedisStore(ctx, opts.RedisURL, opts.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	case opts.StoragePath != "":
		logger.Info("Using sqlite subscription store", "path", opts.StoragePath)
		store, err := NewSQLiteStore(opts.StoragePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		logger.Info("Using in-memory subscription store, subscriptions are lost on restart")
		return NewMemoryStore(), nil
	}
}
