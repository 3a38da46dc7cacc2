package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-image-studio/internal/config"
)

// Slot is what every backend in this package provides. It has the same
// method set as history.Slot, so any value OpenSlot returns can be passed to
// history.New. It is declared here because history's tests import repo.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
	Watch(ctx context.Context, onChange func()) (func(), error)
}

// OpenSlot builds the history slot selected by cfg.Backend. The returned
// close function releases the backend's connections.
func OpenSlot(ctx context.Context, cfg config.HistoryConfig) (Slot, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return NewMemoryBus().Slot(cfg.Key), noop, nil

	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("history dir: %w", err)
		}
		return NewFileSlot(cfg.Path), noop, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("history dir: %w", err)
		}
		db, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return NewSQLiteSlot(db, cfg.Key, DefaultPollInterval), sqlDB.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisSlot(client, cfg.Key), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
}
