// Package backend picks the storage implementation named in the config.
package backend

import (
	"context"
	"fmt"

	"masjid-collection/internal/config"
	"masjid-collection/internal/storage"
	"masjid-collection/internal/storage/memory"
	"masjid-collection/internal/storage/postgres"
)

func Open(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.DBConn, cfg.DBRetries)
		if err != nil {
			return nil, err
		}
		return postgres.NewStorage(pool), nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}
