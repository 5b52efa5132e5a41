package config

import (
	"context"
	"fmt"
	"log"

	"resumematch/scanner-web/internal/repositories"
)

// OpenTabStorage builds the tab storage backend named by cfg.Storage.Driver.
// The returned close function releases any connection it opened.
func OpenTabStorage(ctx context.Context, cfg *Config) (repositories.TabStorage, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case "", "memory":
		log.Println("✅ Tab storage: memory")
		return repositories.NewMemoryTabStorage(), noop, nil

	case "file":
		log.Printf("✅ Tab storage: file (%s)\n", cfg.Storage.Dir)
		return repositories.NewFileTabStorage(cfg.Storage.Dir), noop, nil

	case "redis":
		rdb, err := InitRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ Tab storage: redis")
		return repositories.NewRedisTabStorage(rdb, cfg.Janitor.IdleTTL), func() {
			if err := rdb.Close(); err != nil {
				log.Printf("⚠️  Failed to close redis: %v\n", err)
			}
		}, nil

	case "postgres":
		db, err := InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ Tab storage: postgres")
		return repositories.NewPostgresTabStorage(db), func() {
			sqlDB, err := db.DB()
			if err != nil {
				return
			}
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️  Failed to close database: %v\n", err)
			}
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
