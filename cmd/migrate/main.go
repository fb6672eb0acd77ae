// Package main applies the SQL migrations to the configured database.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"stocklot/internal/infrastructure/storage/postgres"
	"stocklot/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	dsn := mustEnv("DATABASE_URL")
	dir := getEnv("MIGRATIONS_DIR", "migrations")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalw("failed to list migrations", "error", err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		log.Fatalw("no migrations found", "dir", dir)
	}

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			log.Fatalw("failed to read migration", "file", file, "error", err)
		}

		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			log.Fatalw("migration failed", "file", file, "error", err)
		}

		log.Infow("migration applied", "file", filepath.Base(file))
	}

	log.Info("all migrations applied")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return val
}
