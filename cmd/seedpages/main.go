// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command seedpages inserts the sample marketing pages into the database.
// Pages whose slug already exists are left untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/olegiv/greenpower-cms/internal/config"
	"github.com/olegiv/greenpower-cms/internal/store"
)

const defaultDBPath = "./data/greenpower.db"

func main() {
	dbPath := flag.String("db", "", "SQLite database path (default: $"+config.EnvPrefix+"DB_PATH or "+defaultDBPath+")")
	flag.Parse()

	if err := run(resolveDBPath(*dbPath)); err != nil {
		slog.Error("seeding pages failed", "error", err)
		os.Exit(1)
	}
}

// resolveDBPath prefers the flag, then the environment, then the default.
func resolveDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	_ = godotenv.Load()
	if v := os.Getenv(config.EnvPrefix + "DB_PATH"); v != "" {
		return v
	}
	return defaultDBPath
}

func run(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	result, err := store.SeedSamplePages(context.Background(), db)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded pages into %s\n", dbPath)
	fmt.Printf("  inserted: %d %s\n", len(result.Inserted), list(result.Inserted))
	fmt.Printf("  skipped:  %d %s\n", len(result.Skipped), list(result.Skipped))
	return nil
}

func list(slugs []string) string {
	if len(slugs) == 0 {
		return ""
	}
	return "(" + strings.Join(slugs, ", ") + ")"
}
