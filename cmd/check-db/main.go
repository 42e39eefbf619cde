// Package main is a diagnostic tool for checking database connectivity and schema state.
// It loads the server configuration, connects, reports the migration version and prints
// row counts for each CreaVibe table. It exits non-zero on any failure so it can gate a
// deployment step.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/creavibe/creavibe/internal/config"
	"github.com/creavibe/creavibe/internal/db"
)

var tables = []string{
	"profiles",
	"api_tokens",
	"api_usage",
	"projects",
	"notification_preferences",
	"theme_preferences",
	"cookie_consents",
	"trusted_ips",
	"audit_logs",
	"subscriptions",
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()
	fmt.Printf("Connected to %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Println("Schema is dirty; run 'server migrate force VERSION' after fixing the failed migration")
	}

	fmt.Println("\n=== TABLES ===")
	failed := false
	for _, table := range tables {
		var count int64
		// table names are fixed above, never user input
		if err := database.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil { // #nosec G202
			fmt.Printf("%-26s ERROR: %v\n", table, err)
			failed = true
			continue
		}
		fmt.Printf("%-26s %d\n", table, count)
	}
	if failed || dirty {
		os.Exit(1)
	}
}
