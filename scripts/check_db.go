//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"coupon-admin/internal/config"
	"coupon-admin/internal/database"
)

// Connects with the service configuration and reports schema state.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	fmt.Println("\nTables:")
	for _, table := range []string{"operators", "issuance_jobs", "coupons"} {
		var count int64
		err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			fmt.Printf("  - %s: missing (%v)\n", table, err)
			continue
		}
		fmt.Printf("  - %s: %d rows\n", table, count)
	}

	rows, err := pool.Query(ctx, "SELECT status, COUNT(*) FROM issuance_jobs GROUP BY status ORDER BY status")
	if err != nil {
		return
	}
	defer rows.Close()

	fmt.Println("\nJobs by status:")
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  - %s: %d\n", status, count)
	}
}
