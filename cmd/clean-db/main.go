package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Development helper: wipes the accounts table so the seeder can start
// from a clean slate. Never point this at a production database.
func main() {
	ctx := context.Background()

	connStr := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		connStr = os.Args[1]
	}
	if connStr == "" {
		log.Fatal("Usage: clean-db <connection-string> (or set DATABASE_URL)")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("Cleaning database...")

	if _, err := db.ExecContext(ctx, "TRUNCATE TABLE accounts CASCADE"); err != nil {
		log.Fatalf("Failed to truncate accounts: %v", err)
	}
	fmt.Println("✓ Cleared accounts")

	fmt.Println("Done. Run `server seed` to restore the default accounts.")
}
