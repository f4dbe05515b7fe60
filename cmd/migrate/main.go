package main

import (
	"errors"
	"log"
	"os"

	"tablesafe/backend/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Usage: migrate [up|down]. Defaults to up.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	m, err := migrate.New("file://db/migrations", mustDatabaseURL())
	if err != nil {
		log.Fatalf("migration setup failed: %v", err)
	}
	defer m.Close()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatalf("unknown direction %q, want up or down", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Printf("database migrations applied (%s)", direction)
}

func mustDatabaseURL() string {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	return dsn
}
