// Command migrate manages the Postgres schema outside the server process.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/example/learnboard/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version")
		dir     = flag.String("dir", "./migrations", "Migrations directory")
	)
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DBAdapter != "postgres" {
		log.Fatalf("migrations only apply to PostgreSQL; current adapter: %s", cfg.DBAdapter)
	}

	m, cleanup, err := newMigrate(*dir, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("migrate setup: %v", err)
	}
	defer cleanup()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migration up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migration down failed: %v", err)
		}
		fmt.Println("migrations rolled back")
	case "version":
		v, dirty, err := m.Version()
		if err == migrate.ErrNilVersion {
			fmt.Println("no migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("version check failed: %v", err)
		}
		if dirty {
			log.Fatalf("database is in a dirty state (version %d)", v)
		}
		fmt.Printf("current migration version: %d\n", v)
	default:
		log.Fatalf("unknown command: %s (supported: up, down, version)", *command)
	}
}

func newMigrate(dir, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, func() { db.Close() }, nil
}
