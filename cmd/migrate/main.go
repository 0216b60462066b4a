package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/yourusername/lms-api/internal/config"
	"github.com/yourusername/lms-api/pkg/database"
)

const usage = `usage: migrate <command> [arg]

commands:
  up            apply all pending migrations
  down [n]      roll back n migrations (default 1)
  force <v>     set the version without running migrations, clearing a dirty state
  version       print the current version`

// Command migrate applies or rolls back the SQL migrations outside the API process.
func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	// Same configuration sources as the API
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env: %v", err)
	}
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Plain database/sql is enough for golang-migrate
	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	m, err := database.NewMigrator(db)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(m, os.Args[1], os.Args[2:]); err != nil {
		log.Fatal(err)
	}
}

// run executes one migrate command.
func run(m *migrateV4.Migrate, command string, args []string) error {
	switch command {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("down expects a positive step count, got %q", args[0])
			}
			steps = n
		}
		// Negative steps roll back
		return ignoreNoChange(m.Steps(-steps))
	case "force":
		if len(args) == 0 {
			return errors.New("force expects a version")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("failed to force version %d: %w", v, err)
		}
		log.Printf("Forced version %d", v)
		return nil
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrateV4.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

// ignoreNoChange treats an already up-to-date database as success.
func ignoreNoChange(err error) error {
	if errors.Is(err, migrateV4.ErrNoChange) {
		log.Println("No change")
		return nil
	}
	return err
}
