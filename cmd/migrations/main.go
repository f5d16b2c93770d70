package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/vncsmyrnk/grantdesk/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/grantdesk/internal/config"
)

const usage = `usage: migrations <command>

commands:
  up          apply all pending migrations
  down        roll back every migration
  steps N     apply (N > 0) or roll back (N < 0) N migrations
  version     print the current schema version
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadJob()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	m, err := postgres.NewMigrator(cfg.Postgres.URL())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		var n int
		n, err = strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatalf("steps: %v", err)
		}
		err = m.Steps(n)
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("No migration applied.")
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Schema at version %d (dirty: %t).\n", version, dirty)
}
