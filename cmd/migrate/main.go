// Package main applies or rolls back the PostgreSQL batch result schema.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// migrator is the subset of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	force := flag.Int("force", -1, "mark the schema as this version and clear the dirty flag")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Storage.Backend != "postgres" {
		fmt.Fprintf(os.Stderr, "warning: storage.backend is %q; migrating %s anyway\n", cfg.Storage.Backend, cfg.Database.Name)
	}

	m, err := postgres.NewMigrator(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	if err := run(m, *direction, *steps, *force, os.Stdout); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Fprintf(os.Stdout, "[%s]\n", time.Since(start))
}

// run performs one migration command against m and reports the resulting
// schema version to out.
func run(m migrator, direction string, steps, force int, out io.Writer) error {
	if force >= 0 {
		if err := m.Force(force); err != nil {
			return fmt.Errorf("forcing version %d: %w", force, err)
		}
		return report(m, "forced", out)
	}

	var err error
	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		return report(m, "current", out)
	default:
		return fmt.Errorf("invalid direction %q: must be up, down or version", direction)
	}

	switch {
	case errors.Is(err, migrate.ErrNoChange):
		return report(m, "no changes", out)
	case err != nil:
		return err
	}
	return report(m, "migrated "+direction, out)
}

func report(m migrator, what string, out io.Writer) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintf(out, "%s: schema is empty\n", what)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	fmt.Fprintf(out, "%s: version=%d dirty=%v\n", what, version, dirty)
	return nil
}
