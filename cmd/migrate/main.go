package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "STOREFRONT_POSTGRES_DSN"
)

var errDSNRequired = errors.New(envPostgresDSN + " (or -dsn) is required")

func main() {
	if err := run(os.Args[1:], os.LookupEnv, os.Stdout); err != nil {
		fail("%v", err)
	}
}

// run разбирает флаги, открывает базу и выполняет одну команду: up, down, status или seed.
func run(args []string, lookup func(string) (string, bool), stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	direction := fs.String("direction", "up", "migration direction: up|down|status|seed")
	steps := fs.Int("steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	dsn := fs.String("dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := strings.ToLower(strings.TrimSpace(*direction))
	switch cmd {
	case "up", "down", "status", "seed":
	default:
		return fmt.Errorf("unsupported direction: %s (use up|down|status|seed)", *direction)
	}

	target := strings.TrimSpace(*dsn)
	if target == "" {
		if v, ok := lookup(envPostgresDSN); ok {
			target = strings.TrimSpace(v)
		}
	}
	if target == "" {
		return errDSNRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, target)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	switch cmd {
	case "up":
		if err := store.MigrateUp(ctx, *steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		n := *steps
		if n <= 0 {
			n = 1
		}
		if err := store.MigrateDown(ctx, n); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	case "seed":
		n, err := seedCatalog(ctx, store)
		if err != nil {
			return fmt.Errorf("seed catalog failed: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "seed ok: products=%d\n", n)
		return nil
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "%s ok: version=%d applied=%d\n", cmd, version, count)
	return nil
}

// seedCatalog загружает демонстрационный каталог; повторный запуск обновляет строки.
func seedCatalog(ctx context.Context, store *postgres.Store) (int, error) {
	categories, products := memory.DemoCatalog()
	for _, c := range categories {
		if err := postgres.UpsertCategory(ctx, store, c); err != nil {
			return 0, fmt.Errorf("category %s: %w", c.ID, err)
		}
	}
	for _, p := range products {
		if err := postgres.UpsertProduct(ctx, store, p); err != nil {
			return 0, fmt.Errorf("product %s: %w", p.ID, err)
		}
	}
	return len(products), nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
