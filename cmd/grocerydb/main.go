// Package main implements grocerydb, a command-line tool that applies the
// database migrations and runs a demonstration of the grocery list store
// against the configured PostgreSQL database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joshuxchn/qloo/internal/config"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/platform/postgres"
)

// options are the parsed command-line flags.
type options struct {
	migrate string
	demo    bool
	envFile string
}

var errNothingToDo = errors.New("nothing to do: pass -migrate or -demo")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "grocerydb: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("grocerydb", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.migrate, "migrate", "",
		"Run a migration command: up, down, status, reset or version")
	fs.BoolVar(&opts.demo, "demo", false,
		"Run the demo scenario and print the resulting list as JSON")
	fs.StringVar(&opts.envFile, "env-file", ".env",
		"Load environment variables from this file if it exists")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.migrate == "" && !opts.demo {
		return options{}, errNothingToDo
	}
	return opts, nil
}

// loadEnvFile loads path into the environment. A missing file is not an
// error; variables already set are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.App)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)
	ctx = logger.WithRequestID(ctx, uuid.NewString())

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if opts.migrate != "" {
		if err := postgres.Migrate(ctx, db, opts.migrate, log); err != nil {
			return err
		}
	}

	if opts.demo {
		report, err := runDemo(ctx, newDemoServices(db, cfg.Auth, log))
		if err != nil {
			return fmt.Errorf("demo failed: %w", err)
		}
		return writeReport(stdout, report)
	}
	return nil
}
