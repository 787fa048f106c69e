package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/joshuxchn/qloo/internal/config"
	"github.com/joshuxchn/qloo/internal/redact"
	"github.com/joshuxchn/qloo/internal/store"
)

// Open creates a connection pool for cfg and verifies it with a ping bounded
// by cfg.ConnectTimeout. Every session runs with cfg.StatementTimeout as its
// statement_timeout. An unreachable database yields store.ErrConnection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "postgres"))

	connConfig, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %s", redact.Error(err))
	}

	if cfg.StatementTimeout > 0 {
		connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	if cfg.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	db := stdlib.OpenDB(*connConfig)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		log.Error("failed to ping database",
			slog.String("database_url", redact.DatabaseURL(cfg.URL)),
			slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: failed to ping database: %w", store.ErrConnection, err)
	}

	log.Info("database connection established",
		slog.String("database_url", redact.DatabaseURL(cfg.URL)),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Duration("statement_timeout", cfg.StatementTimeout))
	return db, nil
}
