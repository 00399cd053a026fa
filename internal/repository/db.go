package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/config"
)

// DB wraps the postgres pool. Persistence is optional: an empty DSN yields
// a nil DB, and every repository treats a nil DB as a no-op store.
type DB struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewDB connects and pings, or returns (nil, nil) when no DSN is set.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if cfg.DSN == "" {
		logger.Info("no database configured, results will not be persisted")
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{pool: pool, log: logger}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the pool. Safe on nil.
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.pool.Close()
}

// Stats exposes pool statistics for startup logging.
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

func (db *DB) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS game_results (
    game_id     TEXT PRIMARY KEY,
    winner_id   TEXT NOT NULL,
    winner_name TEXT NOT NULL,
    players     INTEGER NOT NULL,
    turns       INTEGER NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS player_results (
    game_id   TEXT NOT NULL REFERENCES game_results(game_id),
    player_id TEXT NOT NULL,
    name      TEXT NOT NULL,
    money     INTEGER NOT NULL,
    bankrupt  BOOLEAN NOT NULL,
    PRIMARY KEY (game_id, player_id)
);`
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
