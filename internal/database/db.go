// Package database wraps the PostgreSQL pool and the repositories for
// hosts, per-account stream tables, scheduled tasks, users and chat ids.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const keepAliveInterval = 15 * time.Minute

// Config holds the connection settings.
type Config struct {
	User     string
	Password string
	// DSN is the host[:port]/dbname part of the connection URL.
	DSN string
}

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s", cfg.User, cfg.Password, cfg.DSN)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "database").Logger()
	log.Info().Msg("connected to PostgreSQL")

	return &DB{Pool: pool, log: log}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info().Msg("database connection closed")
	}
}

// RunMigrations creates the fixed tables. The per-account order,
// balance and record tables are created lazily on first use.
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS hosts (
			alias      TEXT NOT NULL,
			api_key    TEXT NOT NULL UNIQUE,
			secret_key TEXT NOT NULL,
			tg_group   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS scheduled_tasks (
			for_username      TEXT NOT NULL,
			token_name        TEXT NOT NULL,
			request_id        TEXT NOT NULL,
			side              TEXT NOT NULL,
			monitor_time_secs INTEGER NOT NULL,
			col_id            INTEGER NOT NULL,
			status            INTEGER NOT NULL,
			task_type         INTEGER NOT NULL,
			order_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
			money             DOUBLE PRECISION NOT NULL DEFAULT 0,
			quantity          DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_time      TIMESTAMP,
			last_begin_time   TIMESTAMP,
			last_end_time     TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_request ON scheduled_tasks(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_status ON scheduled_tasks(status)`,
		`CREATE TABLE IF NOT EXISTS cb_user (
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			validity      BIGINT NOT NULL DEFAULT 0,
			bearer_token  TEXT NOT NULL DEFAULT '',
			user_role     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tg_chats (
			chat_name TEXT NOT NULL UNIQUE,
			chat_id   BIGINT NOT NULL
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.log.Info().Msg("database migrations completed")
	return nil
}

// KeepAlive pings the database every 15 minutes until the context is
// canceled. A failed ping is retried after a second.
func (db *DB) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.ping(ctx); err != nil {
				db.log.Error().Err(err).Msg("database keepalive failed, retrying")
				time.Sleep(time.Second)
				if err := db.ping(ctx); err != nil {
					db.log.Error().Err(err).Msg("database keepalive retry failed")
				}
			}
		}
	}
}

func (db *DB) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := db.Pool.Exec(pingCtx, "SELECT 1")
	return err
}

// Repository bundles all query groups over one pool.
type Repository struct {
	db *DB
}

// NewRepository returns a repository over db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}
