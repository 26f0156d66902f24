package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/shift-bots/pkg/config"
)

// NewPostgres opens the shift alert database and pings it.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// EnsureShiftAlertSchema creates the shift_alerts table when missing.
func EnsureShiftAlertSchema(ctx context.Context, db *sqlx.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS shift_alerts (
	id UUID PRIMARY KEY,
	calendar_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	summary TEXT NOT NULL,
	starts_at TEXT NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure shift_alerts schema: %w", err)
	}
	return nil
}
