package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			price NUMERIC(14, 3),
			stock DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (stock >= 0),
			unit_mode TEXT NOT NULL DEFAULT 'PIECE',
			status TEXT NOT NULL DEFAULT 'ACTIVE'
		);
		CREATE INDEX IF NOT EXISTS products_category_idx ON products (category);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (stream_id, version)
		);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_date TIMESTAMPTZ NOT NULL,
			total NUMERIC(14, 3) NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			buyer_name TEXT NOT NULL DEFAULT '',
			buyer_surname TEXT NOT NULL DEFAULT '',
			buyer_phone TEXT NOT NULL DEFAULT '',
			buyer_address TEXT NOT NULL DEFAULT '',
			version INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS orders_buyer_name_idx ON orders (buyer_name);

		CREATE TABLE IF NOT EXISTS order_lines (
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position INT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			price NUMERIC(14, 3),
			unit_mode TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (order_id, position)
		);
	`)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
