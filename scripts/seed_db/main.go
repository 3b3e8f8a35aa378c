// seed_db fills a database with users and transactions for trying out exports.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"csvgrid/internal/driver"
)

var schemas = map[string][]string{
	driver.SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			email TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			score REAL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			amount NUMERIC,
			currency TEXT,
			status TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_id ON transactions (user_id)`,
	},
	driver.MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name TEXT,
			email TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			score DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT,
			amount DECIMAL(15, 2),
			currency VARCHAR(3),
			status VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_user_id (user_id)
		)`,
	},
}

func main() {
	kind := flag.String("driver", driver.SQLite, "sqlite or mysql")
	dsn := flag.String("dsn", "./app.db", "connection string")
	users := flag.Int("users", 10000, "users to create")
	transactions := flag.Int("transactions", 50000, "transactions to create")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := seed(context.Background(), *kind, *dsn, *users, *transactions); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema and data prep complete.")
}

func seed(ctx context.Context, kind, dsn string, users, transactions int) error {
	stmts, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unsupported driver %q", kind)
	}
	d := driver.NewSQLDriver(kind, dsn)
	defer d.Close()

	// Wait for DB to be ready
	for i := 0; i < 30; i++ {
		if err := d.Ping(ctx); err == nil {
			break
		}
		slog.Info("Waiting for database...", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}
	db, err := d.DB(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	err = fill(ctx, db, "users", "INSERT INTO users (name, email, created_at, score) VALUES ", "(?, ?, ?, ?)", users,
		func(idx int) []any {
			return []any{fmt.Sprintf("User%d", idx), fmt.Sprintf("user%d@example.com", idx), time.Now(), float64(idx) * 0.1}
		})
	if err != nil {
		return err
	}

	return fill(ctx, db, "transactions", "INSERT INTO transactions (user_id, amount, currency, status, created_at) VALUES ", "(?, ?, ?, ?, ?)", transactions,
		func(idx int) []any {
			uid := (idx-1)%max(users, 1) + 1 // Cycle through users
			return []any{uid, float64(uid) * 0.25, "USD", "COMPLETED", time.Now()}
		})
}

// fill tops table up to total rows with multi-row inserts.
func fill(ctx context.Context, db *sql.DB, table, insert, placeholder string, total int, row func(idx int) []any) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return err
	}
	if count >= total {
		slog.Info("Table already seeded", "table", table, "count", count)
		return nil
	}

	slog.Info("Seeding table", "table", table, "rows", total-count)
	start := time.Now()
	const batchSize = 500

	for i := count; i < total; i += batchSize {
		n := min(batchSize, total-i)
		vals := make([]any, 0, n*4)
		placeholders := make([]string, 0, n)
		for j := 0; j < n; j++ {
			placeholders = append(placeholders, placeholder)
			vals = append(vals, row(i+j+1)...)
		}

		if _, err := db.ExecContext(ctx, insert+strings.Join(placeholders, ","), vals...); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	slog.Info("Seeding complete", "table", table, "duration", time.Since(start))
	return nil
}
