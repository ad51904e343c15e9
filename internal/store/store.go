// internal/store/store.go

// Package store persists product records in a relational database.
// SQLite is the default backend; PostgreSQL and MySQL are selected by
// driver name in the configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bullionwatch/bullionwatch/pkg/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Store wraps a sql.DB with dialect-aware statements.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and ensures the schema exists.
func Open(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == DriverSQLite && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids
		// SQLITE_BUSY under the concurrent pipeline.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	var stmts []string
	switch s.driver {
	case DriverPostgres:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS products (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				price TEXT NOT NULL DEFAULT '',
				price_value DOUBLE PRECISION,
				stock TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL,
				vendor TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				original_title TEXT NOT NULL DEFAULT '',
				page_number INTEGER NOT NULL DEFAULT 0,
				error TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_url ON products(url)`,
			`CREATE INDEX IF NOT EXISTS idx_products_vendor ON products(vendor)`,
			`CREATE INDEX IF NOT EXISTS idx_products_timestamp ON products(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_products_price_value ON products(price_value)`,
		}
	case DriverMySQL:
		// MySQL has no CREATE INDEX IF NOT EXISTS, so the indexes
		// live in the table definition.
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS products (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				title TEXT NOT NULL,
				price TEXT NOT NULL,
				price_value DOUBLE,
				stock TEXT NOT NULL,
				url VARCHAR(768) NOT NULL,
				vendor VARCHAR(255) NOT NULL,
				timestamp VARCHAR(64) NOT NULL,
				original_title TEXT NOT NULL,
				page_number INT NOT NULL DEFAULT 0,
				error TEXT,
				UNIQUE KEY idx_products_url (url),
				KEY idx_products_vendor (vendor),
				KEY idx_products_timestamp (timestamp),
				KEY idx_products_price_value (price_value)
			)`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL DEFAULT '',
				price TEXT NOT NULL DEFAULT '',
				price_value REAL,
				stock TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL,
				vendor TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				original_title TEXT NOT NULL DEFAULT '',
				page_number INTEGER NOT NULL DEFAULT 0,
				error TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_url ON products(url)`,
			`CREATE INDEX IF NOT EXISTS idx_products_vendor ON products(vendor)`,
			`CREATE INDEX IF NOT EXISTS idx_products_timestamp ON products(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_products_price_value ON products(price_value)`,
		}
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to the dialect's form.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) upsertSQL() string {
	const cols = `(title, price, price_value, stock, url, vendor, timestamp, original_title, page_number, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	switch s.driver {
	case DriverPostgres:
		return s.rebind(`INSERT INTO products ` + cols + `
			ON CONFLICT (url) DO UPDATE SET
				title = EXCLUDED.title, price = EXCLUDED.price,
				price_value = EXCLUDED.price_value, stock = EXCLUDED.stock,
				vendor = EXCLUDED.vendor, timestamp = EXCLUDED.timestamp,
				original_title = EXCLUDED.original_title,
				page_number = EXCLUDED.page_number, error = EXCLUDED.error`)
	case DriverMySQL:
		return `INSERT INTO products ` + cols + `
			ON DUPLICATE KEY UPDATE
				title = VALUES(title), price = VALUES(price),
				price_value = VALUES(price_value), stock = VALUES(stock),
				vendor = VALUES(vendor), timestamp = VALUES(timestamp),
				original_title = VALUES(original_title),
				page_number = VALUES(page_number), error = VALUES(error)`
	default:
		return `INSERT OR REPLACE INTO products ` + cols
	}
}

// ReplaceVendor atomically replaces one vendor's records with a fresh
// snapshot: delete the vendor's rows, insert the new ones, commit.
// The URL unique index still applies across vendors, so a URL that
// somehow appears under two vendors keeps a single row. Returns the
// number of records written.
func (s *Store) ReplaceVendor(ctx context.Context, vendor string, records []types.ProductRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM products WHERE vendor = ?`), vendor); err != nil {
		return 0, fmt.Errorf("failed to clear vendor %s: %w", vendor, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for i := range records {
		r := &records[i]
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		_, err := stmt.ExecContext(ctx,
			r.Title, r.Price, nullFloat(r.PriceValue), r.Stock, r.URL, r.Vendor,
			r.Timestamp.UTC().Format(time.RFC3339), r.OriginalTitle, r.SourcePage,
			nullString(r.Error),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", r.URL, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return count, nil
}

// Find returns records matching the filter. Price bounds exclude rows
// without a numeric price; price sorts push those rows to the end.
func (s *Store) Find(ctx context.Context, f types.Filter) ([]types.ProductRecord, error) {
	query := `SELECT id, title, price, price_value, stock, url, vendor, timestamp,
		original_title, page_number, error FROM products WHERE 1=1`
	var args []interface{}

	if f.Vendor != "" {
		query += ` AND vendor = ?`
		args = append(args, f.Vendor)
	}
	if f.TextQuery != "" {
		query += ` AND LOWER(title) LIKE ?`
		args = append(args, "%"+strings.ToLower(f.TextQuery)+"%")
	}
	if f.MinPrice != nil {
		query += ` AND price_value >= ?`
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query += ` AND price_value <= ?`
		args = append(args, *f.MaxPrice)
	}

	switch f.SortBy {
	case types.SortPriceAsc:
		query += ` ORDER BY (price_value IS NULL), price_value ASC`
	case types.SortPriceDesc:
		query += ` ORDER BY (price_value IS NULL), price_value DESC`
	default:
		query += ` ORDER BY timestamp DESC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []types.ProductRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (types.ProductRecord, error) {
	var (
		r          types.ProductRecord
		priceValue sql.NullFloat64
		timestamp  string
		errText    sql.NullString
	)
	if err := rows.Scan(&r.ID, &r.Title, &r.Price, &priceValue, &r.Stock, &r.URL,
		&r.Vendor, &timestamp, &r.OriginalTitle, &r.SourcePage, &errText); err != nil {
		return r, fmt.Errorf("scan failed: %w", err)
	}
	if priceValue.Valid {
		v := priceValue.Float64
		r.PriceValue = &v
	}
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		r.Timestamp = t
	}
	r.Error = errText.String
	return r, nil
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// VendorCounts returns per-vendor record counts, largest first.
func (s *Store) VendorCounts(ctx context.Context) ([]types.VendorCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vendor, COUNT(*) FROM products GROUP BY vendor ORDER BY COUNT(*) DESC, vendor ASC`)
	if err != nil {
		return nil, fmt.Errorf("vendor counts failed: %w", err)
	}
	defer rows.Close()

	var counts []types.VendorCount
	for rows.Next() {
		var vc types.VendorCount
		if err := rows.Scan(&vc.Vendor, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		counts = append(counts, vc)
	}
	return counts, rows.Err()
}

// LastScrape returns the most recent record timestamp in RFC 3339
// form, or "" when the store is empty.
func (s *Store) LastScrape(ctx context.Context) (string, error) {
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM products`).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("last scrape lookup failed: %w", err)
	}
	return last.String, nil
}

// Ping verifies the database connection, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
