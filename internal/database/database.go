package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps sql.DB and implements the booking store and catalog.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate transactions serialize booking inserts.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, path: path, logger: logger}
	if err := instance.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS shops (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			schedule TEXT NOT NULL DEFAULT '{}',
			calendar TEXT,
			connected_account_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS staff (
			shop_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			service_ids TEXT NOT NULL DEFAULT '[]',
			schedule TEXT NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			position INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (shop_id, id),
			FOREIGN KEY (shop_id) REFERENCES shops(id)
		)`,

		`CREATE TABLE IF NOT EXISTS time_offs (
			id TEXT NOT NULL,
			shop_id TEXT NOT NULL,
			staff_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			start_minute INTEGER,
			end_minute INTEGER,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (shop_id, id),
			FOREIGN KEY (shop_id) REFERENCES shops(id)
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			shop_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			duration INTEGER NOT NULL,
			price REAL NOT NULL,
			promotion_price REAL,
			requires_staff BOOLEAN NOT NULL DEFAULT 0,
			options TEXT NOT NULL DEFAULT '[]',
			add_ons TEXT NOT NULL DEFAULT '[]',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			position INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (shop_id, id),
			FOREIGN KEY (shop_id) REFERENCES shops(id)
		)`,

		`CREATE TABLE IF NOT EXISTS promos (
			shop_id TEXT NOT NULL,
			code TEXT NOT NULL,
			discount_type TEXT NOT NULL,
			discount_value REAL NOT NULL,
			max_discount REAL,
			specific_services TEXT NOT NULL DEFAULT '[]',
			min_order_amount REAL NOT NULL DEFAULT 0,
			valid_from DATETIME,
			valid_until DATETIME,
			usage_limit INTEGER NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (shop_id, code),
			FOREIGN KEY (shop_id) REFERENCES shops(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			shop_id TEXT NOT NULL,
			booking_number INTEGER NOT NULL,
			client_id TEXT NOT NULL DEFAULT '',
			client_name TEXT NOT NULL,
			client_email TEXT NOT NULL DEFAULT '',
			client_phone TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			time_start INTEGER NOT NULL,
			time_end INTEGER NOT NULL,
			guests TEXT NOT NULL,
			staff_ids TEXT NOT NULL DEFAULT '[]',
			total_duration INTEGER NOT NULL,
			subtotal REAL NOT NULL,
			promo_code TEXT NOT NULL DEFAULT '',
			promo_discount REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL,
			deposit_required BOOLEAN NOT NULL DEFAULT 0,
			deposit_amount REAL NOT NULL DEFAULT 0,
			deposit_discount REAL NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL,
			payment_intent_id TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			rebooked_from TEXT NOT NULL DEFAULT '',
			rebooked_to TEXT NOT NULL DEFAULT '',
			original_payment_method TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			cancelled_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (shop_id, booking_number),
			FOREIGN KEY (shop_id) REFERENCES shops(id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_day ON bookings(shop_id, date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_time_offs_staff ON time_offs(shop_id, staff_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) Close() error {
	return db.DB.Close()
}
