package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MediVision-io/medivision/internal/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection together with the driver type so that
// queries can be rebound for the active backend.
type DB struct {
	conn   *sql.DB
	dbType string
}

// Open initializes the database connection and schema
func Open(cfg *config.Config) (*DB, error) {
	var open func() (*sql.DB, error)

	switch cfg.Database.Type {
	case "postgres":
		open = func() (*sql.DB, error) { return openPostgres(cfg) }
	case "sqlite", "":
		open = func() (*sql.DB, error) { return openSQLite(cfg) }
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	// Connect with retries so the service survives a store that comes up
	// after it does.
	var conn *sql.DB
	var lastErr error
	for i := 0; i < cfg.Database.MaxRetries; i++ {
		conn, lastErr = open()
		if lastErr == nil {
			lastErr = conn.Ping()
			if lastErr == nil {
				break
			}
			conn.Close()
		}
		log.Printf("Attempt %d/%d failed: %v", i+1, cfg.Database.MaxRetries, lastErr)
		time.Sleep(time.Duration(cfg.Database.RetryDelay) * time.Second)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %v", cfg.Database.MaxRetries, lastErr)
	}

	db := &DB{conn: conn, dbType: cfg.Database.Type}
	if db.dbType == "" {
		db.dbType = "sqlite"
	}

	if err := RunMigrations(conn, db.dbType); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	log.Printf("Database initialized (type: %s)", db.dbType)
	return db, nil
}

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %v", err)
	}
	return db, nil
}

func openSQLite(cfg *config.Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." && !strings.HasPrefix(cfg.Database.Path, ":memory:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Database.Path+"?_journal=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %v", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenForTest opens an in-memory SQLite database with the schema applied.
func OpenForTest() (*DB, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	if err := RunMigrations(conn, "sqlite"); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, dbType: "sqlite"}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind converts ? placeholders to $1..$n for postgres
func (db *DB) rebind(query string) string {
	if db.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
