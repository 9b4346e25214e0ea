package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				name VARCHAR(255) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create scans table",
			SQL: `CREATE TABLE IF NOT EXISTS scans (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				scan_type VARCHAR(100) NOT NULL,
				file_name TEXT NOT NULL,
				image_base64 TEXT NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'processing',
				doctor_view JSONB,
				patient_view JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create developer_logs table",
			SQL: `CREATE TABLE IF NOT EXISTS developer_logs (
				id UUID PRIMARY KEY,
				action VARCHAR(100) NOT NULL,
				user_id UUID,
				scan_id UUID,
				scan_type VARCHAR(100),
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
				CREATE INDEX IF NOT EXISTS idx_scans_user_created ON scans(user_id, created_at);
				CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);`,
		},
	}
}

func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create scans table",
			SQL: `CREATE TABLE IF NOT EXISTS scans (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				scan_type TEXT NOT NULL,
				file_name TEXT NOT NULL,
				image_base64 TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'processing',
				doctor_view TEXT,
				patient_view TEXT,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     3,
			Description: "Create developer_logs table",
			SQL: `CREATE TABLE IF NOT EXISTS developer_logs (
				id TEXT PRIMARY KEY,
				action TEXT NOT NULL,
				user_id TEXT,
				scan_id TEXT,
				scan_type TEXT,
				timestamp DATETIME NOT NULL
			)`,
		},
		{
			Version:     4,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_scans_user_id ON scans(user_id);
				CREATE INDEX IF NOT EXISTS idx_scans_user_created ON scans(user_id, created_at);
				CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);`,
		},
	}
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Description)

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %v", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}
