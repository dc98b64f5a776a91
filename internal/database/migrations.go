package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	log.Info().Msg("Running database migrations")

	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Debug().Int("current_version", currentVersion).Msg("Current schema version")

	// Run migrations
	for _, migration := range migrations {
		if migration.Version > currentVersion {
			log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("Applying migration")

			if err := db.Transaction(func(tx *sql.Tx) error {
				statements := splitSQLStatements(migration.SQL)
				for i, stmt := range statements {
					if _, err := tx.Exec(stmt); err != nil {
						return fmt.Errorf("migration %d statement %d failed: %w", migration.Version, i+1, err)
					}
				}

				// Record migration
				if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
					return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
				}

				return nil
			}); err != nil {
				return err
			}
		}
	}

	log.Info().Msg("Database migrations complete")
	return nil
}

// splitSQLStatements splits a migration script into individual statements
func splitSQLStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "initial schema",
		SQL: `
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE sessions (
				id TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users(id),
				expires_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL
			);

			CREATE TABLE universities (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE streams (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE semesters (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				number INTEGER NOT NULL UNIQUE
			);

			CREATE TABLE subjects (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				university_id INTEGER NOT NULL REFERENCES universities(id),
				stream_id INTEGER NOT NULL REFERENCES streams(id),
				semester_id INTEGER NOT NULL REFERENCES semesters(id),
				teacher_id INTEGER NOT NULL REFERENCES users(id)
			);

			CREATE TABLE modules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject_id INTEGER NOT NULL REFERENCES subjects(id),
				title TEXT NOT NULL
			);

			CREATE TABLE content (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				module_id INTEGER NOT NULL REFERENCES modules(id),
				content_type TEXT NOT NULL,
				data TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				module_id INTEGER NOT NULL REFERENCES modules(id),
				description TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE proof_of_work (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				task_id INTEGER NOT NULL REFERENCES tasks(id),
				user_id INTEGER NOT NULL REFERENCES users(id),
				file_path TEXT NOT NULL,
				original_name TEXT NOT NULL,
				comments TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_subjects_teacher ON subjects(teacher_id);
			CREATE INDEX idx_modules_subject ON modules(subject_id);
			CREATE INDEX idx_content_module ON content(module_id);
			CREATE INDEX idx_tasks_module ON tasks(module_id);
			CREATE INDEX idx_pow_task_user ON proof_of_work(task_id, user_id);
			CREATE INDEX idx_sessions_expires ON sessions(expires_at)
		`,
	},
}
