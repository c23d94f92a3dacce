package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// migrate brings the schema to the current version. New databases get the
// full schema in one transaction; existing ones run pending migrations.
// Runs during connection establishment, so it works on db.conn directly
// rather than through the locking helpers.
func (db *DB) migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	if version == 0 {
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin schema transaction: %w", err)
		}

		creators := []func(*sql.Tx) error{
			createSchemaVersionTable,
			createUsersTable,
			createTeamsTable,
			createTeamMembershipsTable,
			createProjectsTable,
			createSessionsTable,
			createDecisionsTable,
			createDecisionPatternsTable,
			createAPIKeysTable,
		}
		for _, create := range creators {
			if err := create(tx); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema transaction: %w", err)
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})
		return nil
	}

	// Sequential migrations go here as the schema evolves
	return fmt.Errorf("unknown schema version %d", version)
}

// schemaVersion reads the current version; 0 means a fresh database. Must
// run against an established connection, so it bypasses ensure.
func (db *DB) schemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

func createUsersTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE,
			name TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func createTeamsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create teams table: %w", err)
	}
	return nil
}

func createTeamMembershipsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS team_memberships (
			team_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',

			PRIMARY KEY (team_id, user_id),
			FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("create team_memberships table: %w", err)
	}
	return nil
}

func createProjectsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path_hash TEXT NOT NULL,
			repository_id TEXT,
			git_remote_url TEXT,
			tech_stack TEXT NOT NULL DEFAULT '[]',
			project_type TEXT NOT NULL DEFAULT 'general',
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create projects table: %w", err)
	}

	// Uniqueness contract: a project reachable by Git remote resolves to one
	// row regardless of clone path; remote-less projects dedupe by path.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_repository_id ON projects(repository_id) WHERE repository_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_path_hash ON projects(path_hash)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("create project index: %w", err)
		}
	}

	return nil
}

func createSessionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			user_id TEXT,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			decision_count INTEGER NOT NULL DEFAULT 0,

			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_project_id ON sessions(project_id)"); err != nil {
		return fmt.Errorf("create session index: %w", err)
	}
	return nil
}

func createDecisionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			session_id TEXT,
			user_id TEXT,
			decision TEXT NOT NULL,
			reasoning TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('tech_stack', 'architecture', 'pattern', 'tool_choice')),
			alternatives_considered TEXT NOT NULL DEFAULT '[]',
			files_affected TEXT NOT NULL DEFAULT '[]',
			confidence REAL NOT NULL CHECK(confidence >= 0.0 AND confidence <= 1.0),
			public INTEGER NOT NULL DEFAULT 0,
			vector_embedding TEXT,
			created_at TEXT NOT NULL,

			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create decisions table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_decisions_project_created ON decisions(project_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_decisions_public ON decisions(public)",
		"CREATE INDEX IF NOT EXISTS idx_decisions_type ON decisions(type)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("create decision index: %w", err)
		}
	}

	return nil
}

func createDecisionPatternsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS decision_patterns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			tech_stack TEXT NOT NULL DEFAULT '[]',
			project_types TEXT NOT NULL DEFAULT '[]',
			usage_count INTEGER NOT NULL DEFAULT 0,
			success_rate REAL NOT NULL DEFAULT 0 CHECK(success_rate >= 0.0 AND success_rate <= 1.0)
		)
	`)
	if err != nil {
		return fmt.Errorf("create decision_patterns table: %w", err)
	}
	return nil
}

func createAPIKeysTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			name TEXT NOT NULL,
			token_prefix TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_used_at TEXT,
			revoked_at TEXT,

			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("create api_keys table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_api_keys_token_prefix ON api_keys(token_prefix)"); err != nil {
		return fmt.Errorf("create api key index: %w", err)
	}
	return nil
}
