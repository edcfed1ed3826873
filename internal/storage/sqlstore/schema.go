package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/student-tracker/internal/config"
)

// CREATE TABLE IF NOT EXISTS is idempotent, so this runs on every startup.
// Deleting a student cascades to its tasks, and deleting a task cascades
// to its comments.
var schemas = map[string][]string{
	config.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS students (
			account TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			school  TEXT,
			class   TEXT,
			email   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id              INTEGER PRIMARY KEY,
			student_account TEXT NOT NULL REFERENCES students(account) ON DELETE CASCADE,
			name            TEXT,
			status          TEXT,
			teacher_comment TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			sender      TEXT    NOT NULL,
			content     TEXT    NOT NULL,
			timestamp   TEXT    NOT NULL,
			is_recalled INTEGER NOT NULL DEFAULT 0,
			is_blocked  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_student ON tasks(student_account)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id)`,
	},
	config.DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS students (
			account TEXT PRIMARY KEY,
			name    TEXT NOT NULL,
			school  TEXT,
			class   TEXT,
			email   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id              BIGINT PRIMARY KEY,
			student_account TEXT NOT NULL REFERENCES students(account) ON DELETE CASCADE,
			name            TEXT,
			status          TEXT,
			teacher_comment TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id          BIGSERIAL PRIMARY KEY,
			task_id     BIGINT   NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			sender      TEXT     NOT NULL,
			content     TEXT     NOT NULL,
			timestamp   TEXT     NOT NULL,
			is_recalled SMALLINT NOT NULL DEFAULT 0,
			is_blocked  SMALLINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_student ON tasks(student_account)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id)`,
	},
}

func createSchema(ctx context.Context, db *sqlx.DB, driver string) error {
	stmts, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("createSchema: no schema for driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("createSchema: %w", err)
		}
	}
	return nil
}
