package store

import (
	"context"
	"database/sql"
	"fmt"
)

// createTables is idempotent: every statement uses CREATE TABLE/INDEX
// IF NOT EXISTS, so it is safe to run on every Open.
const createTables = `
CREATE TABLE IF NOT EXISTS tasks (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'open',
	priority             INTEGER NOT NULL DEFAULT 1,
	project              TEXT NOT NULL DEFAULT '',
	tags                 TEXT NOT NULL DEFAULT '',
	parent_id            TEXT,
	epic_id              TEXT,
	is_epic              INTEGER NOT NULL DEFAULT 0,
	convoy_id            TEXT NOT NULL DEFAULT '',
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL,
	agent_session        TEXT NOT NULL DEFAULT '',
	assigned_to          TEXT NOT NULL DEFAULT '',
	verification_status  TEXT NOT NULL DEFAULT 'unset',
	verified_by          TEXT NOT NULL DEFAULT '',
	created_from         TEXT NOT NULL DEFAULT '',
	verify_command       TEXT NOT NULL DEFAULT '',
	wip_snapshot         TEXT NOT NULL DEFAULT '',
	autonomy             TEXT NOT NULL DEFAULT 'manual',
	budget_usd           REAL NOT NULL DEFAULT 0,
	retry_count          INTEGER NOT NULL DEFAULT 0,
	max_retries          INTEGER NOT NULL DEFAULT 3,
	last_failure_reason  TEXT NOT NULL DEFAULT '',
	retry_after          TEXT,
	timeout_seconds      INTEGER NOT NULL DEFAULT 0,
	cost_usd             REAL NOT NULL DEFAULT 0,
	tokens_in            INTEGER NOT NULL DEFAULT 0,
	tokens_out           INTEGER NOT NULL DEFAULT 0,
	tokens_used          INTEGER NOT NULL DEFAULT 0,
	model_used           TEXT NOT NULL DEFAULT '',
	duration_seconds     REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_status   ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_project  ON tasks(project);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
CREATE INDEX IF NOT EXISTS idx_tasks_epic     ON tasks(epic_id);

CREATE TABLE IF NOT EXISTS dependencies (
	child_id  TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	PRIMARY KEY (child_id, parent_id),
	FOREIGN KEY (child_id)  REFERENCES tasks(id) ON DELETE CASCADE,
	FOREIGN KEY (parent_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_deps_child  ON dependencies(child_id);
CREATE INDEX IF NOT EXISTS idx_deps_parent ON dependencies(parent_id);

CREATE TABLE IF NOT EXISTS task_log (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id   TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	entry     TEXT NOT NULL,
	author    TEXT NOT NULL DEFAULT 'human',
	FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_task_log_task ON task_log(task_id);

CREATE TABLE IF NOT EXISTS task_claims (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL,
	agent       TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'claimed',
	claimed_at  TEXT NOT NULL,
	released_at TEXT,
	FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_task_claims_task ON task_claims(task_id);

CREATE TABLE IF NOT EXISTS cost_events (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	tokens_in  INTEGER NOT NULL DEFAULT 0,
	tokens_out INTEGER NOT NULL DEFAULT 0,
	cost_usd   REAL NOT NULL DEFAULT 0,
	duration   REAL NOT NULL DEFAULT 0,
	agent      TEXT NOT NULL DEFAULT '',
	operation  TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cost_events_task ON cost_events(task_id);
`

// expectedTaskColumns maps every column the current Task model expects
// on the tasks table to the DDL fragment used to add it if a migration
// from an older trak version left it missing: add what's absent, touch
// nothing else.
var expectedTaskColumns = map[string]string{
	"convoy_id":           "TEXT NOT NULL DEFAULT ''",
	"timeout_seconds":     "INTEGER NOT NULL DEFAULT 0",
	"last_failure_reason": "TEXT NOT NULL DEFAULT ''",
	"retry_after":         "TEXT",
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, createTables); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return s.addMissingTaskColumns(ctx)
}

func (s *Store) addMissingTaskColumns(ctx context.Context) error {
	existing, err := existingColumns(ctx, s.DB, "tasks")
	if err != nil {
		return fmt.Errorf("inspect tasks columns: %w", err)
	}
	for col, ddl := range expectedTaskColumns {
		if existing[col] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE tasks ADD COLUMN %s %s", col, ddl)
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

func existingColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
