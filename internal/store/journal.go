package store

import (
	"context"

	"github.com/kkeeland/trak/internal/types"
)

// AppendJournalEntry records a timestamped note against a task. author
// defaults to "human" at the schema level; callers pass the acting
// agent name or session id for machine-authored entries.
func (s *Store) AppendJournalEntry(ctx context.Context, taskID, entry, author string) error {
	if author == "" {
		author = "human"
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO task_log (task_id, timestamp, entry, author) VALUES (?, ?, ?, ?)`,
		taskID, types.Now(), entry, author)
	return err
}

// Journal returns every log entry for a task, oldest first.
func (s *Store) Journal(ctx context.Context, taskID string) ([]types.JournalEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT timestamp, entry, author FROM task_log WHERE task_id = ? ORDER BY id ASC`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.JournalEntry
	for rows.Next() {
		var e types.JournalEntry
		if err := rows.Scan(&e.Timestamp, &e.Entry, &e.Author); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
