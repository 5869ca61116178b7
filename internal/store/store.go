// Package store is trak's embedded relational store: task CRUD,
// dependency edges, journal entries, claims, and cost events, backed
// by a pure-Go SQLite engine (no cgo). One Store is opened per command
// invocation — there is no long-lived connection pool beyond what
// database/sql itself keeps internally.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"
)

// DirName is the trak data directory name, searched for from the
// current working directory up to the git root, or used under $HOME
// as a last resort.
const DirName = ".trak"

// DBFileName is the relational store's filename inside DirName.
const DBFileName = "trak.db"

// EnvOverride is the environment variable that overrides store
// location resolution entirely.
const EnvOverride = "TRAK_DB"

// Store wraps the opened database handle plus the resolved trak
// directory (needed by callers that also touch the event log or lock
// files living alongside it).
type Store struct {
	DB      *sql.DB
	Dir     string
	dbPath  string
}

// ErrInitRequired is returned by Locate when no .trak directory can be
// found and the caller isn't running `trak init`.
var ErrInitRequired = fmt.Errorf("trak init required")

// Locate resolves the trak directory using, in order: the TRAK_DB
// override (treated as the full db file path, directory = its parent),
// a `.trak` directory found by walking from cwd up to the git root,
// or `$HOME/.trak`. allowMissing is true only for `trak init`, which is
// allowed to create the directory that doesn't exist yet.
func Locate(allowMissing bool) (dir string, dbPath string, err error) {
	if override := os.Getenv(EnvOverride); override != "" {
		return filepath.Dir(override), override, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("get working directory: %w", err)
	}

	if dir, ok := walkForTrakDir(cwd); ok {
		return dir, filepath.Join(dir, DBFileName), nil
	}

	home, herr := os.UserHomeDir()
	if herr == nil {
		global := filepath.Join(home, DirName)
		if _, statErr := os.Stat(global); statErr == nil {
			return global, filepath.Join(global, DBFileName), nil
		}
	}

	if allowMissing {
		// trak init creates a project-local .trak next to the git root if
		// one exists, otherwise in cwd.
		root := cwd
		if gitRoot, ok := findGitRoot(cwd); ok {
			root = gitRoot
		}
		dir = filepath.Join(root, DirName)
		return dir, filepath.Join(dir, DBFileName), nil
	}

	return "", "", ErrInitRequired
}

// walkForTrakDir walks from start up to the enclosing git root (or
// filesystem root) looking for a .trak directory, stopping at the
// first match.
func walkForTrakDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Open resolves the store location, ensures the directory exists,
// opens the database with WAL journaling and foreign keys enabled,
// and runs idempotent schema migration.
func Open(ctx context.Context, allowMissing bool) (*Store, error) {
	dir, dbPath, err := Locate(allowMissing)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trak directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{DB: db, Dir: dir, dbPath: dbPath}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("store opened")
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Path returns the resolved database file path.
func (s *Store) Path() string {
	return s.dbPath
}
