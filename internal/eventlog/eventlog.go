// Package eventlog implements trak's durable source of truth: an
// append-only JSONL file mixing two physical record shapes (event and
// snapshot) on one stream, plus the compaction and git-conflict-merge
// machinery that keep it the authority the relational store is rebuilt
// from.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kkeeland/trak/internal/types"
)

// FileName is the event log's filename inside the trak directory.
const FileName = "trak.jsonl"

// EventLog is a thin handle around the log file path. It holds no open
// file descriptor between calls — every operation opens, does its
// work, and closes, matching the Store's per-command lifecycle.
type EventLog struct {
	Path string
}

// Open returns an EventLog rooted at trakDir/trak.jsonl. The file need
// not exist yet; Append creates it on first write.
func Open(trakDir string) *EventLog {
	return &EventLog{Path: filepath.Join(trakDir, FileName)}
}

// Append writes one event line to the log, creating the file if
// necessary. This is called after a Store transaction commits and is
// best-effort from the caller's perspective: a failure here does not
// undo the already-committed mutation.
func (l *EventLog) Append(ev types.Event) error {
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// readLines returns every non-blank line of the log file. A missing
// file is treated as empty, not an error — a freshly initialized trak
// directory has no log yet.
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		trimmed := trimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, cp)
	}
	return lines, scanner.Err()
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
