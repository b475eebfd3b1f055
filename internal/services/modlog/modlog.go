package modlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Log is the append-only moderation record store, partitioned into one JSON
// file per calendar month (mod_log_YYYYMM.json). Every append rewrites the
// active month's full entry set before returning, so a crash never loses a
// previously acknowledged entry. Reads target the month active at call time;
// prior months are never merged into history results.
type Log struct {
	mu     sync.Mutex
	dir    string
	logger *logrus.Logger
	now    func() time.Time
}

// New creates a moderation log rooted at dir
func New(dir string, logger *logrus.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create moderation log directory: %w", err)
	}

	return &Log{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}, nil
}

// currentFile returns the path of the active month's store.
func (l *Log) currentFile() string {
	return filepath.Join(l.dir, fmt.Sprintf("mod_log_%s.json", l.now().Format("200601")))
}

// Append stamps entry with the current time and actionType, persists it to
// the active month's store and returns the stored entry. A persistence
// failure is returned to the caller; log durability is a hard dependency of
// violation handling.
func (l *Log) Append(actionType string, entry Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = l.now().Format(time.RFC3339)
	entry.Action = actionType

	entries := l.read()
	entries = append(entries, entry)

	if err := l.write(entries); err != nil {
		return Entry{}, fmt.Errorf("failed to persist moderation log: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"action":  actionType,
		"user_id": entry.UserID,
	}).Info("Moderation action logged")

	return entry, nil
}

// History returns the user's entries from the active month in append order.
// A positive limit truncates to the most recent limit entries.
func (l *Log) History(userID int64, limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []Entry
	for _, entry := range l.read() {
		if entry.UserID == userID {
			matched = append(matched, entry)
		}
	}

	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	return matched
}

// read loads the active month's entries. A missing or unreadable store is
// treated as empty. Caller must hold l.mu.
func (l *Log) read() []Entry {
	data, err := os.ReadFile(l.currentFile())
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.WithError(err).Warn("Failed to read moderation log, treating as empty")
		}
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.WithError(err).Warn("Malformed moderation log, treating as empty")
		return nil
	}

	return entries
}

// write persists the full entry set for the active month. Caller must hold l.mu.
func (l *Log) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(l.currentFile(), data, 0644)
}
