package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// SQLite caps bindable parameters at 999 per statement. With 14 columns per
// entry a batch insert may carry at most 71 entries.
const (
	maxSQLiteParams   = 999
	columnsPerEntry   = 14
	maxEntriesPerStmt = maxSQLiteParams / columnsPerEntry
)

// SQLiteStore persists usage entries in a local SQLite database.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
	cleanupWG     sync.WaitGroup
}

// OpenSQLite opens (creating if needed) the usage database at path and
// returns a store writing to it. WAL mode keeps reads from blocking the
// writer.
func OpenSQLite(path string, retentionDays int) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create usage db directory %s: %w", dir, err)
		}
	}

	dsn := path + "?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	// One writer at a time is all SQLite allows anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store, err := NewSQLiteStore(db, retentionDays)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing connection, creating the schema if missing
// and starting the retention cleanup loop when retentionDays > 0.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS translations (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			model TEXT NOT NULL,
			source TEXT NOT NULL,
			detected TEXT NOT NULL DEFAULT '',
			target TEXT NOT NULL,
			format TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create translations table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_translations_timestamp ON translations(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_translations_target ON translations(target)",
		"CREATE INDEX IF NOT EXISTS idx_translations_text_hash ON translations(text_hash)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create usage index", "error", err)
		}
	}

	store := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}

	if retentionDays > 0 {
		store.cleanupWG.Add(1)
		go store.cleanupLoop()
	}

	return store, nil
}

// WriteBatch inserts entries, chunked to respect the parameter limit.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	for i := 0; i < len(entries); i += maxEntriesPerStmt {
		end := min(i+maxEntriesPerStmt, len(entries))
		if err := s.writeChunk(ctx, entries[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) writeChunk(ctx context.Context, chunk []*Entry) error {
	if len(chunk) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(chunk))
	values := make([]any, 0, len(chunk)*columnsPerEntry)
	for _, e := range chunk {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		values = append(values,
			e.ID, e.RequestID, e.ProviderID, e.Timestamp,
			e.Model, e.Source, e.Detected, e.Target, e.Format,
			strconv.FormatUint(e.TextHash, 16),
			e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.DurationMs,
		)
	}

	query := `INSERT INTO translations (
		id, request_id, provider_id, timestamp,
		model, source, detected, target, format,
		text_hash, prompt_tokens, completion_tokens, total_tokens, duration_ms
	) VALUES ` + strings.Join(placeholders, ", ")

	if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("insert usage entries: %w", err)
	}
	return nil
}

// Count returns the number of stored entries. Used by tests and the cleanup
// loop's logging.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&n)
	return n, err
}

// Close stops the cleanup loop and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		s.cleanupWG.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) cleanupLoop() {
	defer s.cleanupWG.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup deletes entries older than the retention window.
func (s *SQLiteStore) cleanup() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	res, err := s.db.Exec("DELETE FROM translations WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("usage retention cleanup failed", "error", err)
		return
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		slog.Info("usage retention cleanup", "deleted", deleted, "retention_days", s.retentionDays)
	}
}
