package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

const busyTimeout = 5 * time.Second

//go:embed schema.sql
var schemaFS embed.FS

func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases coherent and serializes writes.
	db.SetMaxOpenConns(1)

	// Wait for another lazytodo process to release its lock instead of
	// failing with SQLITE_BUSY.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SQLiteSlot stores one named slot in the slots table. It also serves as the
// history journal for the same database.
type SQLiteSlot struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

func NewSQLiteSlot(db *sql.DB, name string) *SQLiteSlot {
	if name == "" {
		name = DefaultSlotName
	}
	return &SQLiteSlot{db: db, name: name, now: time.Now}
}

func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM slots WHERE name = ?", s.name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", s.name, err)
	}
	return []byte(value), nil
}

func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.name, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write slot %s: %w", s.name, err)
	}
	return nil
}

func (s *SQLiteSlot) Record(ctx context.Context, entry model.HistoryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO history (task_id, event_type, details, created_at) VALUES (?, ?, ?, ?)",
		entry.TaskID, entry.EventType, entry.Details, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// ListHistory returns the entries for taskID, newest first.
func (s *SQLiteSlot) ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, task_id, event_type, details, created_at FROM history WHERE task_id = ? ORDER BY id DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	history := []model.HistoryEntry{}
	for rows.Next() {
		var entry model.HistoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.EventType, &entry.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		history = append(history, entry)
	}
	return history, rows.Err()
}
