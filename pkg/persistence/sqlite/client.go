// Package sqlite provides a SQLite implementation of the archive store.
//
// SQLite is a lightweight, file-based database suitable for local
// development and single-node deployments. Snapshots are stored as JSON
// strings in TEXT fields.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/persistence"
)

// Client implements persistence.ArchiveStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing snapshots.
	tableName string
}

// Config contains configuration for creating a SQLite archive store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use. Defaults to
	// "memory_archive".
	TableName string
}

// NewClient creates a new SQLite archive store.
//
// Parameters:
//   - cfg: Configuration containing the database path and table name
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.DBPath == "" {
		return nil, memory.NewError("sqlite.NewClient",
			fmt.Errorf("db path is required: %w", memory.ErrInvalidConfig))
	}

	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite.NewClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite.NewClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite.NewClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memory_archive"
	}

	client := &Client{db: db, tableName: tableName}
	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			memory_id TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			reason TEXT,
			archived_at DATETIME NOT NULL
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_archived_at ON %s(archived_at)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Save upserts a snapshot. The full memory record is stored as a JSON
// string.
func (c *Client) Save(ctx context.Context, rec *persistence.ArchivedMemory) error {
	recordJSON, err := json.Marshal(rec.Memory)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (memory_id, record, reason, archived_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			record = excluded.record,
			reason = excluded.reason,
			archived_at = excluded.archived_at
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query,
		rec.Memory.ID, string(recordJSON), rec.Reason, rec.ArchivedAt); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by memory id.
func (c *Client) Get(ctx context.Context, id string) (*persistence.ArchivedMemory, error) {
	query := fmt.Sprintf(`
		SELECT record, reason, archived_at FROM %s WHERE memory_id = ?
	`, c.tableName)

	var (
		recordJSON string
		reason     sql.NullString
		archivedAt time.Time
	)
	err := c.db.QueryRowContext(ctx, query, id).Scan(&recordJSON, &reason, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.NewError("Get", memory.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return decodeSnapshot(recordJSON, reason.String, archivedAt)
}

// List returns snapshots ordered by archival time descending. A limit of 0
// means no limit.
func (c *Client) List(ctx context.Context, limit, offset int) ([]*persistence.ArchivedMemory, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}
	query := fmt.Sprintf(`
		SELECT record, reason, archived_at FROM %s
		ORDER BY archived_at DESC
		LIMIT ? OFFSET ?
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*persistence.ArchivedMemory
	for rows.Next() {
		var (
			recordJSON string
			reason     sql.NullString
			archivedAt time.Time
		)
		if err := rows.Scan(&recordJSON, &reason, &archivedAt); err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		rec, err := decodeSnapshot(recordJSON, reason.String, archivedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by memory id.
func (c *Client) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE memory_id = ?`, c.tableName)
	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

func decodeSnapshot(recordJSON, reason string, archivedAt time.Time) (*persistence.ArchivedMemory, error) {
	var m memory.Memory
	if err := json.Unmarshal([]byte(recordJSON), &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &persistence.ArchivedMemory{
		Memory:     &m,
		ArchivedAt: archivedAt,
		Reason:     reason,
	}, nil
}
