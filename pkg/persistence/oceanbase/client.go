// Package oceanbase provides an OceanBase implementation of the archive
// store, using the MySQL wire protocol. Snapshots are stored in JSON
// columns.
package oceanbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/persistence"
)

// Client implements persistence.ArchiveStore using OceanBase as the
// backend.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for creating an OceanBase archive store.
type Config struct {
	// DSN is the MySQL-protocol connection string, e.g.
	// "user:pass@tcp(localhost:2881)/memlens?parseTime=true".
	// parseTime=true is required so DATETIME columns scan into time.Time.
	DSN string

	// TableName is the name of the table to use. Defaults to
	// "memory_archive".
	TableName string
}

// NewClient creates a new OceanBase archive store.
//
// Parameters:
//   - cfg: Configuration containing the DSN and table name
//
// Returns:
//   - *Client: The OceanBase client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, memory.NewError("oceanbase.NewClient",
			fmt.Errorf("dsn is required: %w", memory.ErrInvalidConfig))
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("oceanbase.NewClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("oceanbase.NewClient: %w", err)
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
			memory_id VARCHAR(64) PRIMARY KEY,
			record JSON NOT NULL,
			reason TEXT,
			archived_at DATETIME(6) NOT NULL,
			KEY idx_archived_at (archived_at)
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Save upserts a snapshot.
func (c *Client) Save(ctx context.Context, rec *persistence.ArchivedMemory) error {
	recordJSON, err := json.Marshal(rec.Memory)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (memory_id, record, reason, archived_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			record = VALUES(record),
			reason = VALUES(reason),
			archived_at = VALUES(archived_at)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query,
		rec.Memory.ID, recordJSON, rec.Reason, rec.ArchivedAt); err != nil {
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
		recordJSON []byte
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
		// MySQL has no unlimited LIMIT with OFFSET; use the documented
		// large-number idiom.
		limit = math.MaxInt32
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
			recordJSON []byte
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

func decodeSnapshot(recordJSON []byte, reason string, archivedAt time.Time) (*persistence.ArchivedMemory, error) {
	var m memory.Memory
	if err := json.Unmarshal(recordJSON, &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &persistence.ArchivedMemory{
		Memory:     &m,
		ArchivedAt: archivedAt,
		Reason:     reason,
	}, nil
}
