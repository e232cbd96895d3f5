package metrics

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists invocation records in a local sqlite database.
// WAL mode keeps pruning from blocking concurrent readers.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the record database at dbPath and
// applies pending migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists (using stricter permissions)
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// migrateUp applies all pending migrations from the embedded filesystem.
func migrateUp(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	// Note: no deferred m.Close(); the sqlite driver shares the caller's
	// connection and Close() would affect its state.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Append implements RecordStore.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	meta, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations
			(id, tool_name, start_time, duration_ms, success, error_kind,
			 cache_hit, mock_mode, memory_mb, cpu_pct, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool, rec.StartTime.UnixMilli(), rec.DurationMS,
		boolToInt(rec.Success), rec.ErrorKind,
		boolToInt(rec.CacheHit), boolToInt(rec.MockMode),
		rec.MemoryMB, rec.CPUPct, meta,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Query implements RecordStore.
func (s *SQLiteStore) Query(ctx context.Context, tool string, since time.Time) ([]Record, error) {
	query := `
		SELECT id, tool_name, start_time, duration_ms, success, error_kind,
		       cache_hit, mock_mode, memory_mb, cpu_pct, metadata
		FROM invocations
		WHERE start_time >= ?`
	args := []any{since.UnixMilli()}
	if tool != "" {
		query += " AND tool_name = ?"
		args = append(args, tool)
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec                         Record
			startMS                     int64
			success, cacheHit, mockMode int
			meta                        string
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &startMS, &rec.DurationMS,
			&success, &rec.ErrorKind, &cacheHit, &mockMode,
			&rec.MemoryMB, &rec.CPUPct, &meta); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.StartTime = time.UnixMilli(startMS).UTC()
		rec.Success = success != 0
		rec.CacheHit = cacheHit != 0
		rec.MockMode = mockMode != 0
		if err := unmarshalMetadata(meta, &rec.Metadata); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// Tools implements RecordStore.
func (s *SQLiteStore) Tools(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tool_name FROM invocations
		WHERE start_time >= ? ORDER BY tool_name`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying tools: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tool name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tools: %w", err)
	}
	return out, nil
}

// Prune implements RecordStore. Deletes only records strictly older than cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invocations WHERE start_time < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned records: %w", err)
	}
	return n, nil
}

// Close implements RecordStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(s string, dst *map[string]string) error {
	if s == "" || s == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return nil
}
