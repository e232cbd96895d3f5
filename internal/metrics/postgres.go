package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists invocation records in postgres, for deployments
// where several processes share one record log. MVCC keeps pruning from
// blocking concurrent readers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS invocations (
    id          TEXT PRIMARY KEY,
    tool_name   TEXT NOT NULL,
    start_time  TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL,
    success     BOOLEAN NOT NULL,
    error_kind  TEXT NOT NULL DEFAULT '',
    cache_hit   BOOLEAN NOT NULL,
    mock_mode   BOOLEAN NOT NULL,
    memory_mb   DOUBLE PRECISION NOT NULL DEFAULT 0,
    cpu_pct     DOUBLE PRECISION NOT NULL DEFAULT 0,
    metadata    JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_invocations_tool_time ON invocations (tool_name, start_time);
CREATE INDEX IF NOT EXISTS idx_invocations_time ON invocations (start_time);
`

// OpenPostgres connects to the database at dsn and ensures the record schema
// exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append implements RecordStore.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO invocations
			(id, tool_name, start_time, duration_ms, success, error_kind,
			 cache_hit, mock_mode, memory_mb, cpu_pct, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Tool, rec.StartTime, rec.DurationMS, rec.Success,
		rec.ErrorKind, rec.CacheHit, rec.MockMode, rec.MemoryMB, rec.CPUPct,
		metaJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Query implements RecordStore.
func (s *PostgresStore) Query(ctx context.Context, tool string, since time.Time) ([]Record, error) {
	query := `
		SELECT id, tool_name, start_time, duration_ms, success, error_kind,
		       cache_hit, mock_mode, memory_mb, cpu_pct, metadata
		FROM invocations
		WHERE start_time >= $1`
	args := []any{since}
	if tool != "" {
		query += " AND tool_name = $2"
		args = append(args, tool)
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec      Record
			metaJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &rec.StartTime, &rec.DurationMS,
			&rec.Success, &rec.ErrorKind, &rec.CacheHit, &rec.MockMode,
			&rec.MemoryMB, &rec.CPUPct, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.StartTime = rec.StartTime.UTC()
		if len(metaJSON) > 0 && string(metaJSON) != "{}" {
			if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// Tools implements RecordStore.
func (s *PostgresStore) Tools(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT tool_name FROM invocations
		WHERE start_time >= $1 ORDER BY tool_name`, since)
	if err != nil {
		return nil, fmt.Errorf("querying tools: %w", err)
	}
	defer rows.Close()

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

// Prune implements RecordStore.
func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM invocations WHERE start_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close implements RecordStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
