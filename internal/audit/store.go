package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store is a sqlite-backed Recorder. Writes are single statements, so they
// are atomic with respect to each other; WAL mode keeps concurrent batch
// item writers from blocking one another.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the audit database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id             TEXT PRIMARY KEY,
		correlation_id TEXT NOT NULL,
		tool_name      TEXT NOT NULL,
		started_at     TIMESTAMP NOT NULL,
		completed_at   TIMESTAMP,
		duration_ms    INTEGER,
		status         TEXT NOT NULL,
		input_excerpt  TEXT,
		output_excerpt TEXT,
		error_kind     TEXT,
		error_message  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_correlation ON invocations(correlation_id);
	CREATE INDEX IF NOT EXISTS idx_invocations_started ON invocations(started_at);
	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool_name);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// Begin inserts the "started" record for one invocation.
func (s *Store) Begin(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, correlation_id, tool_name, started_at, status, input_excerpt)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CorrelationID, rec.ToolName, rec.StartedAt, StatusStarted, rec.InputExcerpt,
	)
	if err != nil {
		return &BackendError{Op: "begin", Err: err}
	}
	return nil
}

// Complete applies the single completion update to a started record.
// Already-finalized records are left untouched.
func (s *Store) Complete(ctx context.Context, recordID string, c Completion) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invocations
		 SET completed_at = ?, duration_ms = ?, status = ?, output_excerpt = ?, error_kind = ?, error_message = ?
		 WHERE id = ? AND completed_at IS NULL`,
		c.CompletedAt, c.DurationMS, c.Status, c.OutputExcerpt, c.ErrorKind, c.ErrorMessage, recordID,
	)
	if err != nil {
		return &BackendError{Op: "complete", Err: err}
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		s.logger.Warn().Str("record_id", recordID).Msg("Completion update matched no open record")
	}
	return nil
}

// ByCorrelation returns all records sharing a correlation ID, including
// batch item children (their correlation IDs carry the parent as a prefix).
func (s *Store) ByCorrelation(ctx context.Context, correlationID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, correlation_id, tool_name, started_at, completed_at, duration_ms,
		        status, input_excerpt, output_excerpt, error_kind, error_message
		 FROM invocations
		 WHERE correlation_id = ? OR correlation_id LIKE ? || '#%'
		 ORDER BY started_at`,
		correlationID, correlationID,
	)
	if err != nil {
		return nil, &BackendError{Op: "query", Err: err}
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Recent returns the most recently started records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, correlation_id, tool_name, started_at, completed_at, duration_ms,
		        status, input_excerpt, output_excerpt, error_kind, error_message
		 FROM invocations
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, &BackendError{Op: "query", Err: err}
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Stats aggregates outcomes for one tool from the finalized records.
func (s *Store) Stats(ctx context.Context, toolName string) (ToolStats, error) {
	stats := ToolStats{ToolName: toolName}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(duration_ms), 0)
		 FROM invocations
		 WHERE tool_name = ? AND completed_at IS NOT NULL`,
		StatusSuccess, StatusError, toolName,
	)

	if err := row.Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &stats.AvgDurationMS); err != nil {
		return stats, &BackendError{Op: "stats", Err: err}
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var completedAt sql.NullTime
		var durationMS sql.NullInt64
		var input, output, kind, message sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.CorrelationID, &rec.ToolName, &rec.StartedAt,
			&completedAt, &durationMS, &rec.Status, &input, &output, &kind, &message,
		); err != nil {
			return nil, &BackendError{Op: "scan", Err: err}
		}

		if completedAt.Valid {
			t := completedAt.Time
			rec.CompletedAt = &t
		}
		if durationMS.Valid {
			d := durationMS.Int64
			rec.DurationMS = &d
		}
		rec.InputExcerpt = input.String
		rec.OutputExcerpt = output.String
		rec.ErrorKind = kind.String
		rec.ErrorMessage = message.String

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &BackendError{Op: "scan", Err: err}
	}
	return records, nil
}
