package records

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Run summarizes one persisted pipeline run.
type Run struct {
	ID          string
	Source      string
	State       string
	StartedAt   time.Time
	FinishedAt  time.Time
	RecordCount int
}

// Store persists runs and their records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the records database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has v%d, expected v%d (remove %s)", ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// SaveRun stores run and its records in one transaction, replacing any
// previous copy of the same run ID.
func (s *Store) SaveRun(ctx context.Context, run Run, recs []TextRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM text_records WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("replace records of %s: %w", run.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return fmt.Errorf("replace run %s: %w", run.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, state, started_at, finished_at, record_count) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.State,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		len(recs),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO text_records (run_id, frame_number, timestamp, processing_type, text, confidence, bounding_boxes_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		var confidence any
		if rec.Confidence != 0 {
			confidence = rec.Confidence
		}
		var boxes any
		if len(rec.BoundingBoxes) > 0 {
			data, err := json.Marshal(rec.BoundingBoxes)
			if err != nil {
				return fmt.Errorf("marshal bounding boxes for frame %d: %w", rec.FrameNumber, err)
			}
			boxes = string(data)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, int64(rec.FrameNumber), rec.Timestamp, rec.ProcessingType, rec.Text, confidence, boxes); err != nil {
			return fmt.Errorf("insert record frame %d: %w", rec.FrameNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, state, started_at, finished_at, record_count FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Source, &run.State, &started, &finished, &run.RecordCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Records returns the records of one run ordered by frame number.
func (s *Store) Records(ctx context.Context, runID string) ([]TextRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_number, timestamp, processing_type, text, confidence, bounding_boxes_json
         FROM text_records WHERE run_id = ? ORDER BY frame_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records for %s: %w", runID, err)
	}
	defer rows.Close()

	var recs []TextRecord
	for rows.Next() {
		var (
			rec        TextRecord
			frame      int64
			confidence sql.NullFloat64
			boxes      sql.NullString
		)
		if err := rows.Scan(&frame, &rec.Timestamp, &rec.ProcessingType, &rec.Text, &confidence, &boxes); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.FrameNumber = uint64(frame)
		if confidence.Valid {
			rec.Confidence = confidence.Float64
		}
		if boxes.Valid && boxes.String != "" {
			if err := json.Unmarshal([]byte(boxes.String), &rec.BoundingBoxes); err != nil {
				return nil, fmt.Errorf("decode bounding boxes for frame %d: %w", frame, err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
