// Package database exports the verdicts of a run to SQLite for later audit.
// The pipeline only writes here; nothing is ever read back into a run.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"photocull/logging"
	"photocull/types"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens dbPath and creates the audit table if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cull_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		folder TEXT NOT NULL,
		created_at TEXT NOT NULL,
		ai_mode INTEGER NOT NULL,
		stem TEXT NOT NULL,
		path TEXT NOT NULL,
		jpeg_path TEXT,
		raf_path TEXT,
		captured_at TEXT,
		sharpness REAL,
		brightness REAL,
		sharpness_score REAL,
		exposure_score REAL,
		face_score REAL,
		uniqueness_score REAL,
		series_score REAL,
		face_count INTEGER,
		all_eyes_closed INTEGER,
		hash TEXT,
		duplicate_group INTEGER,
		is_worst_duplicate INTEGER,
		series_group INTEGER,
		is_best_in_series INTEGER,
		composite_score REAL,
		rating INTEGER NOT NULL,
		rating_reason TEXT,
		UNIQUE(run_id, stem)
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON cull_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_stem ON cull_results(stem);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// Columns added after the first schema
	for _, col := range []struct{ name, def string }{
		{"ai_score", "REAL"},
		{"load_error", "TEXT"},
	} {
		if err := ensureColumn(db, "cull_results", col.name, col.def); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func ensureColumn(db *sql.DB, table, column, def string) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&count)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %w", column, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, def)); err != nil {
		return fmt.Errorf("error adding %s column: %w", column, err)
	}
	logger := logging.WithComponent("database")
	logger.Debug().Str("column", column).Msg("added column to existing audit schema")
	return nil
}

// NewRunID returns a fresh identifier for one run
func NewRunID() string {
	return uuid.NewString()
}

// StoreRun inserts one row per record under runID in a single transaction
func StoreRun(db *sql.DB, runID, folder string, records []types.PhotoRecord, aiMode bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO cull_results (
			run_id, folder, created_at, ai_mode, stem, path, jpeg_path, raf_path, captured_at,
			sharpness, brightness, sharpness_score, exposure_score, face_score, uniqueness_score,
			series_score, ai_score, face_count, all_eyes_closed, hash, duplicate_group,
			is_worst_duplicate, series_group, is_best_in_series, composite_score, rating,
			rating_reason, load_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.Exec(
			runID, folder, now, aiMode, r.Stem, r.Path, nullString(r.JPEGPath), nullString(r.RAFPath),
			capturedAt(r), r.Sharpness, r.Brightness, r.SharpnessScore, r.ExposureScore, r.FaceScore,
			r.UniquenessScore, r.SeriesScore, r.AIScore, r.FaceCount, r.AllEyesClosed, nullString(r.Hash),
			r.DuplicateGroup, r.IsWorstDuplicate, r.SeriesGroup, r.IsBestInSeries, r.CompositeScore,
			r.Rating, r.RatingReason, nullString(r.LoadError),
		)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", r.Stem, err)
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func capturedAt(r types.PhotoRecord) sql.NullString {
	if !r.HasTimestamp() {
		return sql.NullString{}
	}
	return sql.NullString{String: r.CapturedAt.Format(time.RFC3339), Valid: true}
}
