// Package sqlite provides a SQLite-backed store for evaluation runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/viewscore/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/results"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage/sqlite/migrations"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists evaluation runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.RunStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the results database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun inserts a run and all of its rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, run storage.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	runID := strings.TrimSpace(run.ID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	failed := make(map[int]bool, len(run.Failed))
	for _, index := range run.Failed {
		failed[index] = true
	}
	// The score column is NOT NULL and SQLite stores NaN as NULL.
	for _, row := range run.Rows {
		if !isFinite(row.Score) {
			failed[row.Index] = true
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO evaluation_runs (
		   id, viewpoints_path, weight, viewpoint_count, failed_count, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		run.ViewpointsPath,
		run.Weight,
		len(run.Rows),
		len(failed),
		toMillis(createdAt),
	); err != nil {
		if isPrimaryKeyViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO viewpoint_scores (run_id, idx, cam_x, cam_y, cam_z, score, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare score insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range run.Rows {
		score := row.Score
		if !isFinite(score) {
			score = 0
		}
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			row.Index,
			float64(row.Viewpoint.X),
			float64(row.Viewpoint.Y),
			float64(row.Viewpoint.Z),
			score,
			boolToInt(failed[row.Index]),
		); err != nil {
			return fmt.Errorf("insert score %d: %w", row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// GetRun returns the summary of one run.
func (s *Store) GetRun(ctx context.Context, runID string) (storage.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.RunSummary{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RunSummary{}, fmt.Errorf("storage is not configured")
	}

	var summary storage.RunSummary
	var createdAt int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, viewpoints_path, weight, viewpoint_count, failed_count, created_at
		   FROM evaluation_runs
		  WHERE id = ?`,
		strings.TrimSpace(runID),
	).Scan(
		&summary.ID,
		&summary.ViewpointsPath,
		&summary.Weight,
		&summary.ViewpointCount,
		&summary.FailedCount,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RunSummary{}, storage.ErrNotFound
		}
		return storage.RunSummary{}, fmt.Errorf("get run: %w", err)
	}
	summary.CreatedAt = fromMillis(createdAt)
	return summary, nil
}

// ListRows returns the rows of a run in index order.
func (s *Store) ListRows(ctx context.Context, runID string) ([]storage.ScoredRow, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT idx, cam_x, cam_y, cam_z, score, failed
		   FROM viewpoint_scores
		  WHERE run_id = ?
		  ORDER BY idx`,
		strings.TrimSpace(runID),
	)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []storage.ScoredRow
	for rows.Next() {
		row, err := scanScoredRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// BestRow returns the highest-scoring non-failed row of a run; ties keep the
// lowest index.
func (s *Store) BestRow(ctx context.Context, runID string) (storage.ScoredRow, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return storage.ScoredRow{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT idx, cam_x, cam_y, cam_z, score, failed
		   FROM viewpoint_scores
		  WHERE run_id = ? AND failed = 0
		  ORDER BY score DESC, idx ASC
		  LIMIT 1`,
		strings.TrimSpace(runID),
	)
	best, err := scanScoredRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ScoredRow{}, storage.ErrNotFound
		}
		return storage.ScoredRow{}, fmt.Errorf("best row: %w", err)
	}
	return best, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScoredRow(scanner rowScanner) (storage.ScoredRow, error) {
	var (
		index   int
		x, y, z float64
		score   float64
		failed  int
	)
	if err := scanner.Scan(&index, &x, &y, &z, &score, &failed); err != nil {
		return storage.ScoredRow{}, err
	}
	return storage.ScoredRow{
		Row: results.Row{
			Index:     index,
			Viewpoint: viewpoint.Viewpoint{X: float32(x), Y: float32(y), Z: float32(z)},
			Score:     score,
		},
		Failed: failed != 0,
	}, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
