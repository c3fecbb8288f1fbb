// Package storage defines persistence contracts for evaluation runs.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/results"
)

var (
	// ErrNotFound indicates a requested run is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a run with the same id was already saved.
	ErrAlreadyExists = apperrors.New(apperrors.CodeRunAlreadyExists, "record already exists")
)

// Run is one completed batch evaluation.
type Run struct {
	ID             string
	ViewpointsPath string
	Weight         float64
	CreatedAt      time.Time
	Rows           []results.Row
	// Failed lists row indices whose score is a failure sentinel.
	Failed []int
}

// RunSummary describes a stored run without its rows.
type RunSummary struct {
	ID             string
	ViewpointsPath string
	Weight         float64
	ViewpointCount int
	FailedCount    int
	CreatedAt      time.Time
}

// ScoredRow is one stored row.
type ScoredRow struct {
	results.Row
	Failed bool
}

// RunStore persists evaluation runs for later viewpoint selection.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (RunSummary, error)
	ListRows(ctx context.Context, runID string) ([]ScoredRow, error)
	BestRow(ctx context.Context, runID string) (ScoredRow, error)
}
