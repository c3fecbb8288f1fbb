// Package viewscore runs the batch viewpoint evaluation: it prepares the
// renderer, scores every candidate viewpoint, writes the entropy table,
// records the run, and optionally renders the final view.
package viewscore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/viewscore/internal/platform/i18n/catalog"
	"github.com/louisbranch/viewscore/internal/platform/id"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/evaluation"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/results"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Config describes one batch.
type Config struct {
	// Volume is the volume dataset description; empty skips volume loading.
	Volume string
	// RendererConfig is the renderer configuration file; empty skips it.
	RendererConfig string
	// Viewpoints is the viewpoint file; empty skips evaluation.
	Viewpoints string
	// Entropies is the CSV output path; empty skips writing the table.
	Entropies string
	// OutputFile is the rendered image path; empty skips rendering.
	OutputFile string
	// ResultsDB names the results database shown in the summary.
	ResultsDB     string
	Weight        float64
	Policy        evaluation.Policy
	LegacyHeader  bool
	ProgressWidth int
	Locale        language.Tag
	Verbose       bool
	Logger        *log.Logger
}

// Report summarizes a finished batch.
type Report struct {
	RunID       string
	Viewpoints  viewpoint.Sequence
	Scores      []float64
	Failed      []int
	Best        int
	HasBest     bool
	Diagnostics []viewpoint.Diagnostic
	Rendered    string
}

// Runner executes batches against one renderer engine.
type Runner struct {
	engine  engine.Engine
	store   storage.RunStore
	cfg     Config
	out     io.Writer
	errOut  io.Writer
	printer *message.Printer
	newID   func() (string, error)
	clock   func() time.Time
}

// NewRunner creates a runner. store may be nil to skip recording runs. Progress
// and summaries go to out; loader diagnostics go to errOut.
func NewRunner(eng engine.Engine, store storage.RunStore, cfg Config, out, errOut io.Writer) (*Runner, error) {
	if eng == nil {
		return nil, errors.New("renderer engine is required")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	bundle, err := catalog.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	locale := cfg.Locale
	if locale == language.Und {
		locale = language.MustParse(catalog.BaseLocale)
	}
	return &Runner{
		engine:  eng,
		store:   store,
		cfg:     cfg,
		out:     out,
		errOut:  errOut,
		printer: bundle.Printer(locale),
		newID:   id.NewID,
		clock:   time.Now,
	}, nil
}

// Run prepares the renderer and executes every configured stage in order.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var report Report

	if path := strings.TrimSpace(r.cfg.RendererConfig); path != "" {
		r.logf("loading renderer config %s", path)
		if err := r.engine.LoadConfig(ctx, path); err != nil {
			return report, fmt.Errorf("load renderer config %s: %w", path, err)
		}
	}
	if path := strings.TrimSpace(r.cfg.Volume); path != "" {
		r.logf("loading volume %s", path)
		if err := r.engine.LoadVolume(ctx, path); err != nil {
			return report, fmt.Errorf("load volume %s: %w", path, err)
		}
	}

	if path := strings.TrimSpace(r.cfg.Viewpoints); path != "" {
		var err error
		report, err = r.evaluate(ctx, path)
		if err != nil {
			return report, err
		}
	}

	if path := strings.TrimSpace(r.cfg.OutputFile); path != "" {
		if err := r.engine.RenderToFile(ctx, path); err != nil {
			return report, fmt.Errorf("failed rendering to %s: %w", path, err)
		}
		report.Rendered = path
		fmt.Fprintf(r.out, "Successfully rendered to %s\n", path)
	}
	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, path string) (Report, error) {
	loaded := viewpoint.LoadFile(path)
	if !loaded.OK() {
		fmt.Fprintf(r.errOut, "Error loading viewpoints from file: %s\n", path)
		for _, diagnostic := range loaded.Diagnostics {
			fmt.Fprintf(r.errOut, "  %v\n", diagnostic)
		}
	}
	report := Report{Viewpoints: loaded.Viewpoints, Diagnostics: loaded.Diagnostics}
	r.logf("evaluating %d viewpoints from %s (k=%v)", len(loaded.Viewpoints), path, r.cfg.Weight)

	evaluator := evaluation.Evaluator{
		Scorer:   r.engine,
		Weight:   r.cfg.Weight,
		Progress: r.out,
		Width:    r.cfg.ProgressWidth,
		Policy:   r.cfg.Policy,
	}
	outcome, err := evaluator.Evaluate(ctx, loaded.Viewpoints)
	report.Scores = outcome.Scores
	report.Failed = outcome.FailedIndices()
	if err != nil {
		return report, err
	}
	for _, failure := range outcome.Failures {
		fmt.Fprintf(r.errOut, "Warning: %v\n", failure.Err)
	}
	report.Best, report.HasBest = results.Best(report.Scores, report.Failed)

	if entropies := strings.TrimSpace(r.cfg.Entropies); entropies != "" {
		if err := results.WriteFile(entropies, report.Viewpoints, report.Scores, results.Options{LegacyHeader: r.cfg.LegacyHeader}); err != nil {
			return report, err
		}
		r.printLine("summary.results", entropies)
	}

	if r.store != nil {
		runID, err := r.saveRun(ctx, path, report)
		if err != nil {
			return report, err
		}
		report.RunID = runID
	}

	r.printSummary(report)
	return report, nil
}

func (r *Runner) saveRun(ctx context.Context, path string, report Report) (string, error) {
	runID, err := r.newID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	rows, err := results.Rows(report.Viewpoints, report.Scores)
	if err != nil {
		return "", err
	}
	run := storage.Run{
		ID:             runID,
		ViewpointsPath: path,
		Weight:         r.cfg.Weight,
		CreatedAt:      r.clock().UTC(),
		Rows:           rows,
		Failed:         report.Failed,
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return "", fmt.Errorf("save run %s: %w", runID, err)
	}
	r.logf("saved run %s with %d rows", runID, len(rows))
	return runID, nil
}

func (r *Runner) printSummary(report Report) {
	r.printLine("summary.evaluated", len(report.Viewpoints), len(report.Failed))
	switch {
	case report.HasBest:
		best := report.Viewpoints[report.Best]
		r.printLine("summary.best", report.Best, best.String(), report.Scores[report.Best])
	case len(report.Viewpoints) > 0:
		r.printLine("summary.no_best")
	}
	if report.RunID != "" {
		r.printLine("summary.run", report.RunID, r.cfg.ResultsDB)
	}
}

// printLine writes one localized catalog message followed by a newline.
func (r *Runner) printLine(key string, args ...any) {
	r.printer.Fprintf(r.out, key, args...)
	fmt.Fprintln(r.out)
}

func (r *Runner) logf(format string, args ...any) {
	if !r.cfg.Verbose || r.cfg.Logger == nil {
		return
	}
	r.cfg.Logger.Printf(format, args...)
}
