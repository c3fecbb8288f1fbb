// Package evaluation scores a sequence of viewpoints in order and reports
// progress as it goes.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/platform/otel"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/progress"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationScope = "github.com/louisbranch/viewscore/internal/tools/viewscore/evaluation"

// DefaultWeight is the weighting factor k used when none is configured.
const DefaultWeight = 0.9

// Sentinel is the score held by slots that were never filled or whose
// scoring call failed under PolicySentinel.
const Sentinel = 0.0

// Scorer computes the entropy score of one viewpoint for weighting factor k.
type Scorer interface {
	Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error)

// Score implements Scorer.
func (fn ScorerFunc) Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error) {
	return fn(ctx, vp, k)
}

// Policy decides what a scoring failure does to the rest of the batch.
type Policy int

const (
	// PolicyAbort stops the batch at the first failed scoring call.
	PolicyAbort Policy = iota
	// PolicySentinel records Sentinel for the failed viewpoint and continues.
	PolicySentinel
)

// String returns the flag spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicySentinel:
		return "sentinel"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy parses "abort" or "sentinel".
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "abort":
		return PolicyAbort, nil
	case "sentinel":
		return PolicySentinel, nil
	default:
		return PolicyAbort, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown score failure policy %q (want abort or sentinel)", value))
	}
}

// Failure records one failed scoring call.
type Failure struct {
	Index int
	Err   error
}

// Outcome holds the scores of a batch. Scores is always index-aligned with
// the evaluated sequence.
type Outcome struct {
	Scores   []float64
	Failures []Failure
}

// FailedIndices returns the indices whose score is a failure sentinel.
func (o Outcome) FailedIndices() []int {
	if len(o.Failures) == 0 {
		return nil
	}
	indices := make([]int, len(o.Failures))
	for i, failure := range o.Failures {
		indices[i] = failure.Index
	}
	return indices
}

// Evaluator drives one scoring call per viewpoint, strictly in index order.
type Evaluator struct {
	Scorer Scorer
	// Weight is the factor k passed to every scoring call.
	Weight float64
	// Progress receives the progress bar; nil discards it.
	Progress io.Writer
	// Width is the bar width in cells; non-positive uses progress.DefaultWidth.
	Width  int
	Policy Policy
}

// Evaluate scores every viewpoint of seq.
//
// The bar is rendered before each call and advanced after it; after the loop
// it is advanced once more and rendered to emit the final "Done!" line. Under
// PolicyAbort the first failure ends the batch with an error and the partial
// Outcome; the remaining slots hold Sentinel. A failure seen after ctx is
// done ends the batch under either policy. NaN and infinite scores count as
// failures.
func (e Evaluator) Evaluate(ctx context.Context, seq viewpoint.Sequence) (Outcome, error) {
	if e.Scorer == nil {
		return Outcome{}, apperrors.New(apperrors.CodeInvalidArgument, "scorer is required")
	}
	out := e.Progress
	if out == nil {
		out = io.Discard
	}

	ctx, span := otel.Tracer(instrumentationScope).Start(ctx, "evaluate viewpoints", trace.WithAttributes(
		attribute.Int("viewscore.viewpoints", len(seq)),
		attribute.Float64("viewscore.k", e.Weight),
		attribute.String("viewscore.policy", e.Policy.String()),
	))
	defer span.End()

	outcome := Outcome{Scores: make([]float64, len(seq))}
	bar := progress.New(e.Width, len(seq))

	for index, vp := range seq {
		if line, ok := bar.Tick(); ok {
			_, _ = io.WriteString(out, line)
		}

		score, err := e.scoreOne(ctx, index, vp)
		if err != nil {
			ctxErr := ctx.Err()
			if ctxErr != nil {
				err = fmt.Errorf("evaluation interrupted at viewpoint %d: %w", index, ctxErr)
			}
			if e.Policy != PolicySentinel || ctxErr != nil {
				_, _ = io.WriteString(out, "\n")
				span.RecordError(err)
				span.SetStatus(codes.Error, "scoring aborted")
				return outcome, err
			}
			outcome.Failures = append(outcome.Failures, Failure{Index: index, Err: err})
			score = Sentinel
		}
		outcome.Scores[index] = score
		bar.Advance()
	}

	bar.Advance()
	if line, ok := bar.Tick(); ok {
		_, _ = io.WriteString(out, line)
	}

	span.SetAttributes(attribute.Int("viewscore.failures", len(outcome.Failures)))
	return outcome, nil
}

func (e Evaluator) scoreOne(ctx context.Context, index int, vp viewpoint.Viewpoint) (float64, error) {
	ctx, span := otel.Tracer(instrumentationScope).Start(ctx, "score viewpoint", trace.WithAttributes(
		attribute.Int("viewscore.index", index),
		attribute.Float64Slice("viewscore.position", []float64{float64(vp.X), float64(vp.Y), float64(vp.Z)}),
	))
	defer span.End()

	score, err := e.Scorer.Score(ctx, vp, e.Weight)
	if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
		err = errNonFinite{score: score}
	}
	if err != nil {
		err = apperrors.WrapWithMetadata(
			apperrors.CodeScoreFailed,
			fmt.Sprintf("score viewpoint %d %s", index, vp),
			map[string]string{"index": strconv.Itoa(index)},
			err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "score failed")
		return 0, err
	}
	span.SetAttributes(attribute.Float64("viewscore.score", score))
	return score, nil
}

// errNonFinite rejects NaN and infinite scores so they follow the failure
// policy instead of reaching the results.
type errNonFinite struct {
	score float64
}

func (e errNonFinite) Error() string {
	return "scorer returned non-finite score " + strconv.FormatFloat(e.score, 'g', -1, 64)
}
