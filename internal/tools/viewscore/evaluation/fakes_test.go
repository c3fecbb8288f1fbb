package evaluation

import (
	"context"
	"errors"

	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

type scoreCall struct {
	vp viewpoint.Viewpoint
	k  float64
}

// recordingScorer returns x + 10*y + 100*z for each viewpoint and fails
// on the configured indices. scoreAt overrides the returned score and
// cancel is invoked before scoring the given index.
type recordingScorer struct {
	calls    []scoreCall
	failAt   map[int]error
	scoreAt  map[int]float64
	cancel   func()
	cancelAt int
}

func (s *recordingScorer) Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error) {
	index := len(s.calls)
	s.calls = append(s.calls, scoreCall{vp: vp, k: k})
	if s.cancel != nil && index == s.cancelAt {
		s.cancel()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err, ok := s.failAt[index]; ok {
		return 0, err
	}
	if score, ok := s.scoreAt[index]; ok {
		return score, nil
	}
	return float64(vp.X) + 10*float64(vp.Y) + 100*float64(vp.Z), nil
}

var errRenderer = errors.New("renderer: transfer function missing")
