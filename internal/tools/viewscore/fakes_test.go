package viewscore

import (
	"context"
	"errors"
	"sync"

	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

var errRenderer = errors.New("renderer exploded")

// fakeEngine scores x + 10y + 100z and records every call in order. scoreAt
// overrides the score for a camera X and cancelAt calls cancel before scoring
// that camera X.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	failAt    map[float32]bool
	scoreAt   map[float32]float64
	cancel    context.CancelFunc
	cancelAt  float32
	configErr error
	volumeErr error
	renderErr error
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) LoadConfig(_ context.Context, path string) error {
	f.record("config " + path)
	return f.configErr
}

func (f *fakeEngine) LoadVolume(_ context.Context, path string) error {
	f.record("volume " + path)
	return f.volumeErr
}

func (f *fakeEngine) RenderToFile(_ context.Context, path string) error {
	f.record("render " + path)
	return f.renderErr
}

func (f *fakeEngine) Score(ctx context.Context, vp viewpoint.Viewpoint, _ float64) (float64, error) {
	f.record("score " + vp.String())
	if f.cancel != nil && vp.X == f.cancelAt {
		f.cancel()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.failAt[vp.X] {
		return 0, errRenderer
	}
	if score, ok := f.scoreAt[vp.X]; ok {
		return score, nil
	}
	return float64(vp.X) + 10*float64(vp.Y) + 100*float64(vp.Z), nil
}

func (f *fakeEngine) Close() error {
	return nil
}

type fakeStore struct {
	runs    []storage.Run
	saveErr error
}

func (s *fakeStore) SaveRun(_ context.Context, run storage.Run) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeStore) GetRun(context.Context, string) (storage.RunSummary, error) {
	return storage.RunSummary{}, storage.ErrNotFound
}

func (s *fakeStore) ListRows(context.Context, string) ([]storage.ScoredRow, error) {
	return nil, storage.ErrNotFound
}

func (s *fakeStore) BestRow(context.Context, string) (storage.ScoredRow, error) {
	return storage.ScoredRow{}, storage.ErrNotFound
}
