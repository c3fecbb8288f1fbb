package renderer

import (
	"context"
	"sync"

	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

type fakeEngine struct {
	mu       sync.Mutex
	paths    map[string][]string
	scoreErr error
	pathErr  error
	closed   bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{paths: map[string][]string{}}
}

func (f *fakeEngine) record(op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pathErr != nil {
		return f.pathErr
	}
	f.paths[op] = append(f.paths[op], path)
	return nil
}

func (f *fakeEngine) calls(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths[op]...)
}

func (f *fakeEngine) LoadConfig(_ context.Context, path string) error {
	return f.record("config", path)
}

func (f *fakeEngine) LoadVolume(_ context.Context, path string) error {
	return f.record("volume", path)
}

func (f *fakeEngine) RenderToFile(_ context.Context, path string) error {
	return f.record("render", path)
}

func (f *fakeEngine) Score(_ context.Context, vp viewpoint.Viewpoint, k float64) (float64, error) {
	if f.scoreErr != nil {
		return 0, f.scoreErr
	}
	return float64(vp.X) + 10*float64(vp.Y) + 100*float64(vp.Z) + k, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
