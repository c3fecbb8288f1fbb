package engine

import (
	"context"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

// ErrUnsupported is returned for operations an engine does not provide.
var ErrUnsupported = apperrors.New(apperrors.CodeEngineUnsupported, "operation not supported by renderer")

// Engine is a volume renderer able to score viewpoints.
type Engine interface {
	// LoadConfig applies a renderer configuration file.
	LoadConfig(ctx context.Context, path string) error
	// LoadVolume loads the volume dataset described by path.
	LoadVolume(ctx context.Context, path string) error
	// Score returns the timeseries view entropy of vp for weighting factor k.
	Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error)
	// RenderToFile renders the current view to an image at path.
	RenderToFile(ctx context.Context, path string) error
	// Close releases engine resources.
	Close() error
}
