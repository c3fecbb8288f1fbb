// Package renderer exposes a renderer engine over gRPC and provides the
// matching client.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Request field names.
const (
	fieldPath = "path"
	fieldX    = "x"
	fieldY    = "y"
	fieldZ    = "z"
	fieldK    = "k"
)

// Service serves a renderer engine.
type Service struct {
	UnimplementedRendererServiceServer
	engine engine.Engine
}

// NewService creates a renderer service backed by eng.
func NewService(eng engine.Engine) *Service {
	return &Service{engine: eng}
}

// LoadConfig applies a renderer configuration file.
func (s *Service) LoadConfig(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	return s.pathCall(ctx, in, func(ctx context.Context, path string) error {
		return s.engine.LoadConfig(ctx, path)
	})
}

// LoadVolume loads a volume dataset.
func (s *Service) LoadVolume(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	return s.pathCall(ctx, in, func(ctx context.Context, path string) error {
		return s.engine.LoadVolume(ctx, path)
	})
}

// RenderToFile renders the current view to an image file.
func (s *Service) RenderToFile(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	return s.pathCall(ctx, in, func(ctx context.Context, path string) error {
		return s.engine.RenderToFile(ctx, path)
	})
}

// ScoreViewpoint scores one viewpoint.
func (s *Service) ScoreViewpoint(ctx context.Context, in *structpb.Struct) (*wrapperspb.DoubleValue, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "score viewpoint request is required")
	}
	if s == nil || s.engine == nil {
		return nil, status.Error(codes.Internal, "renderer engine is not configured")
	}

	var coords [4]float64
	for i, name := range []string{fieldX, fieldY, fieldZ, fieldK} {
		value, err := numberField(in, name)
		if err != nil {
			return nil, toStatus(err)
		}
		coords[i] = value
	}
	vp := viewpoint.Viewpoint{X: float32(coords[0]), Y: float32(coords[1]), Z: float32(coords[2])}

	score, err := s.engine.Score(ctx, vp, coords[3])
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Double(score), nil
}

func (s *Service) pathCall(ctx context.Context, in *structpb.Struct, call func(context.Context, string) error) (*emptypb.Empty, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if s == nil || s.engine == nil {
		return nil, status.Error(codes.Internal, "renderer engine is not configured")
	}
	path, err := stringField(in, fieldPath)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := call(ctx, path); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func stringField(in *structpb.Struct, name string) (string, error) {
	value, ok := in.GetFields()[name]
	if !ok {
		return "", apperrors.New(apperrors.CodeInvalidArgument, name+" is required")
	}
	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok || strings.TrimSpace(str.StringValue) == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, name+" must be a non-empty string")
	}
	return str.StringValue, nil
}

func numberField(in *structpb.Struct, name string) (float64, error) {
	value, ok := in.GetFields()[name]
	if !ok {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, name+" is required")
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("%s must be a number", name))
	}
	return number.NumberValue, nil
}

// toStatus converts engine errors to gRPC statuses. Domain errors keep their
// code in an ErrorInfo detail.
func toStatus(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.ToGRPCStatus()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}
