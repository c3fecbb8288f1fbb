package renderer

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	platformgrpc "github.com/louisbranch/viewscore/internal/platform/grpc"
	"github.com/louisbranch/viewscore/internal/platform/timeouts"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is an engine.Engine backed by a remote renderer host.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	owned   bool
}

var _ engine.Engine = (*Client)(nil)

// Dial connects to the renderer host at addr and waits until it reports
// SERVING. The returned client owns the connection.
func Dial(ctx context.Context, addr string, logf func(string, ...any)) (*Client, error) {
	conn, err := platformgrpc.Connect(ctx, grpc.NewClient, addr, ServiceName, timeouts.RendererDial, logf, platformgrpc.ClientOptions()...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEngineFailed, "connect renderer", err)
	}
	client := NewClient(conn)
	client.owned = true
	return client, nil
}

// NewClient wraps an existing connection. Close leaves conn open.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, timeout: timeouts.RendererRequest}
}

// LoadConfig implements engine.Engine.
func (c *Client) LoadConfig(ctx context.Context, path string) error {
	return c.pathCall(ctx, loadConfigMethod, path)
}

// LoadVolume implements engine.Engine.
func (c *Client) LoadVolume(ctx context.Context, path string) error {
	return c.pathCall(ctx, loadVolumeMethod, path)
}

// RenderToFile implements engine.Engine.
func (c *Client) RenderToFile(ctx context.Context, path string) error {
	return c.pathCall(ctx, renderToFileMethod, path)
}

// Score implements engine.Engine.
func (c *Client) Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error) {
	if c == nil || c.conn == nil {
		return 0, errNotConnected
	}
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldX: structpb.NewNumberValue(float64(vp.X)),
		fieldY: structpb.NewNumberValue(float64(vp.Y)),
		fieldZ: structpb.NewNumberValue(float64(vp.Z)),
		fieldK: structpb.NewNumberValue(k),
	}}
	out := new(wrapperspb.DoubleValue)

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.conn.Invoke(callCtx, scoreViewpointMethod, in, out); err != nil {
		return 0, apperrors.FromGRPCStatus(err, apperrors.CodeEngineFailed)
	}
	return out.GetValue(), nil
}

// Close closes the connection when the client owns it.
func (c *Client) Close() error {
	if c == nil || c.conn == nil || !c.owned {
		return nil
	}
	return c.conn.Close()
}

var errNotConnected = errors.New("renderer client is not connected")

func (c *Client) pathCall(ctx context.Context, method, path string) error {
	if c == nil || c.conn == nil {
		return errNotConnected
	}
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPath: structpb.NewStringValue(path),
	}}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.conn.Invoke(callCtx, method, in, new(emptypb.Empty)); err != nil {
		return apperrors.FromGRPCStatus(err, apperrors.CodeEngineFailed)
	}
	return nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
