package renderer

import (
	"context"
	"errors"
	"net"
	"testing"

	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

func startBufconnClient(t *testing.T, eng engine.Engine) *Client {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	RegisterRendererServiceServer(server, NewService(eng))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	client := startBufconnClient(t, eng)
	ctx := context.Background()

	if err := client.LoadConfig(ctx, "render.cfg"); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := client.LoadVolume(ctx, "head.dat"); err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	score, err := client.Score(ctx, viewpoint.Viewpoint{X: 1, Y: 2, Z: 3}, 0.25)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 321.25 {
		t.Fatalf("score = %v, want 321.25", score)
	}
	if err := client.RenderToFile(ctx, "out.png"); err != nil {
		t.Fatalf("RenderToFile: %v", err)
	}

	if got := eng.calls("volume"); len(got) != 1 || got[0] != "head.dat" {
		t.Fatalf("volume calls = %v, want [head.dat]", got)
	}
	if got := eng.calls("render"); len(got) != 1 || got[0] != "out.png" {
		t.Fatalf("render calls = %v, want [out.png]", got)
	}

	// NewClient does not own the connection.
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if eng.closed {
		t.Fatal("remote engine closed by client")
	}
}

func TestClientPreservesDomainErrorCodes(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine()
	eng.scoreErr = apperrors.WrapWithMetadata(
		apperrors.CodeEngineFailed,
		"score",
		map[string]string{"hook": "score"},
		errors.New("no volume loaded"),
	)
	eng.pathErr = engine.ErrUnsupported
	client := startBufconnClient(t, eng)
	ctx := context.Background()

	_, err := client.Score(ctx, viewpoint.Viewpoint{}, 0.9)
	if !apperrors.HasCode(err, apperrors.CodeEngineFailed) {
		t.Fatalf("Score error = %v, want %s", err, apperrors.CodeEngineFailed)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["hook"] != "score" {
		t.Fatalf("Score error metadata = %v, want hook=score", err)
	}

	if err := client.LoadConfig(ctx, "render.cfg"); !errors.Is(err, engine.ErrUnsupported) {
		t.Fatalf("LoadConfig error = %v, want ErrUnsupported", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	t.Parallel()

	var client *Client
	if _, err := client.Score(context.Background(), viewpoint.Viewpoint{}, 0.9); err == nil {
		t.Fatal("expected error for nil client")
	}
	if err := client.LoadVolume(context.Background(), "vol.dat"); err == nil {
		t.Fatal("expected error for nil client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close nil client: %v", err)
	}
}
