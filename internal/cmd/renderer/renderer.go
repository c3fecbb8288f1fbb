// Package renderer parses renderer host flags and serves a Lua renderer
// engine over gRPC.
package renderer

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"strings"

	entrypoint "github.com/louisbranch/viewscore/internal/platform/cmd"
	server "github.com/louisbranch/viewscore/internal/services/renderer/app"
	"github.com/louisbranch/viewscore/internal/services/renderer/luaengine"
)

// Config holds renderer host configuration.
type Config struct {
	Addr         string `env:"RENDERER_LISTEN_ADDR" envDefault:"localhost:8095"`
	EngineScript string `env:"ENGINE_SCRIPT"`
}

// ParseConfig parses environment defaults and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The renderer gRPC listen address")
	fs.StringVar(&cfg.EngineScript, "engine-script", cfg.EngineScript, "Lua renderer script to serve")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the renderer until ctx is canceled.
func Run(ctx context.Context, cfg Config, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	if strings.TrimSpace(cfg.EngineScript) == "" {
		return errors.New("engine script is required")
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRenderer, func(ctx context.Context) error {
		logger := log.New(errOut, "[RENDERER] ", 0)
		eng, err := luaengine.Open(cfg.EngineScript, logger)
		if err != nil {
			return err
		}
		srv, err := server.NewWithAddr(cfg.Addr, eng, logger)
		if err != nil {
			_ = eng.Close()
			return err
		}
		return srv.Serve(ctx)
	})
}
