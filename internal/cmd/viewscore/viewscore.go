// Package viewscore parses viewscore command flags and runs a batch
// viewpoint evaluation.
package viewscore

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/viewscore/internal/platform/cmd"
	"github.com/louisbranch/viewscore/internal/platform/i18n/catalog"
	rendererservice "github.com/louisbranch/viewscore/internal/services/renderer/api/grpc/renderer"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/services/renderer/luaengine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/evaluation"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/progress"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/storage/sqlite"
)

// Config holds viewscore command configuration.
type Config struct {
	Volume         string  `env:"VOLUME"`
	RendererConfig string  `env:"CONFIG"`
	Viewpoints     string  `env:"VIEWPOINTS"`
	Entropies      string  `env:"ENTROPIES"`
	KFactor        float64 `env:"KFACTOR"        envDefault:"0.9"`
	OutputFile     string  `env:"OUTPUT_FILE"`
	EngineScript   string  `env:"ENGINE_SCRIPT"`
	RendererAddr   string  `env:"RENDERER_ADDR"`
	ResultsDB      string  `env:"RESULTS_DB"`
	LegacyHeader   bool    `env:"LEGACY_HEADER"`
	OnScoreError   string  `env:"ON_SCORE_ERROR" envDefault:"abort"`
	ProgressWidth  int     `env:"PROGRESS_WIDTH" envDefault:"50"`
	Locale         string  `env:"LOCALE"         envDefault:"en-US"`
	Verbose        bool    `env:"VERBOSE"`
}

// ParseConfig parses environment defaults and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{KFactor: evaluation.DefaultWeight, ProgressWidth: progress.DefaultWidth}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	stringFlag(fs, &cfg.Volume, cfg.Volume, "volume description file", "volume", "v")
	stringFlag(fs, &cfg.RendererConfig, cfg.RendererConfig, "renderer configuration file", "config", "c")
	stringFlag(fs, &cfg.Viewpoints, cfg.Viewpoints, "json file with viewpoints which shall be evaluated", "viewpoints", "p")
	stringFlag(fs, &cfg.Entropies, cfg.Entropies, "output file where the viewpoint entropies are written to", "entropies", "e")
	stringFlag(fs, &cfg.OutputFile, cfg.OutputFile, "batch mode output file", "output-file", "o")
	fs.Float64Var(&cfg.KFactor, "kfactor", cfg.KFactor, "weighting factor for noteworthiness calculation")
	fs.Float64Var(&cfg.KFactor, "k", cfg.KFactor, "shorthand for -kfactor")
	fs.StringVar(&cfg.EngineScript, "engine-script", cfg.EngineScript, "Lua renderer script run in-process")
	fs.StringVar(&cfg.RendererAddr, "renderer-addr", cfg.RendererAddr, "remote renderer address (overrides -engine-script)")
	fs.StringVar(&cfg.ResultsDB, "results-db", cfg.ResultsDB, "SQLite database recording evaluation runs")
	fs.BoolVar(&cfg.LegacyHeader, "legacy-header", cfg.LegacyHeader, "write the second index,red,green,blue,alpha header line")
	fs.StringVar(&cfg.OnScoreError, "on-score-error", cfg.OnScoreError, "scoring failure policy: abort or sentinel")
	fs.IntVar(&cfg.ProgressWidth, "progress-width", cfg.ProgressWidth, "progress bar width in cells")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale of the run summary")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stringFlag(fs *flag.FlagSet, target *string, value, usage, name, short string) {
	fs.StringVar(target, name, value, usage)
	fs.StringVar(target, short, value, "shorthand for -"+name)
}

// Run executes the viewscore command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	policy, err := evaluation.ParsePolicy(cfg.OnScoreError)
	if err != nil {
		return err
	}
	bundle, err := catalog.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("load message catalog: %w", err)
	}
	locale, err := bundle.Match(cfg.Locale)
	if err != nil {
		return err
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceViewscore, func(ctx context.Context) error {
		logger := log.New(errOut, "", 0)
		logf := func(format string, args ...any) {
			if cfg.Verbose {
				logger.Printf(format, args...)
			}
		}

		eng, err := openEngine(ctx, cfg, logger, logf)
		if err != nil {
			return err
		}
		defer func() {
			if err := eng.Close(); err != nil {
				logger.Printf("close renderer: %v", err)
			}
		}()

		var store storage.RunStore
		if path := strings.TrimSpace(cfg.ResultsDB); path != "" {
			sqliteStore, err := openResultsStore(ctx, path)
			if err != nil {
				return err
			}
			defer func() {
				if err := sqliteStore.Close(); err != nil {
					logger.Printf("close results store: %v", err)
				}
			}()
			store = sqliteStore
		}

		runner, err := viewscore.NewRunner(eng, store, viewscore.Config{
			Volume:         cfg.Volume,
			RendererConfig: cfg.RendererConfig,
			Viewpoints:     cfg.Viewpoints,
			Entropies:      cfg.Entropies,
			OutputFile:     cfg.OutputFile,
			ResultsDB:      cfg.ResultsDB,
			Weight:         cfg.KFactor,
			Policy:         policy,
			LegacyHeader:   cfg.LegacyHeader,
			ProgressWidth:  cfg.ProgressWidth,
			Locale:         locale,
			Verbose:        cfg.Verbose,
			Logger:         logger,
		}, out, errOut)
		if err != nil {
			return err
		}
		_, err = runner.Run(ctx)
		return err
	})
}

func openEngine(ctx context.Context, cfg Config, logger *log.Logger, logf func(string, ...any)) (engine.Engine, error) {
	if addr := strings.TrimSpace(cfg.RendererAddr); addr != "" {
		logf("connecting to renderer at %s", addr)
		client, err := rendererservice.Dial(ctx, addr, logf)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	if script := strings.TrimSpace(cfg.EngineScript); script != "" {
		logf("running renderer script %s", script)
		lua, err := luaengine.Open(script, logger)
		if err != nil {
			return nil, err
		}
		return lua, nil
	}
	return nil, errors.New("a renderer is required: set -engine-script or -renderer-addr")
}

func openResultsStore(ctx context.Context, path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open results store: %w", err)
	}
	return store, nil
}
