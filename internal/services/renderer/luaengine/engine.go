// Package luaengine runs a renderer script written in Lua.
//
// The script must define a global function score(x, y, z, k) returning a
// number. It may also define load_config(path), load_volume(path) and
// render(path); calling an undefined hook fails with
// engine.ErrUnsupported. Scripts report failures with error(...).
//
// A viewscore table is available to scripts:
//
//	viewscore.log(message)   -- writes to the engine logger
//	viewscore.volume         -- path passed to the last successful load_volume
package luaengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	apperrors "github.com/louisbranch/viewscore/internal/platform/errors"
	"github.com/louisbranch/viewscore/internal/services/renderer/engine"
	"github.com/louisbranch/viewscore/internal/tools/viewscore/viewpoint"
)

const (
	scoreFunction   = "score"
	configHook      = "load_config"
	volumeHook      = "load_volume"
	renderHook      = "render"
	moduleTableName = "viewscore"
)

// Engine is a renderer backed by a Lua state. A Lua state is not safe for
// concurrent use, so every call holds mu.
type Engine struct {
	mu     sync.Mutex
	state  *lua.State
	script string
	logger *log.Logger
	closed bool
}

var _ engine.Engine = (*Engine)(nil)

// Open loads and runs the script at path. A nil logger discards script logs.
func Open(path string, logger *log.Logger) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "renderer script path is required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	e := &Engine{state: lua.NewState(), script: path, logger: logger}
	lua.OpenLibraries(e.state)
	e.registerModule()

	if err := lua.DoFile(e.state, path); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEngineFailed, "run renderer script "+path, err)
	}
	if !e.hasFunction(scoreFunction) {
		return nil, apperrors.New(apperrors.CodeEngineFailed, fmt.Sprintf("renderer script %s must define %s(x, y, z, k)", path, scoreFunction))
	}
	return e, nil
}

// Script returns the path the engine was opened with.
func (e *Engine) Script() string {
	return e.script
}

// LoadConfig calls load_config(path).
func (e *Engine) LoadConfig(ctx context.Context, path string) error {
	return e.callHook(ctx, configHook, path)
}

// LoadVolume calls load_volume(path) and records path in viewscore.volume.
func (e *Engine) LoadVolume(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.callHookLocked(volumeHook, path); err != nil {
		return err
	}
	e.state.Global(moduleTableName)
	e.state.PushString(path)
	e.state.SetField(-2, "volume")
	e.state.Pop(1)
	return nil
}

// RenderToFile calls render(path).
func (e *Engine) RenderToFile(ctx context.Context, path string) error {
	return e.callHook(ctx, renderHook, path)
}

// Score calls score(x, y, z, k) and returns its numeric result.
func (e *Engine) Score(ctx context.Context, vp viewpoint.Viewpoint, k float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, errEngineClosed
	}

	top := e.state.Top()
	defer e.state.SetTop(top)

	e.state.Global(scoreFunction)
	e.state.PushNumber(float64(vp.X))
	e.state.PushNumber(float64(vp.Y))
	e.state.PushNumber(float64(vp.Z))
	e.state.PushNumber(k)
	if err := e.state.ProtectedCall(4, 1, 0); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeEngineFailed, scoreFunction, err)
	}
	score, ok := e.state.ToNumber(-1)
	if !ok {
		return 0, apperrors.New(apperrors.CodeEngineFailed,
			fmt.Sprintf("%s returned %s, want a number", scoreFunction, lua.TypeNameOf(e.state, -1)))
	}
	return score, nil
}

// Close releases the Lua state. Further calls fail.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.state = nil
	return nil
}

var errEngineClosed = errors.New("renderer engine is closed")

func (e *Engine) callHook(ctx context.Context, hook, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callHookLocked(hook, path)
}

// callHookLocked runs hook(path). The caller holds e.mu.
func (e *Engine) callHookLocked(hook, path string) error {
	if e.closed {
		return errEngineClosed
	}
	if !e.hasFunction(hook) {
		return apperrors.WrapWithMetadata(
			apperrors.CodeEngineUnsupported,
			fmt.Sprintf("renderer script %s does not define %s", e.script, hook),
			map[string]string{"hook": hook},
			engine.ErrUnsupported,
		)
	}

	top := e.state.Top()
	defer e.state.SetTop(top)

	e.state.Global(hook)
	e.state.PushString(path)
	if err := e.state.ProtectedCall(1, 0, 0); err != nil {
		return apperrors.WrapWithMetadata(
			apperrors.CodeEngineFailed,
			fmt.Sprintf("%s(%q)", hook, path),
			map[string]string{"hook": hook, "path": path},
			err,
		)
	}
	return nil
}

func (e *Engine) hasFunction(name string) bool {
	e.state.Global(name)
	defer e.state.Pop(1)
	return e.state.IsFunction(-1)
}

func (e *Engine) registerModule() {
	e.state.NewTable()
	lua.SetFunctions(e.state, []lua.RegistryFunction{
		{Name: "log", Function: e.luaLog},
	}, 0)
	e.state.SetGlobal(moduleTableName)
}

func (e *Engine) luaLog(state *lua.State) int {
	message := lua.CheckString(state, 1)
	e.logger.Printf("renderer script: %s", message)
	return 0
}
