// Package wasmhost runs WebAssembly guests against a platform.Host.
//
// Guests get WASI preview1 plus the effect host module, whose functions turn
// into platform effects run under the context passed to Exec.
package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config describes one guest run. Unset streams are discarded or empty.
type Config struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
	// MaxRequestSize bounds each buffer a guest hands to the effect module.
	MaxRequestSize uint32
	// Cache, when set, keeps compiled code across runs.
	Cache wazero.CompilationCache
}

// ExitError is a guest that called proc_exit with a non-zero code.
type ExitError struct {
	Name string
	Code uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("module %q exited with code %d", e.Name, e.Code)
}

// Exec compiles and runs wasm to completion. A guest that returns from _start or
// calls proc_exit(0) succeeds; any other exit is an *ExitError.
func Exec(ctx context.Context, wasm []byte, cfg Config) (err error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = "guest"
	}

	rtCfg := wazero.NewRuntimeConfig()
	if cfg.Cache != nil {
		rtCfg = rtCfg.WithCompilationCache(cfg.Cache)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	defer func() {
		err = multierr.Append(err, rt.Close(ctx))
	}()

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("failed to instantiate WASI: %w", err)
	}
	if err := Instantiate(ctx, rt, logger, cfg.MaxRequestSize); err != nil {
		return err
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("failed to compile module %q: %w", name, err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithArgs(append([]string{name}, cfg.Args...)...)
	if cfg.Stdin != nil {
		modCfg = modCfg.WithStdin(cfg.Stdin)
	}
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	logger.Debug("running guest", zap.String("module", name), zap.Strings("args", cfg.Args))
	// Closing rt closes the guest as well.
	if _, err := rt.InstantiateModule(ctx, compiled, modCfg); err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 0 {
				return nil
			}
			logger.Debug("guest exited", zap.String("module", name), zap.Uint32("code", exitErr.ExitCode()))
			return &ExitError{Name: name, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run module %q: %w", name, err)
	}
	return nil
}
