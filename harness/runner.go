// Package harness fetches a compiled module, runs it in a sandbox and compares
// what it printed with the expected output.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/on-the-ground/effect_ive_platform/host/sandbox"
	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/wasmhost"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

type Runner struct {
	fetcher Fetcher
	cache   wazero.CompilationCache
	logger  *zap.Logger
	env     map[string]string
	stdin   string
	args    []string
}

type RunnerOption func(*Runner)

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEnv sets the guest's environment.
func WithEnv(env map[string]string) RunnerOption {
	return func(r *Runner) { r.env = env }
}

// WithStdin sets what the guest reads from standard input.
func WithStdin(input string) RunnerOption {
	return func(r *Runner) { r.stdin = input }
}

func WithArgs(args ...string) RunnerOption {
	return func(r *Runner) { r.args = args }
}

func NewRunner(fetcher Fetcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetcher: fetcher,
		cache:   wazero.NewCompilationCache(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches the module called name, runs it in a fresh sandbox and returns
// everything it wrote to standard output, through WASI or put_line alike.
// Output produced before a failure is returned along with the error.
func (r *Runner) Run(ctx context.Context, name string) (string, error) {
	res, err := r.fetcher.Fetch(ctx, name)
	if err != nil {
		return "", err
	}
	wasm, err := res.ArrayBuffer()
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	sbx, end, err := sandbox.New(ctx,
		sandbox.WithEnv(r.env),
		sandbox.WithStdin(strings.NewReader(r.stdin)),
		sandbox.WithStdout(&stdout),
		sandbox.WithStderr(&stderr),
		sandbox.WithLogger(r.logger),
	)
	if err != nil {
		return "", fmt.Errorf("failed to open sandbox: %w", err)
	}
	defer end()

	journal := platform.NewJournal(sbx)
	cfg := platform.LoadHostConfig(ctx)
	cfg.Logger = r.logger
	hostCtx, endHost := platform.WithHostEffectHandler(ctx, cfg, journal)
	defer endHost()

	err = wasmhost.Exec(hostCtx, wasm, wasmhost.Config{
		Name:   name,
		Args:   r.args,
		Stdin:  sbx.Stdin(),
		Stdout: sbx.Stdout(),
		Stderr: sbx.Stderr(),
		Logger: r.logger,
		Cache:  r.cache,
	})

	for _, e := range journal.Entries() {
		r.logger.Debug("host call", zap.String("module", name), zap.Stringer("entry", e))
	}
	if stderr.Len() > 0 {
		r.logger.Debug("guest stderr", zap.String("module", name), zap.String("stderr", stderr.String()))
	}
	return stdout.String(), err
}

// Close releases the code compiled by earlier runs.
func (r *Runner) Close(ctx context.Context) error {
	return r.cache.Close(ctx)
}

// CheckModule runs name and checks its output against expected.
func (r *Runner) CheckModule(ctx context.Context, name, expected string) error {
	out, err := r.Run(ctx, name)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return Check(out, expected)
}
