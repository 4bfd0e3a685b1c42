// Package sandbox is an in-memory platform.Host.
//
// Environment variables are served by a binding effect scope and files are kept
// in a state effect scope, so a sandbox nested inside another one sees the
// outer environment for names it does not define itself. Other bindings in
// scope, such as configuration, are not visible as variables.
package sandbox

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"

	"github.com/on-the-ground/effect_ive_platform/effects/binding"
	"github.com/on-the-ground/effect_ive_platform/effects/state"
	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/shared/helper"
	"go.uber.org/zap"
)

var _ platform.Host = (*Host)(nil)

type Host struct {
	// scope carries the binding and state handlers of this sandbox.
	scope     context.Context
	files     *state.InMemoryStore[string, string]
	stdin     *bufio.Reader
	stdinMu   sync.Mutex
	stdout    *lockedWriter
	stderr    *lockedWriter
	transport Transport
	logger    *zap.Logger
}

// New opens the env and file scopes of a sandbox under ctx.
// The returned teardown closes them and gives back ctx.
func New(ctx context.Context, opts ...Option) (*Host, func() context.Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	env := make(map[string]any, len(o.env))
	for k, v := range o.env {
		env[envKey(k)] = v
	}
	scope, endBinding := binding.WithEffectHandler(ctx, o.scope, env)

	files := state.NewInMemoryStore[string, string]()
	seed := make(map[string]string, len(o.files))
	for k, v := range o.files {
		seed[k] = string(v)
	}
	scope, endState, err := state.WithEffectHandler[string, string](scope, o.scope, false, files, seed)
	if err != nil {
		endBinding()
		return nil, func() context.Context { return ctx }, err
	}

	h := &Host{
		scope:     scope,
		files:     files,
		stdin:     bufio.NewReader(o.stdin),
		stdout:    &lockedWriter{w: o.stdout},
		stderr:    &lockedWriter{w: o.stderr},
		transport: o.transport,
		logger:    o.logger,
	}
	return h, func() context.Context {
		endState()
		return endBinding()
	}, nil
}

// WithHost opens a sandbox and registers it as the host handler of the returned context.
// The returned context also carries the sandbox's env scope, so sandboxes opened under
// it fall back to this one's environment.
func WithHost(ctx context.Context, opts ...Option) (context.Context, *Host, func() context.Context, error) {
	h, end, err := New(ctx, opts...)
	if err != nil {
		return ctx, nil, end, err
	}
	cfg := platform.LoadHostConfig(ctx)
	cfg.Logger = h.logger
	hostCtx, endHost := platform.WithHostEffectHandler(h.scope, cfg, h)
	return hostCtx, h, func() context.Context {
		endHost()
		return end()
	}, nil
}

// Stdout is the sandbox's standard output. Writes through it are serialized with PutLine.
func (h *Host) Stdout() io.Writer { return h.stdout }

// Stderr is the sandbox's standard error. Writes through it are serialized with ErrLine.
func (h *Host) Stderr() io.Writer { return h.stderr }

// Stdin is the sandbox's standard input, shared with GetLine.
func (h *Host) Stdin() io.Reader { return lockedReader{h} }

func (h *Host) EnvVarUTF8(_ context.Context, name string) (string, error) {
	v, err := binding.GetFromBindingEffect[string](h.scope, envKey(name))
	if err != nil {
		h.logger.Debug("env lookup missed", zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("%w: %s", platform.ErrEnvVarNotFound, name)
	}
	return v, nil
}

// envKey namespaces variable names within the binding scope. Only enclosing sandbox
// environments bind such keys, so config bindings stay out of a guest's reach.
func envKey(name string) string {
	return "env:" + name
}

func (h *Host) WriteUTF8(ctx context.Context, path platform.Path, text string) error {
	return h.write(ctx, "writeUtf8", path, text)
}

func (h *Host) WriteBytes(ctx context.Context, path platform.Path, data []byte) error {
	return h.write(ctx, "writeBytes", path, string(data))
}

func (h *Host) write(_ context.Context, op string, path platform.Path, content string) error {
	if path.IsZero() {
		return &platform.HostError{Op: op, Err: platform.ErrInvalidPath}
	}
	if err := state.EffectPut(h.scope, path.String(), content); err != nil {
		return &platform.HostError{Op: op, Path: path.String(), Err: err}
	}
	return nil
}

// ReadFile returns what was last written to path.
func (h *Host) ReadFile(path platform.Path) ([]byte, error) {
	v, err := state.EffectLoad[string, string](h.scope, path.String())
	if err != nil {
		if errors.Is(err, state.ErrNoSuchKey) {
			err = fs.ErrNotExist
		}
		return nil, &platform.HostError{Op: "readFile", Path: path.String(), Err: err}
	}
	return []byte(v), nil
}

// Files lists the paths written so far, sorted.
func (h *Host) Files() []string {
	keys := h.files.Keys()
	sort.Strings(keys)
	return keys
}

func (h *Host) PutLine(_ context.Context, line string) error {
	_, err := io.WriteString(h.stdout, line+"\n")
	return err
}

func (h *Host) ErrLine(_ context.Context, line string) error {
	_, err := io.WriteString(h.stderr, line+"\n")
	return err
}

func (h *Host) GetLine(_ context.Context) (string, error) {
	h.stdinMu.Lock()
	defer h.stdinMu.Unlock()
	line, err := helper.ReadLine(h.stdin)
	if errors.Is(err, io.EOF) {
		return "", platform.ErrEndOfInput
	}
	return line, err
}

func (h *Host) SendRequest(ctx context.Context, req platform.Request) (platform.Response, error) {
	if h.transport == nil {
		return platform.Response{}, &platform.RequestError{
			Kind: platform.RequestNetwork,
			URL:  req.URL,
			Err:  platform.ErrNetworkDisabled,
		}
	}
	return h.transport(ctx, req)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type lockedReader struct{ h *Host }

func (r lockedReader) Read(p []byte) (int, error) {
	r.h.stdinMu.Lock()
	defer r.h.stdinMu.Unlock()
	return r.h.stdin.Read(p)
}
