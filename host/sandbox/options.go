package sandbox

import (
	"context"
	"io"
	"strings"

	"github.com/on-the-ground/effect_ive_platform/effects"
	"github.com/on-the-ground/effect_ive_platform/platform"
	"go.uber.org/zap"
)

// Transport serves the requests a sandboxed program sends.
type Transport func(ctx context.Context, req platform.Request) (platform.Response, error)

type options struct {
	env       map[string]string
	files     map[string][]byte
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	transport Transport
	scope     effects.EffectScopeConfig
	logger    *zap.Logger
}

func defaultOptions() options {
	return options{
		stdin:  strings.NewReader(""),
		stdout: io.Discard,
		stderr: io.Discard,
		scope:  effects.NewEffectScopeConfig(1, 1),
		logger: zap.NewNop(),
	}
}

type Option func(*options)

// WithEnv sets the environment table. Names it lacks are looked up in an enclosing sandbox.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

// WithFiles seeds the file table.
func WithFiles(files map[string][]byte) Option {
	return func(o *options) { o.files = files }
}

func WithStdin(r io.Reader) Option {
	return func(o *options) { o.stdin = r }
}

func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithTransport lets SendRequest through to fn. Without it every request fails
// with platform.ErrNetworkDisabled.
func WithTransport(fn Transport) Option {
	return func(o *options) { o.transport = fn }
}

// WithScopeConfig sizes the env and file effect scopes.
func WithScopeConfig(cfg effects.EffectScopeConfig) Option {
	return func(o *options) { o.scope = cfg }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
