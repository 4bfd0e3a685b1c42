package platform

import (
	"context"
	"fmt"

	"github.com/on-the-ground/effect_ive_platform/effects"
	"go.uber.org/zap"
)

// EffectHost is the context key the host handler is registered under.
const EffectHost effects.EffectEnum = "effect_ive_platform_effect_enum_host"

// Host performs the side effects an Effect describes.
// Each method corresponds to one host operation.
type Host interface {
	// EnvVarUTF8 reads one environment variable; a missing one is ErrEnvVarNotFound.
	EnvVarUTF8(ctx context.Context, name string) (string, error)
	// WriteUTF8 creates or truncates the file at path and writes text to it.
	WriteUTF8(ctx context.Context, path Path, text string) error
	// WriteBytes creates or truncates the file at path and writes data to it.
	WriteBytes(ctx context.Context, path Path, data []byte) error
	// PutLine writes line and a newline to standard output.
	PutLine(ctx context.Context, line string) error
	// ErrLine writes line and a newline to standard error.
	ErrLine(ctx context.Context, line string) error
	// GetLine reads one line from standard input without its terminator.
	// At end of input with nothing read it returns ErrEndOfInput.
	GetLine(ctx context.Context) (string, error)
	// SendRequest performs req. Transport failures are *RequestError.
	SendRequest(ctx context.Context, req Request) (Response, error)
}

// HostConfig sizes the host handler and names its logger.
type HostConfig struct {
	BufferSize int
	NumWorkers int
	Logger     *zap.Logger
}

func DefaultHostConfig() HostConfig {
	return HostConfig{BufferSize: 1, NumWorkers: 1, Logger: zap.NewNop()}
}

// WithHostEffectHandler registers host as the handler of every host operation run under the
// returned context. Calls are partitioned so that operations on the same stream, file,
// variable or remote host keep their order across workers.
func WithHostEffectHandler(
	ctx context.Context,
	config HostConfig,
	host Host,
) (context.Context, func() context.Context) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := hostHandler{host: host, logger: logger}
	return effects.WithResumablePartitionableEffectHandler[Call, any](
		ctx,
		effects.NewEffectScopeConfig(config.BufferSize, config.NumWorkers),
		EffectHost,
		h.handle,
	)
}

type hostHandler struct {
	host   Host
	logger *zap.Logger
}

func (h hostHandler) handle(ctx context.Context, call Call) (any, error) {
	h.logger.Debug("host call", zap.String("op", call.Op()), zap.String("partition", call.PartitionKey()))

	switch c := call.(type) {
	case envVarCall:
		return h.host.EnvVarUTF8(ctx, c.name)

	case writeFileCall:
		if c.path.IsZero() {
			return nil, &HostError{Op: c.Op(), Err: ErrInvalidPath}
		}
		if c.text {
			return Unit{}, h.host.WriteUTF8(ctx, c.path, string(c.data))
		}
		return Unit{}, h.host.WriteBytes(ctx, c.path, c.data)

	case putLineCall:
		return Unit{}, h.host.PutLine(ctx, c.line)

	case errLineCall:
		return Unit{}, h.host.ErrLine(ctx, c.line)

	case getLineCall:
		return h.host.GetLine(ctx)

	case sendRequestCall:
		if err := c.req.Validate(); err != nil {
			return nil, err
		}
		return h.host.SendRequest(ctx, c.req)

	default:
		return nil, fmt.Errorf("unknown host call %T", call)
	}
}
