package wasmhost

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ModuleName is the import module guests use for host operations.
const ModuleName = "effect"

// DefaultMaxRequestSize bounds how much a guest may pass in one call.
const DefaultMaxRequestSize = 1 << 20

var errnoResult = []api.ValueType{api.ValueTypeI32}

type bridge struct {
	logger         *zap.Logger
	maxRequestSize uint32
}

// Instantiate adds the effect host module to rt. Each of its functions runs the
// matching platform effect under the context of the guest call, so guests are
// served by the host handler registered in that context.
func Instantiate(ctx context.Context, rt wazero.Runtime, logger *zap.Logger, maxRequestSize uint32) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRequestSize == 0 {
		maxRequestSize = DefaultMaxRequestSize
	}
	b := &bridge{logger: logger, maxRequestSize: maxRequestSize}

	builder := rt.NewHostModuleBuilder(ModuleName)
	export := func(name string, fn func(context.Context, api.Module, []uint64) error, params int) {
		ps := make([]api.ValueType, params)
		for i := range ps {
			ps[i] = api.ValueTypeI32
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				err := fn(ctx, mod, stack)
				errno := ErrnoOf(err)
				if err != nil {
					b.logger.Debug("guest call failed",
						zap.String("function", name),
						zap.Stringer("errno", errno),
						zap.Error(err),
					)
				}
				stack[0] = api.EncodeU32(uint32(errno))
			}), ps, errnoResult).
			Export(name)
	}

	export("put_line", b.putLine, 2)
	export("err_line", b.errLine, 2)
	export("write_utf8", b.writeUTF8, 4)
	export("write_bytes", b.writeBytes, 4)
	export("env_var", b.envVar, 3)
	export("get_line", b.getLine, 1)
	export("send_request", b.sendRequest, 3)

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate %s host module: %w", ModuleName, err)
	}
	return nil
}

func (b *bridge) putLine(ctx context.Context, mod api.Module, stack []uint64) error {
	line, err := b.readText(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	_, err = platform.Run(ctx, platform.PutLine(line))
	return err
}

func (b *bridge) errLine(ctx context.Context, mod api.Module, stack []uint64) error {
	line, err := b.readText(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	_, err = platform.Run(ctx, platform.ErrLine(line))
	return err
}

func (b *bridge) writeUTF8(ctx context.Context, mod api.Module, stack []uint64) error {
	path, err := b.readText(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	text, err := b.readText(mod, stack[2], stack[3])
	if err != nil {
		return err
	}
	_, err = platform.Run(ctx, platform.WriteUTF8(platform.NewPath(path), text))
	return err
}

func (b *bridge) writeBytes(ctx context.Context, mod api.Module, stack []uint64) error {
	path, err := b.readText(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	data, err := b.read(mod, stack[2], stack[3])
	if err != nil {
		return err
	}
	_, err = platform.Run(ctx, platform.WriteBytes(platform.NewPath(path), data))
	return err
}

func (b *bridge) envVar(ctx context.Context, mod api.Module, stack []uint64) error {
	name, err := b.readText(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	v, err := platform.Run(ctx, platform.EnvVarUTF8(name))
	if err != nil {
		return err
	}
	return b.writeOut(ctx, mod, api.DecodeU32(stack[2]), []byte(v))
}

func (b *bridge) getLine(ctx context.Context, mod api.Module, stack []uint64) error {
	line, err := platform.Run(ctx, platform.GetLine())
	if err != nil {
		return err
	}
	return b.writeOut(ctx, mod, api.DecodeU32(stack[0]), []byte(line))
}

func (b *bridge) sendRequest(ctx context.Context, mod api.Module, stack []uint64) error {
	raw, err := b.read(mod, stack[0], stack[1])
	if err != nil {
		return err
	}
	var req platform.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &platform.RequestError{Kind: platform.RequestBadRequest, Err: err}
	}
	resp, err := platform.Run(ctx, platform.SendRequest(req))
	if err != nil {
		return err
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return b.writeOut(ctx, mod, api.DecodeU32(stack[2]), out)
}

// read copies len bytes at ptr out of guest memory.
func (b *bridge) read(mod api.Module, ptr, length uint64) ([]byte, error) {
	p, n := api.DecodeU32(ptr), api.DecodeU32(length)
	if n > b.maxRequestSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", errTooLarge, n, b.maxRequestSize)
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, errOutOfRange
	}
	view, ok := mem.Read(p, n)
	if !ok {
		return nil, fmt.Errorf("%w: read %d bytes at %d", errOutOfRange, n, p)
	}
	data := make([]byte, n)
	copy(data, view)
	return data, nil
}

func (b *bridge) readText(mod api.Module, ptr, length uint64) (string, error) {
	data, err := b.read(mod, ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errNotUTF8
	}
	return string(data), nil
}

// writeOut copies data into memory obtained from the guest's allocate export and
// stores (ptr, len) little-endian at outPtr.
func (b *bridge) writeOut(ctx context.Context, mod api.Module, outPtr uint32, data []byte) error {
	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return errNoAllocate
	}
	mem := mod.Memory()
	if mem == nil {
		return errOutOfRange
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("guest allocate failed: %w", err)
	}
	ptr := api.DecodeU32(results[0])
	if !mem.Write(ptr, data) {
		return fmt.Errorf("%w: write %d bytes at %d", errOutOfRange, len(data), ptr)
	}
	var slot [8]byte
	binary.LittleEndian.PutUint32(slot[:4], ptr)
	binary.LittleEndian.PutUint32(slot[4:], uint32(len(data)))
	if !mem.Write(outPtr, slot[:]) {
		return fmt.Errorf("%w: write result slot at %d", errOutOfRange, outPtr)
	}
	return nil
}
