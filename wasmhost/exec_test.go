package wasmhost_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/on-the-ground/effect_ive_platform/host/sandbox"
	"github.com/on-the-ground/effect_ive_platform/internal/wasmtest"
	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/wasmhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSandbox(t *testing.T, opts ...sandbox.Option) (context.Context, *sandbox.Host) {
	t.Helper()
	ctx, h, end, err := sandbox.WithHost(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { end() })
	return ctx, h
}

func exitCode(t *testing.T, err error) uint32 {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *wasmhost.ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestExec_HelloEffect(t *testing.T) {
	var out bytes.Buffer
	ctx, _ := withSandbox(t, sandbox.WithStdout(&out))

	err := wasmhost.Exec(ctx, wasmtest.HelloEffect(), wasmhost.Config{Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!\n", out.String())
}

func TestExec_HelloWASI(t *testing.T) {
	var out bytes.Buffer
	err := wasmhost.Exec(context.Background(), wasmtest.HelloWASI(), wasmhost.Config{Stdout: &out})
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!\n", out.String())
}

func TestExec_ExitCodes(t *testing.T) {
	require.NoError(t, wasmhost.Exec(context.Background(), wasmtest.Exit(0), wasmhost.Config{}))

	err := wasmhost.Exec(context.Background(), wasmtest.Exit(3), wasmhost.Config{Name: "three"})
	var exitErr *wasmhost.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, uint32(3), exitErr.Code)
	assert.Equal(t, "three", exitErr.Name)
	assert.Contains(t, err.Error(), "exited with code 3")
}

func TestExec_InvalidModule(t *testing.T) {
	err := wasmhost.Exec(context.Background(), []byte("not wasm"), wasmhost.Config{})
	require.Error(t, err)
	var exitErr *wasmhost.ExitError
	assert.NotErrorAs(t, err, &exitErr)
}

func TestExec_WithoutHostHandler(t *testing.T) {
	err := wasmhost.Exec(context.Background(), wasmtest.LineStatus("put_line", "hi"), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoIO), exitCode(t, err))
}

func TestExec_ErrLine(t *testing.T) {
	var errOut bytes.Buffer
	ctx, _ := withSandbox(t, sandbox.WithStderr(&errOut))

	err := wasmhost.Exec(ctx, wasmtest.LineStatus("err_line", "oops"), wasmhost.Config{})
	require.NoError(t, err)
	assert.Equal(t, "oops\n", errOut.String())
}

func TestExec_EnvVar(t *testing.T) {
	var out bytes.Buffer
	ctx, _ := withSandbox(t,
		sandbox.WithEnv(map[string]string{"NAME": "World"}),
		sandbox.WithStdout(&out),
	)

	require.NoError(t, wasmhost.Exec(ctx, wasmtest.EnvPrinter("NAME"), wasmhost.Config{}))
	assert.Equal(t, "World\n", out.String())

	err := wasmhost.Exec(ctx, wasmtest.EnvPrinter("MISSING"), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoNotFound), exitCode(t, err))

	err = wasmhost.Exec(ctx, wasmtest.EnvVarNoAllocate("NAME"), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoNoAllocate), exitCode(t, err))
}

func TestExec_OutOfRange(t *testing.T) {
	ctx, _ := withSandbox(t)
	err := wasmhost.Exec(ctx, wasmtest.OutOfBounds(), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoOutOfRange), exitCode(t, err))
}

func TestExec_WriteFiles(t *testing.T) {
	ctx, h := withSandbox(t)

	require.NoError(t, wasmhost.Exec(ctx, wasmtest.WriteFile("write_utf8", "out.txt", []byte("text")), wasmhost.Config{}))
	require.NoError(t, wasmhost.Exec(ctx, wasmtest.WriteFile("write_bytes", "out.bin", []byte{0xff, 0x00}), wasmhost.Config{}))

	got, err := h.ReadFile(platform.NewPath("out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "text", string(got))
	got, err = h.ReadFile(platform.NewPath("out.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00}, got)

	err = wasmhost.Exec(ctx, wasmtest.WriteFile("write_utf8", "bad.txt", []byte{0xff}), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoInvalid), exitCode(t, err))

	err = wasmhost.Exec(ctx, wasmtest.WriteFile("write_utf8", "", []byte("x")), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoInvalid), exitCode(t, err))
}

func TestExec_Echo(t *testing.T) {
	var out bytes.Buffer
	ctx, _ := withSandbox(t,
		sandbox.WithStdin(strings.NewReader("one\ntwo\r\nthree")),
		sandbox.WithStdout(&out),
	)

	err := wasmhost.Exec(ctx, wasmtest.Echo(), wasmhost.Config{})
	assert.Equal(t, uint32(wasmhost.ErrnoEndOfInput), exitCode(t, err))
	assert.Equal(t, "one\ntwo\nthree\n", out.String())
}

func TestExec_SendRequest(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		var out bytes.Buffer
		ctx, _ := withSandbox(t,
			sandbox.WithStdout(&out),
			sandbox.WithTransport(func(_ context.Context, req platform.Request) (platform.Response, error) {
				return platform.Response{URL: req.URL, StatusCode: 418, StatusText: "I'm a teapot", Body: []byte(req.Method)}, nil
			}),
		)

		err := wasmhost.Exec(ctx, wasmtest.SendRequest(`{"method":"PUT","url":"http://example.com/pot"}`), wasmhost.Config{})
		require.NoError(t, err)

		var resp platform.Response
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(out.String(), "\n")), &resp))
		assert.Equal(t, 418, resp.StatusCode)
		assert.Equal(t, "http://example.com/pot", resp.URL)
		assert.Equal(t, "PUT", string(resp.Body))
	})

	t.Run("network disabled", func(t *testing.T) {
		ctx, _ := withSandbox(t)
		err := wasmhost.Exec(ctx, wasmtest.SendRequest(`{"method":"GET","url":"http://example.com"}`), wasmhost.Config{})
		assert.Equal(t, uint32(wasmhost.ErrnoNetwork), exitCode(t, err))
	})

	t.Run("malformed request", func(t *testing.T) {
		ctx, _ := withSandbox(t)
		err := wasmhost.Exec(ctx, wasmtest.SendRequest(`{"method":`), wasmhost.Config{})
		assert.Equal(t, uint32(wasmhost.ErrnoInvalid), exitCode(t, err))

		err = wasmhost.Exec(ctx, wasmtest.SendRequest(`{"method":"GET"}`), wasmhost.Config{})
		assert.Equal(t, uint32(wasmhost.ErrnoInvalid), exitCode(t, err))
	})
}

func TestErrnoOf(t *testing.T) {
	assert.Equal(t, wasmhost.ErrnoOK, wasmhost.ErrnoOf(nil))
	assert.Equal(t, wasmhost.ErrnoNotFound, wasmhost.ErrnoOf(platform.ErrEnvVarNotFound))
	assert.Equal(t, wasmhost.ErrnoEndOfInput, wasmhost.ErrnoOf(platform.ErrEndOfInput))
	assert.Equal(t, wasmhost.ErrnoInvalid, wasmhost.ErrnoOf(&platform.HostError{Op: "writeUtf8", Err: platform.ErrInvalidPath}))
	assert.Equal(t, wasmhost.ErrnoNetwork, wasmhost.ErrnoOf(&platform.RequestError{Kind: platform.RequestTimeout}))
	assert.Equal(t, wasmhost.ErrnoIO, wasmhost.ErrnoOf(platform.ErrNoHost))
	assert.Equal(t, "end of input", wasmhost.ErrnoEndOfInput.String())
}
