package harness_test

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/on-the-ground/effect_ive_platform/effects"
	"github.com/on-the-ground/effect_ive_platform/effects/binding"
	"github.com/on-the-ground/effect_ive_platform/effects/configkeys"
	"github.com/on-the-ground/effect_ive_platform/harness"
	"github.com/on-the-ground/effect_ive_platform/internal/wasmtest"
	"github.com/on-the-ground/effect_ive_platform/wasmhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func modules() fstest.MapFS {
	return fstest.MapFS{
		"hello.wasm":      {Data: wasmtest.HelloWASI()},
		"hello_fx.wasm":   {Data: wasmtest.HelloEffect()},
		"goodbye.wasm":    {Data: wasmtest.PutLine("Goodbye!")},
		"env.wasm":        {Data: wasmtest.EnvPrinter("NAME")},
		"echo.wasm":       {Data: wasmtest.Echo()},
		"fail.wasm":       {Data: wasmtest.Exit(2)},
		"dir/nested.wasm": {Data: wasmtest.HelloWASI()},
	}
}

func TestRunner_HelloProducesExpectedOutput(t *testing.T) {
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()})

	for _, name := range []string{"hello.wasm", "hello_fx.wasm"} {
		t.Run(name, func(t *testing.T) {
			out, err := runner.Run(context.Background(), name)
			require.NoError(t, err)
			assert.Equal(t, "Hello, World!\n", out)
			assert.NoError(t, harness.Check(out, harness.ExpectedOutput))
		})
	}
}

func TestRunner_OtherOutputIsAMismatch(t *testing.T) {
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()})

	err := runner.CheckModule(context.Background(), "goodbye.wasm", harness.ExpectedOutput)
	var mismatch *harness.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Goodbye!\n", mismatch.Actual)
	assert.Contains(t, err.Error(), `"Hello, World!\n"`)
	assert.Contains(t, err.Error(), `"Goodbye!\n"`)
}

func TestRunner_EnvAndStdin(t *testing.T) {
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()},
		harness.WithEnv(map[string]string{"NAME": "gopher"}),
		harness.WithStdin("a\nb\n"),
	)

	out, err := runner.Run(context.Background(), "env.wasm")
	require.NoError(t, err)
	assert.Equal(t, "gopher\n", out)

	out, err = runner.Run(context.Background(), "echo.wasm")
	var exitErr *wasmhost.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, uint32(wasmhost.ErrnoEndOfInput), exitErr.Code)
	assert.Equal(t, "a\nb\n", out)
}

func TestRunner_Failures(t *testing.T) {
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()})

	_, err := runner.Run(context.Background(), "missing.wasm")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = runner.Run(context.Background(), "dir")
	assert.ErrorContains(t, err, "is a directory")

	err = runner.CheckModule(context.Background(), "fail.wasm", harness.ExpectedOutput)
	var exitErr *wasmhost.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, uint32(2), exitErr.Code)
}

func TestRunner_LogsHostCalls(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()}, harness.WithLogger(zap.New(core)))

	_, err := runner.Run(context.Background(), "hello_fx.wasm")
	require.NoError(t, err)

	calls := logs.FilterMessage("host call").FilterField(zap.String("module", "hello_fx.wasm")).All()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].ContextMap()["entry"], "putLine")
}

func TestCheck(t *testing.T) {
	assert.NoError(t, harness.Check("Hello, World!\n", harness.ExpectedOutput))
	assert.Error(t, harness.Check("Hello, World!", harness.ExpectedOutput))
	assert.Error(t, harness.Check("", harness.ExpectedOutput))
}

func TestExpected(t *testing.T) {
	assert.Equal(t, harness.ExpectedOutput, harness.Expected(context.Background()))

	ctx, end := binding.WithEffectHandler(context.Background(), effects.NewEffectScopeConfig(1, 1), map[string]any{
		configkeys.ConfigPlatformHarnessExpected: "bye\n",
	})
	defer end()
	assert.Equal(t, "bye\n", harness.Expected(ctx))
}

func TestHTTPFetcher(t *testing.T) {
	hello := wasmtest.HelloEffect()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/modules/hello.wasm" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(hello)
	}))
	defer srv.Close()

	fetcher := harness.HTTPFetcher{BaseURL: srv.URL + "/modules/"}

	res, err := fetcher.Fetch(context.Background(), "hello.wasm")
	require.NoError(t, err)
	got, err := res.ArrayBuffer()
	require.NoError(t, err)
	assert.Equal(t, hello, got)
	again, err := res.ArrayBuffer()
	require.NoError(t, err)
	assert.Equal(t, hello, again)

	_, err = fetcher.Fetch(context.Background(), "nope.wasm")
	assert.ErrorContains(t, err, "404")

	out, err := harness.NewRunner(fetcher).Run(context.Background(), "hello.wasm")
	require.NoError(t, err)
	assert.Equal(t, harness.ExpectedOutput, out)
}

func TestHTTPFetcher_RejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	fetcher := harness.HTTPFetcher{BaseURL: srv.URL + "/", MaxSize: 64}
	_, err := fetcher.Fetch(context.Background(), "big.wasm")
	assert.ErrorContains(t, err, "exceeds 64 bytes")

	fetcher.MaxSize = 100
	res, err := fetcher.Fetch(context.Background(), "big.wasm")
	require.NoError(t, err)
	data, err := res.ArrayBuffer()
	require.NoError(t, err)
	assert.Len(t, data, 100)
}

func TestFetcherFunc(t *testing.T) {
	boom := errors.New("offline")
	f := harness.FetcherFunc(func(context.Context, string) (harness.Resource, error) {
		return harness.Resource{}, boom
	})
	_, err := harness.NewRunner(f).Run(context.Background(), "hello.wasm")
	assert.ErrorIs(t, err, boom)

	_, err = harness.Resource{Name: "empty"}.ArrayBuffer()
	assert.Error(t, err)
}

func TestRunner_ReusesCompiledCode(t *testing.T) {
	runner := harness.NewRunner(harness.FSFetcher{FS: modules()})
	defer func() { assert.NoError(t, runner.Close(context.Background())) }()

	for i := 0; i < 3; i++ {
		out, err := runner.Run(context.Background(), "hello.wasm")
		require.NoError(t, err)
		assert.Equal(t, harness.ExpectedOutput, out)
	}
}
