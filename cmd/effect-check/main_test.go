package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/on-the-ground/effect_ive_platform/internal/wasmtest"
	"github.com/stretchr/testify/require"
)

func moduleDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, bin := range map[string][]byte{
		"hello.wasm":    wasmtest.HelloWASI(),
		"hello_fx.wasm": wasmtest.HelloEffect(),
		"bye.wasm":      wasmtest.PutLine("Bye, World!"),
		"exit.wasm":     wasmtest.Exit(7),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), bin, 0o644))
	}
	return dir
}

func runMain(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	var exitCode int
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	var exited bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				exited = true
			}
		}()
		doMain(args, stdOut, stdErr, func(code int) {
			exitCode = code
			panic(code)
		})
	}()

	require.True(t, exited)

	return exitCode, stdOut.String(), stdErr.String()
}

func TestHelloMatches(t *testing.T) {
	dir := moduleDir(t)

	code, _, stdErr := runMain(t, []string{"-dir", dir})
	require.Equal(t, 0, code, stdErr)
	require.Empty(t, stdErr)

	code, _, stdErr = runMain(t, []string{"-dir", dir, "hello.wasm", "hello_fx.wasm"})
	require.Equal(t, 0, code, stdErr)
	require.Empty(t, stdErr)
}

func TestMismatchExitsOne(t *testing.T) {
	dir := moduleDir(t)

	code, _, stdErr := runMain(t, []string{"-dir", dir, "bye.wasm"})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr, `mismatch: expected "Hello, World!\n" but got "Bye, World!\n"`)
}

func TestOneFailureFailsAll(t *testing.T) {
	dir := moduleDir(t)

	code, _, stdErr := runMain(t, []string{"-dir", dir, "hello.wasm", "bye.wasm", "exit.wasm", "missing.wasm"})
	require.Equal(t, 1, code)
	require.NotContains(t, stdErr, "hello.wasm:")
	require.Contains(t, stdErr, "bye.wasm: mismatch")
	require.Contains(t, stdErr, "exit.wasm: run: module \"exit.wasm\" exited with code 7")
	require.Contains(t, stdErr, "missing.wasm:")
}

func TestExpectFlag(t *testing.T) {
	dir := moduleDir(t)

	code, _, stdErr := runMain(t, []string{"-dir", dir, "-expect", "Bye, World!\n", "bye.wasm"})
	require.Equal(t, 0, code, stdErr)

	code, _, stdErr = runMain(t, []string{"-dir", dir, "-expect", "Bye, World!\n", "hello.wasm"})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr, `expected "Bye, World!\n" but got "Hello, World!\n"`)
}

func TestVerbose(t *testing.T) {
	dir := moduleDir(t)

	code, stdOut, stdErr := runMain(t, []string{"-v", "-dir", dir, "hello_fx.wasm"})
	require.Equal(t, 0, code, stdErr)
	require.Equal(t, "1 module(s) ok\n", stdOut)
	require.Contains(t, stdErr, "host call")
}

func TestUsage(t *testing.T) {
	code, _, stdErr := runMain(t, []string{"-h"})
	require.Equal(t, 0, code)
	require.Contains(t, stdErr, "Usage:")

	code, _, _ = runMain(t, []string{"-nope"})
	require.Equal(t, 2, code)
}
