// Command effect-run runs a WebAssembly module against the operating system:
// its effect imports reach the real environment, files, standard streams and network.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/on-the-ground/effect_ive_platform/effects"
	"github.com/on-the-ground/effect_ive_platform/host/oshost"
	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/wasmhost"
	"go.uber.org/zap"
)

func main() {
	doMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdIn io.Reader, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("effect-run", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	schema := flags.Bool("schema", false, "print the JSON schema of send_request's request and response and exit")
	verbose := flags.Bool("v", false, "log host calls to stderr")
	retries := flags.Int("retries", 0, "retry requests failing with a network error this many times")

	if err := flags.Parse(args); err != nil {
		exit(2)
		return
	}
	if help {
		printUsage(stdErr, flags)
		exit(0)
		return
	}

	if *schema {
		if err := printSchemas(stdOut); err != nil {
			fmt.Fprintf(stdErr, "error generating schema: %v\n", err)
			exit(1)
			return
		}
		exit(0)
		return
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printUsage(stdErr, flags)
		exit(1)
		return
	}
	wasmPath := flags.Arg(0)
	wasmArgs := flags.Args()[1:]
	if len(wasmArgs) > 0 && wasmArgs[0] == "--" {
		wasmArgs = wasmArgs[1:]
	}

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(1)
		return
	}

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
			effects.SetLifecycleLogger(logger)
		}
	}
	defer func() { _ = logger.Sync() }()

	host := oshost.New(
		oshost.WithStdin(stdIn),
		oshost.WithStdout(stdOut),
		oshost.WithStderr(stdErr),
		oshost.WithRetries(*retries),
		oshost.WithLogger(logger),
	)

	ctx := context.Background()
	cfg := platform.LoadHostConfig(ctx)
	cfg.Logger = logger
	ctx, end := platform.WithHostEffectHandler(ctx, cfg, host)
	err = wasmhost.Exec(ctx, wasm, wasmhost.Config{
		Name:   filepath.Base(wasmPath),
		Args:   wasmArgs,
		Stdin:  host.Stdin(),
		Stdout: stdOut,
		Stderr: stdErr,
		Logger: logger,
	})
	end()

	if err != nil {
		var exitErr *wasmhost.ExitError
		if errors.As(err, &exitErr) {
			exit(int(exitErr.Code))
			return
		}
		fmt.Fprintf(stdErr, "error running wasm binary: %v\n", err)
		exit(1)
		return
	}
	exit(0)
}

func printSchemas(w io.Writer) error {
	req, err := platform.RequestSchema()
	if err != nil {
		return err
	}
	resp, err := platform.ResponseSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", req, resp)
	return err
}

func printUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "effect-run")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  effect-run <options> <path to wasm file> [--] <wasm args>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
