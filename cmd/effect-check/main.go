// Command effect-check runs compiled modules in a sandbox and checks that each
// prints the expected output, "Hello, World!\n" by default.
//
// It exits 0 when every module matches and 1 otherwise, printing one
// "mismatch: expected ... but got ..." line per failing module to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/on-the-ground/effect_ive_platform/effects"
	"github.com/on-the-ground/effect_ive_platform/effects/binding"
	"github.com/on-the-ground/effect_ive_platform/effects/concurrency"
	"github.com/on-the-ground/effect_ive_platform/effects/configkeys"
	"github.com/on-the-ground/effect_ive_platform/effects/log"
	"github.com/on-the-ground/effect_ive_platform/harness"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	doMain(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
}

type result struct {
	module string
	err    error
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("effect-check", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	dir := flags.String("dir", ".", "directory the modules are fetched from")
	expect := flags.String("expect", harness.ExpectedOutput, "expected standard output of every module")
	verbose := flags.Bool("v", false, "log every check and host call to stderr")

	if err := flags.Parse(args); err != nil {
		exit(2)
		return
	}
	if help {
		printUsage(stdErr, flags)
		exit(0)
		return
	}

	modules := flags.Args()
	if len(modules) == 0 {
		modules = []string{"hello.wasm"}
	}

	logger := zap.NewNop()
	if *verbose {
		logger = newLogger(stdErr)
		effects.SetLifecycleLogger(logger)
	}
	defer func() { _ = logger.Sync() }()

	ctx, endBinding := binding.WithEffectHandler(context.Background(), effects.NewEffectScopeConfig(1, 1), map[string]any{
		configkeys.ConfigPlatformHarnessExpected: *expect,
	})
	ctx, endLog := log.WithZapEffectHandler(ctx, len(modules), logger)
	ctx, endConcurrency := concurrency.WithEffectHandler(ctx, 1)

	runner := harness.NewRunner(harness.FSFetcher{FS: os.DirFS(*dir)}, harness.WithLogger(logger))
	defer func() { _ = runner.Close(context.Background()) }()
	expected := harness.Expected(ctx)

	results := make(chan result, len(modules))
	checks := make([]func(context.Context), len(modules))
	for i, module := range modules {
		checks[i] = func(ctx context.Context) {
			err := runner.CheckModule(ctx, module, expected)
			log.LogEff(ctx, log.LogDebug, "checked module", map[string]interface{}{
				"module": module,
				"ok":     err == nil,
			})
			results <- result{module: module, err: err}
		}
	}
	concurrency.Effect(ctx, checks...)

	byModule := make(map[string]error, len(modules))
	for range modules {
		r := <-results
		byModule[r.module] = r.err
	}
	endConcurrency()
	endLog()
	endBinding()

	code := 0
	for _, module := range modules {
		err := byModule[module]
		if err == nil {
			continue
		}
		code = 1
		fmt.Fprintf(stdErr, "%s: %v\n", module, err)
	}
	if code == 0 && *verbose {
		fmt.Fprintf(stdOut, "%d module(s) ok\n", len(modules))
	}
	exit(code)
}

func newLogger(w io.Writer) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(w)), zap.DebugLevel))
}

func printUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "effect-check")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  effect-check <options> [module.wasm ...]")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}
