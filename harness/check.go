package harness

import (
	"context"
	"fmt"

	"github.com/on-the-ground/effect_ive_platform/effects/binding"
	"github.com/on-the-ground/effect_ive_platform/effects/configkeys"
)

// ExpectedOutput is what the hello module has to print.
const ExpectedOutput = "Hello, World!\n"

type MismatchError struct {
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("mismatch: expected %q but got %q", e.Expected, e.Actual)
}

// Check returns a *MismatchError unless actual equals expected exactly.
func Check(actual, expected string) error {
	if actual != expected {
		return &MismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// Expected is the expected output bound in ctx, ExpectedOutput if none is.
func Expected(ctx context.Context) string {
	return binding.GetOrDefault(ctx, configkeys.ConfigPlatformHarnessExpected, ExpectedOutput)
}
