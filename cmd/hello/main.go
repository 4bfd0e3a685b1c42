// Command hello prints "Hello, World!" through the platform's PutLine effect.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/on-the-ground/effect_ive_platform/host/oshost"
	"github.com/on-the-ground/effect_ive_platform/platform"
)

func hello() platform.Effect[platform.Unit] {
	return platform.PutLine("Hello, World!")
}

func main() {
	if _, err := platform.RunWith(context.Background(), oshost.New(), hello()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
