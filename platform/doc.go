// Package platform is the host effect boundary of a command-line program.
//
// A program describes what it wants done as Effect values. Building an Effect
// performs nothing; combinators (Always, Map, After, Forever, Loop) assemble
// larger descriptions out of smaller ones without running them. Run hands the
// description to whichever Host is registered in the context:
//
//	greet := platform.After(platform.EnvVarUTF8("USER"), func(user string) platform.Effect[platform.Unit] {
//	    return platform.PutLine("Hello, " + user + "!")
//	})
//
//	ctx, end := platform.WithHostEffectHandler(ctx, platform.DefaultHostConfig(), oshost.New())
//	defer end()
//	_, err := platform.Run(ctx, greet)
//
// Host is the capability interface, one method per host operation. The oshost
// and sandbox packages implement it; wasmhost exposes it to WebAssembly guests.
package platform
