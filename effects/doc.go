// Package effects is the handler framework the platform host is built on.
//
// An effect handler is a small worker pool bound to a context. Registering one
// with a WithXxxEffectHandler function returns a derived context carrying the
// handler and a teardown that stops it:
//
//	ctx, end := effects.WithResumableEffectHandler(ctx, 1, myEnum, handleFn)
//	defer end()
//
// Code running under that context performs the effect by enum, without knowing
// which handler serves it:
//
//	val, err := effects.AwaitResumableEffect[MyPayload, MyResult](ctx, myEnum, payload)
//
// Resumable handlers answer each payload with a value and an error.
// Fire-and-forget handlers only consume payloads. Partitionable variants route
// payloads with the same PartitionKey() to the same worker so they are handled
// in order.
//
// Performing an effect with no handler in scope panics with an error wrapping
// ErrNoEffectHandler. Callers that must not panic check HasEffectHandler first
// or recover that error. Performing on a handler that was already torn down
// fails with ErrScopeClosed. A resumable handler runs with a context that ends
// when either its own scope or the performer's context does.
//
// Built-in effects live in subpackages: log, binding, state and concurrency.
package effects
