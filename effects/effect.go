package effects

import (
	"context"

	"github.com/on-the-ground/effect_ive_platform/effects/internal/handlers"
	"github.com/on-the-ground/effect_ive_platform/effects/internal/helper"
	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
	sharedHelper "github.com/on-the-ground/effect_ive_platform/shared/helper"
	"go.uber.org/zap"
)

// EffectEnum identifies one kind of effect; it is also the context key its handler lives under.
type EffectEnum = effectmodel.EffectEnum

// EffectScopeConfig sizes the worker pool behind a handler.
type EffectScopeConfig = effectmodel.EffectScopeConfig

// ResumableResult is what a resumable effect hands back to its performer.
type ResumableResult[T any] = handlers.ResumableResult[T]

// ErrNoEffectHandler is the panic value (wrapped) raised when an effect has no handler in scope.
var ErrNoEffectHandler = effectmodel.ErrNoEffectHandler

// ErrScopeClosed is returned for effects performed after their handler was torn down.
var ErrScopeClosed = handlers.ErrScopeClosed

// NewEffectScopeConfig clamps bufferSize and numWorkers to at least 1.
func NewEffectScopeConfig(bufferSize, numWorkers int) EffectScopeConfig {
	return effectmodel.NewEffectScopeConfig(bufferSize, numWorkers)
}

// HasEffectHandler reports whether ctx carries a handler for enum.
func HasEffectHandler(ctx context.Context, enum EffectEnum) bool {
	return helper.HasHandler(ctx, enum)
}

var lifecycleLogger = zap.NewNop()

// SetLifecycleLogger routes handler creation/teardown debug lines to logger.
// It is meant to be called once at program start.
func SetLifecycleLogger(logger *zap.Logger) {
	if logger != nil {
		lifecycleLogger = logger
	}
}

// WithResumablePartitionableEffectHandler registers a resumable effect handler for a given effect enum.
//
// This handler supports hash-based partitioning via PartitionKey(), and is suitable for effects
// like state updates or host calls where per-key ordering matters.
//
// Usage:
//
//	ctx, cancel := WithResumablePartitionableEffectHandler(ctx, config, MyEffectEnum, handleFn)
//	defer cancel()
func WithResumablePartitionableEffectHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	logger := lifecycleLogger.Sugar()
	td := normalizeTeardown(teardown)
	handler := handlers.NewPartitionableResumableHandler(ctx, config, handleFn, td)
	handler.UseLogger(lifecycleLogger)
	ctxWith := context.WithValue(ctx, enum, handler)
	logger.Debugf("created resumable effect handler: effectId: %v, enum: %v", handler.EffectId, enum)

	return ctxWith, func() context.Context {
		handler.Close()
		logger.Debugf("closed resumable effect handler: effectId: %v, enum: %v", handler.EffectId, enum)
		return ctx
	}
}

// WithResumableEffectHandler registers a resumable effect handler for a given effect enum.
//
// This handler is suitable for effects that don't require partitioning.
func WithResumableEffectHandler[P any, R any](
	ctx context.Context,
	bufferSize int,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P) (R, error),
	teardown ...func(),
) (context.Context, func() context.Context) {
	logger := lifecycleLogger.Sugar()
	td := normalizeTeardown(teardown)
	handler := handlers.NewResumableHandler(ctx, bufferSize, handleFn, td)
	handler.UseLogger(lifecycleLogger)
	ctxWith := context.WithValue(ctx, enum, handler)
	logger.Debugf("created resumable effect handler: effectId: %v, enum: %v", handler.EffectId, enum)

	return ctxWith, func() context.Context {
		handler.Close()
		logger.Debugf("closed resumable effect handler: effectId: %v, enum: %v", handler.EffectId, enum)
		return ctx
	}
}

// PerformResumableEffect sends a payload to the resumable effect handler and returns the channel
// its result is delivered on.
//
// Panics if no handler is registered for the given effect enum.
func PerformResumableEffect[P any, R any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) <-chan ResumableResult[R] {
	handler := sharedHelper.MustGetTypedValue[handlers.ResumableHandler[P, R]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	return handler.PerformEffect(ctx, payload)
}

// AwaitResumableEffect performs a resumable effect and blocks until its result arrives.
//
// It returns ctx's error once ctx is done, and ErrScopeClosed if the handler was torn down
// before answering. Panics if no handler is registered for the given effect enum.
func AwaitResumableEffect[P any, R any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) (R, error) {
	handler := sharedHelper.MustGetTypedValue[handlers.ResumableHandler[P, R]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	return handler.AwaitEffect(ctx, payload)
}

// WithFireAndForgetEffectHandler registers a fire-and-forget effect handler for a given effect enum.
//
// Suitable for one-shot effects like logging or spawning work.
// This handler executes without returning a result.
func WithFireAndForgetEffectHandler[P any](
	ctx context.Context,
	bufferSize int,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P),
	teardown ...func(),
) (context.Context, func() context.Context) {
	logger := lifecycleLogger.Sugar()
	td := normalizeTeardown(teardown)
	handler := handlers.NewFireAndForgetHandler(ctx, bufferSize, handleFn, td)
	handler.UseLogger(lifecycleLogger)
	ctxWith := context.WithValue(ctx, enum, handler)
	logger.Debugf("created fire/forget effect handler: effectId: %v, enum: %v", handler.EffectId, enum)

	return ctxWith, func() context.Context {
		handler.Close()
		logger.Debugf("closed fire/forget effect handler: effectId: %v, enum: %v", handler.EffectId, enum)
		return ctx
	}
}

// FireAndForgetEffect triggers a fire-and-forget effect for the given enum and payload.
//
// The handler will process the payload asynchronously.
// Panics if no handler is registered for the given enum.
func FireAndForgetEffect[P any](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) {
	handler := sharedHelper.MustGetTypedValue[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	handler.FireAndForgetEffect(ctx, payload)
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}
