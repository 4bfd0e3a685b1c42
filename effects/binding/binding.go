package binding

import (
	"context"
	"errors"
	"fmt"

	"github.com/on-the-ground/effect_ive_platform/effects"
	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
)

// ErrKeyNotFound is returned when neither this scope nor any enclosing one binds the key.
var ErrKeyNotFound = errors.New("key not found")

// Payload defines a key-based lookup payload.
// Used as input to the Binding effect.
type Payload string

func (bp Payload) PartitionKey() string {
	return string(bp)
}

// WithEffectHandler registers a resumable, partitionable effect handler for bindings.
//
//   - Accepts a key-value map used for lookups; the map is copied.
//   - Falls back to upper scopes if a key is not found locally.
//   - The teardown function should be called when the effect handler is no longer needed.
//     The context it returns is the one passed in.
func WithEffectHandler(
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	bindingMap map[string]any,
) (context.Context, func() context.Context) {
	bindingHandler := &bindingHandler{
		bindingMap: copyBindingMap(bindingMap),
	}
	return effects.WithResumablePartitionableEffectHandler[Payload, any](
		ctx,
		config,
		effectmodel.EffectBinding,
		bindingHandler.handle,
	)
}

// Effect performs a key-based lookup using the Binding effect handler.
//
// Returns either the value found or ErrKeyNotFound if no scope provides it.
// Panics if no binding handler is in scope at all.
func Effect(ctx context.Context, key string) (any, error) {
	return effects.AwaitResumableEffect[Payload, any](ctx, effectmodel.EffectBinding, Payload(key))
}

// InScope reports whether a binding handler is visible from ctx.
func InScope(ctx context.Context) bool {
	return effects.HasEffectHandler(ctx, effectmodel.EffectBinding)
}

func copyBindingMap(bm map[string]any) map[string]any {
	cp := make(map[string]any, len(bm))
	for k, v := range bm {
		cp[k] = v
	}
	return cp
}

// delegateBindingEffect asks the enclosing scope, if there is one.
func delegateBindingEffect(upperCtx context.Context, key string) (any, error) {
	if !InScope(upperCtx) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return Effect(upperCtx, key)
}

type bindingHandler struct {
	bindingMap map[string]any
}

// handle looks up the key in the local bindingMap.
// - If found: returns the value.
// - If not found: delegates to an upper handler (if available).
// - Otherwise: returns ErrKeyNotFound.
func (bh bindingHandler) handle(ctx context.Context, payload Payload) (any, error) {
	key := string(payload)
	v, ok := bh.bindingMap[key]
	if !ok {
		return delegateBindingEffect(ctx, key)
	}
	return v, nil
}
