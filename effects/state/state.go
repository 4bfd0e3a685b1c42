package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/on-the-ground/effect_ive_platform/effects"
	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
	"github.com/on-the-ground/effect_ive_platform/shared/helper"
)

// ErrNoSuchKey is returned when the key was not found in any state handler.
var ErrNoSuchKey = errors.New("key not found")

// WithEffectHandler registers a resumable, partitionable effect handler managing key-value state.
//
// Operations on one key always run on the same worker, in the order they were performed.
// With delegation enabled, a Load that misses locally is retried on the enclosing state scope.
// initMap is written to the store before the handler starts.
func WithEffectHandler[K comparable, V comparable](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	delegation bool,
	store Store[K, V],
	initMap map[K]V,
) (context.Context, func() context.Context, error) {
	sh := &stateHandler[K, V]{
		store:      store,
		delegation: delegation,
	}
	for k, v := range initMap {
		if err := store.Store(k, v); err != nil {
			return ctx, func() context.Context { return ctx }, fmt.Errorf("failed to seed state key %v: %w", k, err)
		}
	}
	ctx, end := effects.WithResumablePartitionableEffectHandler[Payload, any](
		ctx,
		config,
		effectmodel.EffectState,
		sh.handle,
	)
	return ctx, end, nil
}

func EffectLoad[K comparable, V comparable](ctx context.Context, key K) (V, error) {
	return helper.GetTypedValueOf[V](func() (any, error) {
		return effect(ctx, Load[K]{Key: key})
	})
}

func EffectPut[K comparable, V comparable](ctx context.Context, key K, val V) error {
	_, err := effect(ctx, Put[K, V]{Key: key, New: val})
	return err
}

// effect performs a state operation using the EffectState handler.
func effect(ctx context.Context, payload Payload) (any, error) {
	return effects.AwaitResumableEffect[Payload, any](ctx, effectmodel.EffectState, payload)
}

type stateHandler[K comparable, V comparable] struct {
	store      Store[K, V]
	delegation bool
}

// handle routes the given payload to the matching store operation.
func (sh stateHandler[K, V]) handle(ctx context.Context, payload Payload) (any, error) {
	switch payload := payload.(type) {
	case Load[K]:
		v, ok, err := sh.store.Load(payload.Key)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		if sh.delegation && effects.HasEffectHandler(ctx, effectmodel.EffectState) {
			return effect(ctx, payload)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoSuchKey, payload.Key)

	case Put[K, V]:
		return nil, sh.store.Store(payload.Key, payload.New)

	default:
		return nil, fmt.Errorf("state payload %T does not match this scope", payload)
	}
}
