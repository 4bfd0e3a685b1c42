package binding

import (
	"context"

	"github.com/on-the-ground/effect_ive_platform/shared/helper"
)

// GetFromBindingEffect fetches a typed value from the Binding effect using the provided key.
// Returns a zero value and error if the key is not found or the type is mismatched.
func GetFromBindingEffect[T any](ctx context.Context, key string) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return Effect(ctx, key)
	})
}

// GetOrDefault is GetFromBindingEffect that yields def when no binding scope is present,
// the key is unbound, or the value has another type.
func GetOrDefault[T any](ctx context.Context, key string, def T) T {
	if !InScope(ctx) {
		return def
	}
	v, err := GetFromBindingEffect[T](ctx, key)
	if err != nil {
		return def
	}
	return v
}
