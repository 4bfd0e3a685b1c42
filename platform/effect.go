package platform

import (
	"context"
)

// Unit is the result of effects that are run only for their side effect.
type Unit struct{}

// Effect is a deferred description of work that yields a T when a host runs it.
// The zero Effect is invalid; running it fails with ErrEmptyEffect.
type Effect[T any] struct {
	perform func(ctx context.Context) (T, error)
}

func (e Effect[T]) run(ctx context.Context) (T, error) {
	if e.perform == nil {
		var zero T
		return zero, ErrEmptyEffect
	}
	return e.perform(ctx)
}

// Run executes e. Host operations inside e are served by the host handler in ctx;
// without one they fail with ErrNoHost.
func Run[T any](ctx context.Context, e Effect[T]) (T, error) {
	return e.run(ctx)
}

// RunWith registers host for the duration of one run of e.
func RunWith[T any](ctx context.Context, host Host, e Effect[T]) (T, error) {
	ctx, end := WithHostEffectHandler(ctx, LoadHostConfig(ctx), host)
	defer end()
	return Run(ctx, e)
}

// Always lifts a plain value. Running it touches nothing.
func Always[A any](a A) Effect[A] {
	return Effect[A]{perform: func(context.Context) (A, error) {
		return a, nil
	}}
}

// Fail is an effect that fails with err when run.
func Fail[A any](err error) Effect[A] {
	return Effect[A]{perform: func(context.Context) (A, error) {
		var zero A
		return zero, err
	}}
}

// Map transforms the result of e with f.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	return Effect[B]{perform: func(ctx context.Context) (B, error) {
		a, err := e.run(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return f(a), nil
	}}
}

// After runs e, then the effect next builds from its result.
// next is not called when e fails.
func After[A, B any](e Effect[A], next func(A) Effect[B]) Effect[B] {
	return Effect[B]{perform: func(ctx context.Context) (B, error) {
		a, err := e.run(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return next(a).run(ctx)
	}}
}

// Catch runs e and, if it fails, the effect onErr builds from the error.
func Catch[A any](e Effect[A], onErr func(error) Effect[A]) Effect[A] {
	return Effect[A]{perform: func(ctx context.Context) (A, error) {
		a, err := e.run(ctx)
		if err != nil {
			return onErr(err).run(ctx)
		}
		return a, nil
	}}
}

// Forever runs e again and again. It stops only when ctx is cancelled, returning
// the context's error, or when a run of e fails, returning that error.
func Forever[A any](e Effect[A]) Effect[A] {
	return Effect[A]{perform: func(ctx context.Context) (A, error) {
		var zero A
		for {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			if _, err := e.run(ctx); err != nil {
				return zero, err
			}
		}
	}}
}

// Step is the outcome of one Loop iteration: keep going with a new state, or stop with a value.
type Step[S, A any] struct {
	state S
	value A
	done  bool
}

func Continue[S, A any](state S) Step[S, A] {
	return Step[S, A]{state: state}
}

func Done[S, A any](value A) Step[S, A] {
	return Step[S, A]{value: value, done: true}
}

// Loop feeds state to step until step yields Done. Cancellation of ctx is checked
// before every iteration.
func Loop[S, A any](state S, step func(S) Effect[Step[S, A]]) Effect[A] {
	return Effect[A]{perform: func(ctx context.Context) (A, error) {
		var zero A
		cur := state
		for {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			st, err := step(cur).run(ctx)
			if err != nil {
				return zero, err
			}
			if st.done {
				return st.value, nil
			}
			cur = st.state
		}
	}}
}
