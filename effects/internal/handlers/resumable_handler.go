package handlers

import (
	"context"
	"errors"

	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
)

func NewResumableHandler[P any, R any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	ctx, cancelFn := context.WithCancel(ctx)
	return ResumableHandler[P, R]{
		effectScope: newEffectScope(
			NewSingleQueue(ctx, bufferSize, resume(handleFn)),
			func() {
				teardown()
				cancelFn()
			},
		),
	}
}

func NewPartitionableResumableHandler[P effectmodel.Partitionable, R any](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P) (R, error),
	teardown func(),
) ResumableHandler[P, R] {
	ctx, cancelFn := context.WithCancel(ctx)
	return ResumableHandler[P, R]{
		effectScope: newEffectScope(
			NewPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, resume(handleFn)),
			func() {
				teardown()
				cancelFn()
			},
		),
	}
}

// resume adapts handleFn into a worker callback that answers on the message's resume channel.
// A message whose caller already gave up is closed without being handled.
func resume[P any, R any](
	handleFn func(context.Context, P) (R, error),
) func(context.Context, ResumableEffectMessage[P, R]) {
	return func(ctx context.Context, msg ResumableEffectMessage[P, R]) {
		defer close(msg.ResumeCh)

		callCtx, cancel := boundToCaller(ctx, msg.Ctx)
		defer cancel()
		if callCtx.Err() != nil {
			return
		}
		msg.ResumeCh <- ResumableResultFrom(handleFn(callCtx, msg.Payload))
	}
}

// boundToCaller keeps the values of the worker context and adds the caller's deadline and
// cancellation, so handleFn stops when either side does.
func boundToCaller(worker, caller context.Context) (context.Context, context.CancelFunc) {
	if caller == nil {
		return context.WithCancel(worker)
	}
	ctx := worker
	cancelDeadline := func() {}
	if d, ok := caller.Deadline(); ok {
		ctx, cancelDeadline = context.WithDeadline(ctx, d)
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(caller, func() {
		// an expired caller is reported by ctx's own deadline
		if !errors.Is(caller.Err(), context.DeadlineExceeded) {
			cancel()
		}
	})
	return ctx, func() {
		stop()
		cancel()
		cancelDeadline()
	}
}

type ResumableHandler[P any, R any] struct {
	*effectScope[ResumableEffectMessage[P, R]]
}

// PerformEffect enqueues payload and returns the channel its result arrives on.
// The channel is closed without a value if the caller or the scope stops first.
func (rh ResumableHandler[P, R]) PerformEffect(ctx context.Context, payload P) <-chan ResumableResult[R] {
	// buffered so the worker never blocks on a caller that gave up
	resumeCh := make(chan ResumableResult[R], 1)
	msg := ResumableEffectMessage[P, R]{
		Ctx:      ctx,
		Payload:  payload,
		ResumeCh: resumeCh,
	}
	if err := rh.dispatcher.Dispatch(ctx, msg); err != nil {
		rh.dropped(payload, err)
		close(resumeCh)
	}
	return resumeCh
}

// AwaitEffect performs payload and waits for its result.
// It fails with ctx's error once ctx is done and with ErrScopeClosed once the scope stops.
func (rh ResumableHandler[P, R]) AwaitEffect(ctx context.Context, payload P) (R, error) {
	resumeCh := rh.PerformEffect(ctx, payload)
	select {
	case res, ok := <-resumeCh:
		if ok {
			return res.Value, res.Err
		}
	case <-ctx.Done():
	case <-rh.Done():
		select {
		case res, ok := <-resumeCh:
			if ok {
				return res.Value, res.Err
			}
		default:
		}
	}
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, ErrScopeClosed
}

// ResumableResult represents the result of handled effects.
type ResumableResult[T any] struct {
	Value T
	Err   error
}

func ResumableResultFrom[R any](res R, err error) ResumableResult[R] {
	return ResumableResult[R]{Value: res, Err: err}
}

var _ effectmodel.Partitionable = ResumableEffectMessage[any, any]{}

type ResumableEffectMessage[P any, R any] struct {
	// Ctx is the performer's context; its deadline and cancellation reach the handler.
	Ctx      context.Context
	Payload  P
	ResumeCh chan ResumableResult[R]
}

func (rem ResumableEffectMessage[P, R]) PartitionKey() string {
	if p, ok := any(rem.Payload).(effectmodel.Partitionable); ok {
		return p.PartitionKey()
	}
	return ""
}
