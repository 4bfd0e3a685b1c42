package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
)

func NewFireAndForgetHandler[P any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	ctx, cancelFn := context.WithCancel(ctx)
	return FireAndForgetHandler[P]{
		effectScope: newEffectScope(
			NewSingleQueue(ctx, bufferSize, forget(handleFn)),
			func() {
				teardown()
				cancelFn()
			},
		),
	}
}

func NewPartitionableFireAndForgetHandler[P effectmodel.Partitionable](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	ctx, cancelFn := context.WithCancel(ctx)
	return FireAndForgetHandler[P]{
		effectScope: newEffectScope(
			NewPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, forget(handleFn)),
			func() {
				teardown()
				cancelFn()
			},
		),
	}
}

func forget[P any](handleFn func(context.Context, P)) func(context.Context, FireAndForgetEffectMessage[P]) {
	return func(ctx context.Context, msg FireAndForgetEffectMessage[P]) {
		handleFn(ctx, msg.Payload)
	}
}

type FireAndForgetHandler[P any] struct {
	*effectScope[FireAndForgetEffectMessage[P]]
}

// FireAndForgetEffect enqueues payload. It is dropped if ctx or the scope ends first.
func (fh FireAndForgetHandler[P]) FireAndForgetEffect(ctx context.Context, payload P) {
	msg := FireAndForgetEffectMessage[P]{Payload: payload}
	if err := fh.dispatcher.Dispatch(ctx, msg); err != nil {
		fh.dropped(payload, err)
	}
}

var _ effectmodel.Partitionable = FireAndForgetEffectMessage[any]{}

type FireAndForgetEffectMessage[P any] struct {
	Payload P
}

func (fm FireAndForgetEffectMessage[P]) PartitionKey() string {
	if p, ok := any(fm.Payload).(effectmodel.Partitionable); ok {
		return p.PartitionKey()
	}
	return ""
}
