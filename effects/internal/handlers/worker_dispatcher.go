package handlers

import (
	"context"
	"errors"
	"sync"

	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
)

// ErrScopeClosed is returned for effects performed on a scope whose workers have stopped.
var ErrScopeClosed = errors.New("effect scope closed")

// WorkerDispatcher routes messages to the worker that owns them.
//
// Queues are never closed. Workers stop when the dispatcher's context ends, after which
// Dispatch fails with ErrScopeClosed and Done is closed.
type WorkerDispatcher[T any] interface {
	Dispatch(ctx context.Context, msg T) error
	Done() <-chan struct{}
}

// dispatch enqueues msg on ch unless the caller or the workers are done first.
func dispatch[T any](ctx context.Context, done <-chan struct{}, ch chan<- T, msg T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-done:
		return ErrScopeClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrScopeClosed
	case ch <- msg:
		return nil
	}
}

// work feeds msgs to handleFn until ctx ends.
func work[T any](ctx context.Context, ch <-chan T, handleFn func(context.Context, T)) {
	for {
		select {
		case msg := <-ch:
			handleFn(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// --- single queue ---

type singleQueue[T any] struct {
	ctx      context.Context
	effectCh chan T
}

func (q singleQueue[T]) Dispatch(ctx context.Context, msg T) error {
	return dispatch(ctx, q.ctx.Done(), q.effectCh, msg)
}

func (q singleQueue[T]) Done() <-chan struct{} {
	return q.ctx.Done()
}

// NewSingleQueue starts one worker that feeds every message to handleFn in arrival order.
func NewSingleQueue[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
) WorkerDispatcher[T] {
	effCh := make(chan T, bufferSize)
	ready := make(chan struct{})

	go func() {
		close(ready)
		work(ctx, effCh, handleFn)
	}()

	<-ready

	return singleQueue[T]{ctx: ctx, effectCh: effCh}
}

// --- partitioned queue ---

type partitionedQueue[T effectmodel.Partitionable] struct {
	ctx       context.Context
	effectChs []chan T
}

func (pq partitionedQueue[T]) Dispatch(ctx context.Context, msg T) error {
	idx := getIndexByHash(msg, len(pq.effectChs))
	return dispatch(ctx, pq.ctx.Done(), pq.effectChs[idx], msg)
}

func (pq partitionedQueue[T]) Done() <-chan struct{} {
	return pq.ctx.Done()
}

// NewPartitionedQueue starts numWorkers workers. Messages sharing a PartitionKey
// always land on the same worker and are handled in order.
func NewPartitionedQueue[T effectmodel.Partitionable](
	ctx context.Context,
	numWorkers, bufferSize int,
	handleFn func(context.Context, T),
) WorkerDispatcher[T] {
	channels := make([]chan T, numWorkers)
	ready := sync.WaitGroup{}
	for i := 0; i < numWorkers; i++ {
		ready.Add(1)
		ch := make(chan T, bufferSize)
		go func() {
			ready.Done()
			work(ctx, ch, handleFn)
		}()
		channels[i] = ch
	}
	ready.Wait()
	return partitionedQueue[T]{ctx: ctx, effectChs: channels}
}
