package concurrency

import (
	"context"
	"fmt"
	"sync"

	"github.com/on-the-ground/effect_ive_platform/effects"
	effectmodel "github.com/on-the-ground/effect_ive_platform/effects/internal/model"
	"github.com/on-the-ground/effect_ive_platform/effects/log"
)

// WithEffectHandler installs a fire-and-forget concurrency effect handler.
//
// It allows `Effect(ctx, fns...)` to spawn goroutines under a managed scope.
//
//   - Each child gets its own cancellable context, cancelled when the parent is.
//   - Panics in children are logged (when a log handler is in scope) and swallowed.
//   - The teardown blocks until every spawned child has returned.
func WithEffectHandler(
	ctx context.Context,
	bufferSize int,
) (context.Context, func() context.Context) {
	sv := &supervisor{
		doneCh: make(chan struct{}),
	}
	sv.watchParentCancel(ctx)

	return effects.WithFireAndForgetEffectHandler(
		ctx,
		bufferSize,
		effectmodel.EffectConcurrency,
		sv.spawnConcurrentChildren,
		func() {
			sv.waitChildren(ctx)
			close(sv.doneCh)
		},
	)
}

// Effect runs every fn in its own goroutine under the concurrency handler in ctx.
func Effect(ctx context.Context, fns ...func(context.Context)) {
	effects.FireAndForgetEffect[Payload](ctx, effectmodel.EffectConcurrency, fns)
}

type Payload []func(context.Context)

// supervisor tracks the children spawned by one concurrency handler.
type supervisor struct {
	wg              sync.WaitGroup
	mu              sync.Mutex
	childrenCancels []context.CancelFunc
	doneCh          chan struct{}
}

// watchParentCancel propagates cancellation of the parent context to every child.
func (s *supervisor) watchParentCancel(parentContext context.Context) {
	ready := make(chan struct{})
	go func() {
		close(ready)
		select {
		case <-parentContext.Done():
			log.TryLogEff(parentContext, log.LogInfo, "context cancelled, cancelling child routines", nil)
			s.mu.Lock()
			for _, cancelFn := range s.childrenCancels {
				cancelFn()
			}
			s.mu.Unlock()
		case <-s.doneCh:
		}
	}()
	<-ready
}

func (s *supervisor) appendCancel(cancelFn context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.childrenCancels = append(s.childrenCancels, cancelFn)
}

// spawnConcurrentChildren starts each function in its own goroutine with its own context.
// It returns once every child has started.
func (s *supervisor) spawnConcurrentChildren(
	parentContext context.Context,
	functions Payload,
) {
	ready := sync.WaitGroup{}

	for _, fn := range functions {
		childCtx, cancel := context.WithCancel(context.WithoutCancel(parentContext))
		s.appendCancel(cancel)
		s.wg.Add(1)
		ready.Add(1)
		go func(f func(context.Context), ctx context.Context) {
			defer s.wg.Done()
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					log.TryLogEff(parentContext, log.LogError, "panic in child routine", map[string]interface{}{
						"error": fmt.Sprint(r),
					})
				}
			}()
			ready.Done()
			f(ctx)
		}(fn, childCtx)
	}

	ready.Wait()
}

// waitChildren blocks until all child goroutines complete.
func (s *supervisor) waitChildren(ctx context.Context) {
	log.TryLogEff(ctx, log.LogDebug, "waiting for all routines to finish", nil)
	s.wg.Wait()
	log.TryLogEff(ctx, log.LogDebug, "all routines finished", nil)
}
