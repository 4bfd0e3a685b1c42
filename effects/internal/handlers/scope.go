package handlers

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// effectScope owns one dispatcher and the teardown that stops it.
//
// A scope is meant to be closed by the goroutine that opened it. Performing
// effects on it from many goroutines is fine; closing it concurrently is not.
type effectScope[T any] struct {
	EffectId   string
	dispatcher WorkerDispatcher[T]
	closeFn    func()
	closed     bool
	logger     *zap.Logger
}

func (es *effectScope[T]) Close() {
	if !es.closed {
		es.closeFn()
		es.closed = true
		es.logger.Debug("effect scope closed", zap.String("effectId", es.EffectId))
	}
}

func newEffectScope[T any](
	dispatcher WorkerDispatcher[T],
	teardown func(),
) *effectScope[T] {
	return &effectScope[T]{
		EffectId:   uuid.New().String(),
		dispatcher: dispatcher,
		closeFn:    teardown,
		closed:     false,
		logger:     zap.NewNop(),
	}
}

// Done is closed once the scope's workers have stopped.
func (es *effectScope[T]) Done() <-chan struct{} {
	return es.dispatcher.Done()
}

// dropped logs an effect that never reached a worker because the scope had stopped.
func (es *effectScope[T]) dropped(payload any, err error) {
	if errors.Is(err, ErrScopeClosed) {
		es.logger.Warn(
			"effect sent to closed scope",
			zap.String("effectId", es.EffectId),
			zap.Any("payload", payload),
		)
	}
}

// UseLogger replaces the scope's logger; nil keeps the current one.
func (es *effectScope[T]) UseLogger(logger *zap.Logger) {
	if logger != nil {
		es.logger = logger
	}
}
