package handlers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_platform/effects/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hostCall stands in for a partitioned host operation.
type hostCall struct {
	seq    int
	stream string
}

func (c hostCall) PartitionKey() string {
	return c.stream
}

func TestSingleQueue_HandlesInArrivalOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	wg.Add(3)
	dispatcher := handlers.NewSingleQueue(ctx, 4, func(_ context.Context, n int) {
		defer wg.Done()
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, dispatcher.Dispatch(ctx, i))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestPartitionedQueue_KeepsOrderPerStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		byStream = map[string][]int{}
		wg       sync.WaitGroup
	)
	calls := []hostCall{
		{0, "stdout"}, {0, "stderr"}, {1, "stdout"}, {1, "stderr"}, {2, "stdout"}, {0, "file:a"},
	}
	wg.Add(len(calls))
	dispatcher := handlers.NewPartitionedQueue(ctx, 3, 8, func(_ context.Context, c hostCall) {
		defer wg.Done()
		mu.Lock()
		byStream[c.stream] = append(byStream[c.stream], c.seq)
		mu.Unlock()
	})

	for _, c := range calls {
		require.NoError(t, dispatcher.Dispatch(ctx, c))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, byStream["stdout"])
	assert.Equal(t, []int{0, 1}, byStream["stderr"])
	assert.Equal(t, []int{0}, byStream["file:a"])
}

func TestDispatch_AfterShutdownReturnsScopeClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan int, 1)
	dispatcher := handlers.NewSingleQueue(ctx, 1, func(_ context.Context, n int) {
		handled <- n
	})

	require.NoError(t, dispatcher.Dispatch(context.Background(), 1))
	assert.Equal(t, 1, <-handled)

	cancel()
	<-dispatcher.Done()

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, dispatcher.Dispatch(context.Background(), 2), handlers.ErrScopeClosed)
	}
	select {
	case n := <-handled:
		t.Fatalf("message %d handled after shutdown", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatch_ShutdownUnblocksWaitingSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	dispatcher := handlers.NewSingleQueue(ctx, 1, func(_ context.Context, n int) {
		entered <- struct{}{}
		<-release
	})
	defer close(release)

	require.NoError(t, dispatcher.Dispatch(ctx, 1))
	<-entered
	require.NoError(t, dispatcher.Dispatch(ctx, 2)) // fills the buffer

	errCh := make(chan error, 1)
	go func() {
		errCh <- dispatcher.Dispatch(context.Background(), 3)
	}()
	select {
	case err := <-errCh:
		t.Fatalf("send on a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, handlers.ErrScopeClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked sender was not released by shutdown")
	}
}

func TestDispatch_CallerCancelUnblocksSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	defer close(release)
	dispatcher := handlers.NewSingleQueue(ctx, 1, func(_ context.Context, n int) {
		<-release
	})

	require.NoError(t, dispatcher.Dispatch(ctx, 1))
	// the worker may or may not have taken the first message yet
	_ = dispatcher.Dispatch(ctx, 2)

	callCtx, callCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer callCancel()
	err := dispatcher.Dispatch(callCtx, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
