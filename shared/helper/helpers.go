package helper

import (
	"context"
	"fmt"
	"time"
)

// GetTypedValueOf safely asserts the result of a getter function to the expected type T.
// Returns an error if type assertion fails.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type: %T", res)
	}

	return val, nil
}

// MustGetTypedValue is the panic-on-failure variant of GetTypedValueOf.
// Use when failure should be fatal (e.g., when effect handler is guaranteed to exist).
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}

var ErrMaxAttempts = fmt.Errorf("max attempts reached")

// Retry calls fn until it succeeds, fails with an error retryable rejects,
// or has been retried maxRetries times. A nil retryable retries every error.
func Retry(maxRetries int, retryable func(error) bool, fn func() error) error {
	return RetryWithBackoff(context.Background(), maxRetries, 0, retryable, fn)
}

// RetryWithBackoff is Retry with a pause before each retry, starting at backoff and doubling.
// It gives up early with the last error once ctx is done.
// The last error is wrapped in ErrMaxAttempts only if at least one retry was made.
func RetryWithBackoff(
	ctx context.Context,
	maxRetries int,
	backoff time.Duration,
	retryable func(error) bool,
	fn func() error,
) error {
	numRetries := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if numRetries >= maxRetries {
			if numRetries == 0 {
				return err
			}
			return fmt.Errorf("%w: %d, %w", ErrMaxAttempts, numRetries, err)
		}
		if backoff > 0 {
			t := time.NewTimer(backoff << numRetries)
			select {
			case <-ctx.Done():
				t.Stop()
				return err
			case <-t.C:
			}
		}
		numRetries++
	}
}
