package oshost

import (
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxBodySize  = 10 * 1024 * 1024
	DefaultTimeout      = 30 * time.Second
	DefaultRetryBackoff = 100 * time.Millisecond
)

type options struct {
	lookupEnv   func(string) (string, bool)
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	retries     int
	backoff     time.Duration
	fileMode    os.FileMode
	logger      *zap.Logger
}

func defaultOptions() options {
	return options{
		lookupEnv:   os.LookupEnv,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		backoff:     DefaultRetryBackoff,
		fileMode:    0o644,
		logger:      zap.NewNop(),
	}
}

type Option func(*options)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) {
		if fn != nil {
			o.lookupEnv = fn
		}
	}
}

func WithStdin(r io.Reader) Option {
	return func(o *options) { o.stdin = r }
}

func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithTimeout sets the timeout of requests that carry none of their own.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxBodySize caps how much of a response body is kept; the rest is dropped.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// WithRetries retries requests that fail with a network error up to n more times.
func WithRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// WithRetryBackoff sets the pause before the first retry; it doubles for each later one.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.backoff = d
		}
	}
}

func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.fileMode = mode }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
