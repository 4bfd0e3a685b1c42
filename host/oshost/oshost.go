// Package oshost is the platform.Host of a native process: the real environment,
// file system, standard streams and network.
package oshost

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/shared/helper"
	"go.uber.org/zap"
)

var _ platform.Host = (*Host)(nil)

type Host struct {
	opts    options
	stdinMu sync.Mutex
	stdin   *bufio.Reader
	// lineSem admits one GetLine at a time and guards pending, the read still
	// in flight for a caller that gave up.
	lineSem chan struct{}
	pending chan lineResult
	outMu   sync.Mutex
	errMu   sync.Mutex
}

func New(opts ...Option) *Host {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = newHTTPClient()
	}
	return &Host{opts: o, stdin: bufio.NewReader(o.stdin), lineSem: make(chan struct{}, 1)}
}

// Stdin is the buffered standard input GetLine reads from. Give it to anything
// else that reads standard input so no buffered bytes are lost.
func (h *Host) Stdin() io.Reader { return stdinReader{h} }

type stdinReader struct{ h *Host }

func (r stdinReader) Read(p []byte) (int, error) {
	r.h.stdinMu.Lock()
	defer r.h.stdinMu.Unlock()
	return r.h.stdin.Read(p)
}

func (h *Host) EnvVarUTF8(_ context.Context, name string) (string, error) {
	v, ok := h.opts.lookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", platform.ErrEnvVarNotFound, name)
	}
	return v, nil
}

func (h *Host) WriteUTF8(_ context.Context, path platform.Path, text string) error {
	return h.writeFile("writeUtf8", path, []byte(text))
}

func (h *Host) WriteBytes(_ context.Context, path platform.Path, data []byte) error {
	return h.writeFile("writeBytes", path, data)
}

func (h *Host) writeFile(op string, path platform.Path, data []byte) error {
	if path.IsZero() {
		return &platform.HostError{Op: op, Err: platform.ErrInvalidPath}
	}
	if err := os.WriteFile(path.String(), data, h.opts.fileMode); err != nil {
		h.opts.logger.Debug("write failed", zap.String("op", op), zap.String("path", path.String()), zap.Error(err))
		return &platform.HostError{Op: op, Path: path.String(), Err: err}
	}
	return nil
}

func (h *Host) PutLine(_ context.Context, line string) error {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	if _, err := io.WriteString(h.opts.stdout, line+"\n"); err != nil {
		return &platform.HostError{Op: "putLine", Err: err}
	}
	return nil
}

func (h *Host) ErrLine(_ context.Context, line string) error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if _, err := io.WriteString(h.opts.stderr, line+"\n"); err != nil {
		return &platform.HostError{Op: "errLine", Err: err}
	}
	return nil
}

type lineResult struct {
	line string
	err  error
}

// GetLine returns when a line arrives or ctx ends. A read abandoned by a
// cancelled caller is handed to the next one, so no input is lost.
func (h *Host) GetLine(ctx context.Context) (string, error) {
	select {
	case h.lineSem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-h.lineSem }()

	if h.pending == nil {
		ch := make(chan lineResult, 1)
		h.pending = ch
		go func() {
			h.stdinMu.Lock()
			defer h.stdinMu.Unlock()
			line, err := helper.ReadLine(h.stdin)
			ch <- lineResult{line: line, err: err}
		}()
	}

	var res lineResult
	select {
	case res = <-h.pending:
		h.pending = nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
	switch {
	case errors.Is(res.err, io.EOF):
		return "", platform.ErrEndOfInput
	case res.err != nil:
		return "", &platform.HostError{Op: "getLine", Err: res.err}
	}
	return res.line, nil
}
