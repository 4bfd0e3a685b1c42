package oshost

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/on-the-ground/effect_ive_platform/platform"
	"github.com/on-the-ground/effect_ive_platform/shared/helper"
	"go.uber.org/zap"
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SendRequest performs req. Any status code is a Response; only transport
// failures are errors, and only network errors are retried.
func (h *Host) SendRequest(ctx context.Context, req platform.Request) (platform.Response, error) {
	if err := req.Validate(); err != nil {
		return platform.Response{}, err
	}

	timeout := h.opts.timeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	var resp platform.Response
	attempt := 0
	retryable := func(err error) bool {
		return ctx.Err() == nil && isNetworkError(err)
	}
	err := helper.RetryWithBackoff(ctx, h.opts.retries, h.opts.backoff, retryable, func() error {
		attempt++
		var err error
		resp, err = h.do(ctx, req, timeout)
		if err != nil {
			h.opts.logger.Debug("request failed",
				zap.String("method", req.Method),
				zap.String("url", req.URL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return platform.Response{}, err
	}
	return resp, nil
}

func (h *Host) do(ctx context.Context, req platform.Request, timeout time.Duration) (platform.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return platform.Response{}, &platform.RequestError{Kind: platform.RequestBadRequest, URL: req.URL, Err: err}
	}
	for _, hdr := range req.Headers {
		httpReq.Header.Add(hdr.Name, hdr.Value)
	}

	httpResp, err := h.opts.client.Do(httpReq)
	if err != nil {
		return platform.Response{}, classify(ctx, req.URL, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, h.opts.maxBodySize+1))
	if err != nil {
		return platform.Response{}, classify(ctx, req.URL, err)
	}
	if int64(len(respBody)) > h.opts.maxBodySize {
		respBody = respBody[:h.opts.maxBodySize]
	}

	return platform.Response{
		URL:        httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		StatusText: http.StatusText(httpResp.StatusCode),
		Headers:    platform.HeadersFrom(httpResp.Header),
		Body:       respBody,
	}, nil
}

func classify(ctx context.Context, url string, err error) *platform.RequestError {
	kind := platform.RequestNetwork
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = platform.RequestTimeout
	}
	return &platform.RequestError{Kind: kind, URL: url, Err: err}
}

func isNetworkError(err error) bool {
	var reqErr *platform.RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == platform.RequestNetwork
}
