package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
)

// Resource is a fetched module whose bytes are read on demand.
type Resource struct {
	Name string
	open func() (io.ReadCloser, error)
}

func NewResource(name string, open func() (io.ReadCloser, error)) Resource {
	return Resource{Name: name, open: open}
}

// ArrayBuffer reads the whole resource.
func (r Resource) ArrayBuffer() ([]byte, error) {
	if r.open == nil {
		return nil, fmt.Errorf("resource %q has no body", r.Name)
	}
	rc, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", r.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", r.Name, err)
	}
	return data, nil
}

type Fetcher interface {
	Fetch(ctx context.Context, name string) (Resource, error)
}

type FetcherFunc func(ctx context.Context, name string) (Resource, error)

func (f FetcherFunc) Fetch(ctx context.Context, name string) (Resource, error) {
	return f(ctx, name)
}

// FSFetcher serves resources from a file system.
type FSFetcher struct {
	FS fs.FS
}

func (f FSFetcher) Fetch(_ context.Context, name string) (Resource, error) {
	info, err := fs.Stat(f.FS, name)
	if err != nil {
		return Resource{}, fmt.Errorf("fetch %q: %w", name, err)
	}
	if info.IsDir() {
		return Resource{}, fmt.Errorf("fetch %q: is a directory", name)
	}
	return NewResource(name, func() (io.ReadCloser, error) {
		return f.FS.Open(name)
	}), nil
}

// DefaultMaxModuleSize caps the bytes HTTPFetcher reads for one resource.
const DefaultMaxModuleSize = 64 << 20

// HTTPFetcher serves resources relative to a base URL.
// The body is read in full during Fetch, so a Resource can be read any number of times.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
	// MaxSize caps the body; zero means DefaultMaxModuleSize.
	MaxSize int64
}

func (f HTTPFetcher) Fetch(ctx context.Context, name string) (Resource, error) {
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return Resource{}, fmt.Errorf("invalid base url %q: %w", f.BaseURL, err)
	}
	ref, err := url.Parse(name)
	if err != nil {
		return Resource{}, fmt.Errorf("invalid resource name %q: %w", name, err)
	}
	target := base.ResolveReference(ref).String()

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Resource{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Resource{}, fmt.Errorf("fetch %q: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Resource{}, fmt.Errorf("fetch %q: %s", target, resp.Status)
	}

	limit := f.MaxSize
	if limit <= 0 {
		limit = DefaultMaxModuleSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Resource{}, fmt.Errorf("fetch %q: %w", target, err)
	}
	if int64(len(data)) > limit {
		return Resource{}, fmt.Errorf("fetch %q: body exceeds %d bytes", target, limit)
	}
	return NewResource(name, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}), nil
}
