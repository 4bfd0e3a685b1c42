package platform_test

import (
	"context"
	"sync"

	"github.com/on-the-ground/effect_ive_platform/platform"
)

var _ platform.Host = (*fakeHost)(nil)

// fakeHost keeps every side effect in memory and counts calls.
type fakeHost struct {
	mu       sync.Mutex
	env      map[string]string
	files    map[string][]byte
	stdout   []string
	stderr   []string
	stdin    []string
	requests []platform.Request
	calls    int
	respond  func(context.Context, platform.Request) (platform.Response, error)
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		env:   map[string]string{},
		files: map[string][]byte{},
	}
}

func (f *fakeHost) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeHost) EnvVarUTF8(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.env[name]
	if !ok {
		return "", platform.ErrEnvVarNotFound
	}
	return v, nil
}

func (f *fakeHost) WriteUTF8(_ context.Context, path platform.Path, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.files[path.String()] = []byte(text)
	return nil
}

func (f *fakeHost) WriteBytes(_ context.Context, path platform.Path, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.files[path.String()] = data
	return nil
}

func (f *fakeHost) PutLine(_ context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stdout = append(f.stdout, line)
	return nil
}

func (f *fakeHost) ErrLine(_ context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stderr = append(f.stderr, line)
	return nil
}

func (f *fakeHost) GetLine(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.stdin) == 0 {
		return "", platform.ErrEndOfInput
	}
	line := f.stdin[0]
	f.stdin = f.stdin[1:]
	return line, nil
}

func (f *fakeHost) SendRequest(ctx context.Context, req platform.Request) (platform.Response, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return platform.Response{URL: req.URL, StatusCode: 204, StatusText: "No Content"}, nil
	}
	return respond(ctx, req)
}
