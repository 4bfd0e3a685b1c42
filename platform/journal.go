package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/on-the-ground/effect_ive_platform/effects"
)

// Entry records one host call made through a Journal.
type Entry struct {
	Op     string
	Detail string
	Span   effects.TimeSpan
	Err    error
}

var _ effects.TimeBounded = Entry{}

func (e Entry) TimeSpan() effects.TimeSpan { return e.Span }

func (e Entry) String() string {
	status := "ok"
	if e.Err != nil {
		status = e.Err.Error()
	}
	return fmt.Sprintf("%s(%s) %s in %s", e.Op, e.Detail, status, e.Span.Duration())
}

var _ Host = (*Journal)(nil)

// Journal is a Host that forwards to another Host and records every call.
type Journal struct {
	host    Host
	mu      sync.Mutex
	entries []Entry
}

func NewJournal(host Host) *Journal {
	return &Journal{host: host}
}

// Entries returns a copy of the calls recorded so far, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *Journal) record(op, detail string, start time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{
		Op:     op,
		Detail: detail,
		Span:   effects.Since(start),
		Err:    err,
	})
}

func (j *Journal) EnvVarUTF8(ctx context.Context, name string) (string, error) {
	start := time.Now()
	v, err := j.host.EnvVarUTF8(ctx, name)
	j.record("envVarUtf8", name, start, err)
	return v, err
}

func (j *Journal) WriteUTF8(ctx context.Context, path Path, text string) error {
	start := time.Now()
	err := j.host.WriteUTF8(ctx, path, text)
	j.record("writeUtf8", path.String(), start, err)
	return err
}

func (j *Journal) WriteBytes(ctx context.Context, path Path, data []byte) error {
	start := time.Now()
	err := j.host.WriteBytes(ctx, path, data)
	j.record("writeBytes", path.String(), start, err)
	return err
}

func (j *Journal) PutLine(ctx context.Context, line string) error {
	start := time.Now()
	err := j.host.PutLine(ctx, line)
	j.record("putLine", fmt.Sprintf("%q", line), start, err)
	return err
}

func (j *Journal) ErrLine(ctx context.Context, line string) error {
	start := time.Now()
	err := j.host.ErrLine(ctx, line)
	j.record("errLine", fmt.Sprintf("%q", line), start, err)
	return err
}

func (j *Journal) GetLine(ctx context.Context) (string, error) {
	start := time.Now()
	v, err := j.host.GetLine(ctx)
	j.record("getLine", "", start, err)
	return v, err
}

func (j *Journal) SendRequest(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := j.host.SendRequest(ctx, req)
	j.record("sendRequest", req.Method+" "+req.URL, start, err)
	return resp, err
}
