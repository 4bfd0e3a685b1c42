package platform

import (
	"context"
	"fmt"
	"net/url"

	"github.com/on-the-ground/effect_ive_platform/effects"
)

// Call is one host operation in flight. Only this package implements it.
type Call interface {
	PartitionKey() string
	Op() string
	call()
}

type envVarCall struct{ name string }

func (c envVarCall) PartitionKey() string { return "env:" + c.name }
func (envVarCall) Op() string             { return "envVarUtf8" }
func (envVarCall) call()                  {}

type writeFileCall struct {
	path Path
	data []byte
	text bool
}

func (c writeFileCall) PartitionKey() string { return "file:" + c.path.String() }
func (c writeFileCall) Op() string {
	if c.text {
		return "writeUtf8"
	}
	return "writeBytes"
}
func (writeFileCall) call() {}

type putLineCall struct{ line string }

func (putLineCall) PartitionKey() string { return "stdout" }
func (putLineCall) Op() string           { return "putLine" }
func (putLineCall) call()                {}

type errLineCall struct{ line string }

func (errLineCall) PartitionKey() string { return "stderr" }
func (errLineCall) Op() string           { return "errLine" }
func (errLineCall) call()                {}

type getLineCall struct{}

func (getLineCall) PartitionKey() string { return "stdin" }
func (getLineCall) Op() string           { return "getLine" }
func (getLineCall) call()                {}

type sendRequestCall struct{ req Request }

func (c sendRequestCall) PartitionKey() string {
	if u, err := url.Parse(c.req.URL); err == nil && u.Host != "" {
		return "net:" + u.Host
	}
	return "net:"
}
func (sendRequestCall) Op() string { return "sendRequest" }
func (sendRequestCall) call()      {}

// EnvVarUTF8 reads the environment variable name.
func EnvVarUTF8(name string) Effect[string] {
	return perform[string](envVarCall{name: name})
}

// WriteUTF8 writes text to the file at path, replacing its contents.
func WriteUTF8(path Path, text string) Effect[Unit] {
	return perform[Unit](writeFileCall{path: path, data: []byte(text), text: true})
}

// WriteBytes writes data to the file at path, replacing its contents.
// data is copied; later changes to the slice do not affect the effect.
func WriteBytes(path Path, data []byte) Effect[Unit] {
	cp := make([]byte, len(data))
	copy(cp, data)
	return perform[Unit](writeFileCall{path: path, data: cp})
}

// PutLine writes line and a newline to standard output.
func PutLine(line string) Effect[Unit] {
	return perform[Unit](putLineCall{line: line})
}

// ErrLine writes line and a newline to standard error.
func ErrLine(line string) Effect[Unit] {
	return perform[Unit](errLineCall{line: line})
}

// GetLine reads one line from standard input.
func GetLine() Effect[string] {
	return perform[string](getLineCall{})
}

// SendRequest performs req over the network.
func SendRequest(req Request) Effect[Response] {
	return perform[Response](sendRequestCall{req: req})
}

// perform builds the effect that sends call to the host handler in scope when run.
func perform[R any](call Call) Effect[R] {
	return Effect[R]{perform: func(ctx context.Context) (R, error) {
		var zero R
		if !effects.HasEffectHandler(ctx, EffectHost) {
			return zero, fmt.Errorf("%w: %s", ErrNoHost, call.Op())
		}
		v, err := effects.AwaitResumableEffect[Call, any](ctx, EffectHost, call)
		if err != nil {
			return zero, err
		}
		r, ok := v.(R)
		if !ok {
			return zero, fmt.Errorf("%s: unexpected result type %T", call.Op(), v)
		}
		return r, nil
	}}
}
