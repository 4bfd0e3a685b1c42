package platform

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator.New is expensive and the result is safe for concurrent use.
var validate = validator.New()

type Header struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// Request describes one outgoing HTTP request.
type Request struct {
	Method    string   `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS CONNECT TRACE"`
	URL       string   `json:"url" validate:"required,url"`
	Headers   []Header `json:"headers,omitempty" validate:"dive"`
	Body      []byte   `json:"body,omitempty"`
	TimeoutMs int      `json:"timeout_ms,omitempty" validate:"min=0"`
}

// Validate reports a malformed request as a RequestError of kind RequestBadRequest.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &RequestError{Kind: RequestBadRequest, URL: r.URL, Err: err}
	}
	return nil
}

// Response is what came back. Any status code, including 4xx and 5xx, is a Response.
type Response struct {
	URL        string   `json:"url"`
	StatusCode int      `json:"status_code"`
	StatusText string   `json:"status_text"`
	Headers    []Header `json:"headers,omitempty"`
	Body       []byte   `json:"body,omitempty"`
}

// Header returns the first value of the named header, matched case-insensitively.
func (r Response) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// IsSuccess reports a 2xx status.
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HeadersFrom flattens an http.Header into name/value pairs, one per value, sorted by name.
func HeadersFrom(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Header
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}
