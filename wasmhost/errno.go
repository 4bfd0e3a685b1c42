package wasmhost

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/on-the-ground/effect_ive_platform/platform"
)

// Errno is what every function of the effect module returns to the guest.
type Errno uint32

const (
	ErrnoOK Errno = iota
	ErrnoNotFound
	ErrnoIO
	ErrnoInvalid
	ErrnoEndOfInput
	ErrnoNetwork
	ErrnoNoAllocate
	ErrnoOutOfRange
)

var (
	errNoAllocate = errors.New("guest does not export allocate")
	errOutOfRange = errors.New("guest memory access out of range")
	errNotUTF8    = errors.New("text is not valid UTF-8")
	errTooLarge   = errors.New("argument too large")
)

func (e Errno) String() string {
	switch e {
	case ErrnoOK:
		return "ok"
	case ErrnoNotFound:
		return "not found"
	case ErrnoIO:
		return "i/o error"
	case ErrnoInvalid:
		return "invalid argument"
	case ErrnoEndOfInput:
		return "end of input"
	case ErrnoNetwork:
		return "network error"
	case ErrnoNoAllocate:
		return "no allocate export"
	case ErrnoOutOfRange:
		return "memory out of range"
	default:
		return fmt.Sprintf("Errno(%d)", uint32(e))
	}
}

// ErrnoOf maps the error of a host operation to the code handed to the guest.
func ErrnoOf(err error) Errno {
	var reqErr *platform.RequestError
	switch {
	case err == nil:
		return ErrnoOK
	case errors.Is(err, errNoAllocate):
		return ErrnoNoAllocate
	case errors.Is(err, errOutOfRange):
		return ErrnoOutOfRange
	case errors.Is(err, platform.ErrEnvVarNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrnoNotFound
	case errors.Is(err, platform.ErrEndOfInput):
		return ErrnoEndOfInput
	case errors.Is(err, platform.ErrInvalidPath), errors.Is(err, errNotUTF8), errors.Is(err, errTooLarge):
		return ErrnoInvalid
	case errors.As(err, &reqErr):
		if reqErr.Kind == platform.RequestBadRequest {
			return ErrnoInvalid
		}
		return ErrnoNetwork
	default:
		return ErrnoIO
	}
}
