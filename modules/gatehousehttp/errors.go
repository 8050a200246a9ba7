package gatehousehttp

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Error populates the essential fields of a HandlerError from err,
// generating an ID and call-site trace if err doesn't already carry
// them (e.g. if err is itself a HandlerError bubbling up from deeper
// in the chain).
func Error(statusCode int, err error) HandlerError {
	var he HandlerError
	if errors.As(err, &he) {
		if he.ID == "" {
			he.ID = uuid.NewString()
		}
		if he.Trace == "" {
			he.Trace = trace()
		}
		if he.StatusCode == 0 {
			he.StatusCode = statusCode
		}
		return he
	}
	return HandlerError{
		ID:         uuid.NewString(),
		StatusCode: statusCode,
		Err:        err,
		Trace:      trace(),
	}
}

// HandlerError is the error type every pipeline exit point that fails
// produces, carrying enough to both log usefully and answer the client
// with the right status code.
type HandlerError struct {
	Err        error
	StatusCode int
	ID         string
	Trace      string
}

func (e HandlerError) Error() string {
	var s string
	if e.ID != "" {
		s += fmt.Sprintf("{id=%s}", e.ID)
	}
	if e.Trace != "" {
		s += " " + e.Trace
	}
	if e.StatusCode != 0 {
		s += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return strings.TrimSpace(s)
}

func (e HandlerError) Unwrap() error { return e.Err }

func trace() string {
	if pc, file, line, ok := runtime.Caller(2); ok {
		filename := path.Base(file)
		pkgAndFuncName := path.Base(runtime.FuncForPC(pc).Name())
		return fmt.Sprintf("%s (%s:%d)", pkgAndFuncName, filename, line)
	}
	return ""
}

// ErrorCtxKey is the context key used to stash a HandlerError for
// retrieval by a deferred logging step.
const ErrorCtxKey = gatehouseCtxKey("handler_chain_error")

type gatehouseCtxKey string
