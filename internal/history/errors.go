package history

import (
	"errors"
	"fmt"
)

// Kind classifies a failure returned by the history operations.
type Kind string

const (
	KindInvalidRef       Kind = "invalid_ref"
	KindRefNotFound      Kind = "ref_not_found"
	KindSessionNotFound  Kind = "session_not_found"
	KindProjectNotFound  Kind = "project_not_found"
	KindNoCurrentProject Kind = "no_current_project"
	KindInvalidPattern   Kind = "invalid_regex"
	KindIO               Kind = "io_error"
	KindParse            Kind = "parse_error"
	KindInvalidArgument  Kind = "invalid_argument"
)

// ProjectRef names a project in an error's "available" list.
type ProjectRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Error is the structured failure returned by every history operation.
type Error struct {
	Kind      Kind
	Message   string
	Available []ProjectRef
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ioError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindIO, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or "" when err is not a history error.
func KindOf(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return ""
}
