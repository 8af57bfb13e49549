package response

import (
	"errors"
)

// Error carries the HTTP status a domain error should surface as.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// Wrap attaches an HTTP status to an existing error, keeping it reachable
// through errors.Is.
func Wrap(code int, err error) error {
	return &Error{Code: code, Err: err}
}
