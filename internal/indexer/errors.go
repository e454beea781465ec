package indexer

import (
	"errors"
	"fmt"
)

// ErrExists is returned when creating a document whose file already exists.
var ErrExists = errors.New("document already exists")

// ErrNotFound is returned when updating or deleting a document whose file does not exist.
var ErrNotFound = errors.New("document not found")

// ValidationError reports a rejected input (bad filename, wrong extension,
// missing field). No side effect has been performed when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
