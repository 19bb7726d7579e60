// Package errdefs defines the error taxonomy shared by all server components
// and the helpers to attach detail to a sentinel.
package errdefs

import (
	"errors"
	"fmt"
)

// Newf joins the base sentinel with a formatted error created by fmt.Errorf.
func Newf(base error, format string, args ...any) error {
	return errors.Join(base, fmt.Errorf(format, args...))
}

// NewE joins the base sentinel with the given error. If err is nil or
// already carries the sentinel it is returned unchanged.
func NewE(base error, err error) error {
	if err == nil || errors.Is(err, base) {
		return err
	}
	return errors.Join(base, err)
}
