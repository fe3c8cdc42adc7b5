package sys

import (
	"errors"
	"fmt"
)

// Named error values for the syscall failure codes, for callers that prefer
// Go error plumbing over comparing raw codes.
var (
	// ErrWouldDeadlock corresponds to CodeWouldDeadlock.
	ErrWouldDeadlock = errors.New("acquisition refused: would deadlock")

	// ErrInvalidArgument corresponds to CodeInvalidArgument.
	ErrInvalidArgument = errors.New("invalid argument")
)

// AsError maps a syscall return code to an error value: nil for
// CodeSuccess and for resource ids (>= 0), one of the named errors for the
// known failure codes, and a generic error for anything else.
func AsError(code int64) error {
	switch {
	case code >= 0:
		return nil
	case code == CodeWouldDeadlock:
		return ErrWouldDeadlock
	case code == CodeInvalidArgument:
		return ErrInvalidArgument
	default:
		return fmt.Errorf("syscall failed with code %d", code)
	}
}
