package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrInternal marks persistence or otherwise unexpected failures.
	ErrInternal = errors.New("internal error")
	// ErrConflict marks uniqueness violations and business-rule collisions.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks writes that targeted a missing record.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks input rejected before touching storage.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a classified failure carrying the operation and, when known,
// the user it concerned. Unwrap exposes both the kind and the cause.
type Error struct {
	Kind   error
	Op     string
	UserID int64
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.UserID != 0 {
		fmt.Fprintf(&b, " (user %d)", e.UserID)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Internal wraps err as an internal failure of op.
func Internal(op string, userID int64, err error) error {
	return &Error{Kind: ErrInternal, Op: op, UserID: userID, Err: err}
}

// Conflict reports a collision detected by op.
func Conflict(op string, userID int64, msg string) error {
	return &Error{Kind: ErrConflict, Op: op, UserID: userID, Err: errors.New(msg)}
}

// NotFound reports that op found nothing to act on.
func NotFound(op string, userID int64, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, UserID: userID, Err: errors.New(msg)}
}

// InvalidArgument reports rejected input.
func InvalidArgument(op string, msg string) error {
	return &Error{Kind: ErrInvalidArgument, Op: op, Err: errors.New(msg)}
}
