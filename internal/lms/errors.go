package lms

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable failure category carried by every business
// error. Handlers map kinds to HTTP statuses; messages stay short and never
// include store-specific error text.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindPrerequisiteNotMet Kind = "prerequisite_not_met"
	KindAlreadyAttempted   Kind = "already_attempted"
	KindAlreadyExists      Kind = "already_exists"
	KindDeadlinePassed     Kind = "deadline_passed"
	KindInvariantViolation Kind = "invariant_violation"
	KindValidation         Kind = "validation"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func E(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

func Errf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
