package transition

import (
	"errors"
	"fmt"
)

// Kind classifies why a transition or lifecycle operation was refused.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindPreconditionFailed Kind = "precondition_failed"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindExternalFailure    Kind = "external_failure"
	KindSignatureInvalid   Kind = "signature_invalid"
)

// Error is the shared result type for every refused state change. The
// orchestrator and the HTTP layer branch on Kind, never on the message.
type Error struct {
	Kind   Kind
	Entity string
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Msg)
}

func NotFound(entity, msg string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Msg: msg}
}

func Invalid(entity, msg string) *Error {
	return &Error{Kind: KindInvalidTransition, Entity: entity, Msg: msg}
}

func Precondition(entity, msg string) *Error {
	return &Error{Kind: KindPreconditionFailed, Entity: entity, Msg: msg}
}

func Forbidden(entity, msg string) *Error {
	return &Error{Kind: KindForbidden, Entity: entity, Msg: msg}
}

func Conflict(entity, msg string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, Msg: msg}
}

func External(entity, msg string) *Error {
	return &Error{Kind: KindExternalFailure, Entity: entity, Msg: msg}
}

func BadSignature(entity, msg string) *Error {
	return &Error{Kind: KindSignatureInvalid, Entity: entity, Msg: msg}
}

// KindOf extracts the Kind from err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
