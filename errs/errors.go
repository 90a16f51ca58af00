// Package errs defines the typed errors returned by the progression engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

const (
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindAlreadyApproved        Kind = "ALREADY_APPROVED"
	KindUnauthorized           Kind = "UNAUTHORIZED"
	KindInvalidTimezone        Kind = "INVALID_TIMEZONE"
	KindNotFound               Kind = "NOT_FOUND"
	KindInvalidInput           Kind = "INVALID_INPUT"
	KindStorage                Kind = "STORAGE"
)

// Error is an engine error with a machine-readable kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the exported sentinels work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrAlreadyApproved        = &Error{Kind: KindAlreadyApproved}
	ErrUnauthorized           = &Error{Kind: KindUnauthorized}
	ErrInvalidTimezone        = &Error{Kind: KindInvalidTimezone}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
	ErrStorage                = &Error{Kind: KindStorage}
)

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// InvalidStateTransition reports a transition that is illegal from the current status.
func InvalidStateTransition(questID, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidStateTransition,
		Message: fmt.Sprintf("quest %s: cannot move from %s to %s", questID, from, to),
	}
}

// AlreadyApproved reports a second approval of the same quest.
func AlreadyApproved(questID string) *Error {
	return &Error{
		Kind:    KindAlreadyApproved,
		Message: fmt.Sprintf("quest %s already approved", questID),
	}
}

// Unauthorized reports an actor lacking the role or ownership for an action.
func Unauthorized(action string, userID int64) *Error {
	return &Error{
		Kind:    KindUnauthorized,
		Message: fmt.Sprintf("user %d may not %s", userID, action),
	}
}

// InvalidTimezone reports an unparseable IANA identifier.
func InvalidTimezone(name string, err error) *Error {
	return &Error{
		Kind:    KindInvalidTimezone,
		Message: fmt.Sprintf("invalid timezone %q", name),
		Err:     err,
	}
}

// NotFound reports a missing streak, quest, character, family or battle.
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", entity, id),
	}
}

// InvalidInput reports a malformed argument or rules table.
func InvalidInput(field, reason string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

// Storage wraps a data-store failure.
func Storage(op string, err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Message: fmt.Sprintf("storage error during %s", op),
		Err:     err,
	}
}
