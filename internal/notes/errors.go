package notes

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. The message text carries a stable
// substring per kind so callers (and the tool surface) can match on it.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidType          Kind = "invalid_type"
	KindSameType             Kind = "same_type"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindProtectedField       Kind = "protected_field"
	KindConfirmationRequired Kind = "confirmation_required"
	KindNotEmpty             Kind = "not_empty"
	KindBulkLimitExceeded    Kind = "bulk_limit_exceeded"
	KindInvalidRegex         Kind = "invalid_regex"
	KindInvalidSQL           Kind = "invalid_sql"
	KindIo                   Kind = "io"
)

// Error is a classified operation failure.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var opErr *Error
	return errors.As(err, &opErr) && opErr.Kind == kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidInput flags a malformed argument.
func ErrInvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

// ErrInvalidType flags a note type that does not exist.
func ErrInvalidType(typeName string) *Error {
	return newError(KindInvalidType, "note type does not exist: %s", typeName)
}

// ErrSameType flags a move into the note's current type.
func ErrSameType(id, typeName string) *Error {
	return newError(KindSameType, "note %s is already in note type %s", id, typeName)
}

// ErrNoteNotFound flags a missing note.
func ErrNoteNotFound(id string) *Error {
	return newError(KindNotFound, "note not found: %s", id)
}

// ErrTypeNotFound flags a missing note type.
func ErrTypeNotFound(typeName string) *Error {
	return newError(KindNotFound, "note type not found: %s", typeName)
}

// ErrAlreadyExists flags a filename collision.
func ErrAlreadyExists(id string) *Error {
	return newError(KindConflict, "note already exists: %s", id)
}

// ErrHashMismatch flags a stale optimistic-concurrency token.
func ErrHashMismatch(id string) *Error {
	return newError(KindConflict,
		"content hash mismatch for %s: the note changed since it was read; fetch it again and retry", id)
}

// ErrProtectedField flags an attempt to set a system-owned metadata key.
func ErrProtectedField(key string) *Error {
	return newError(KindProtectedField,
		"cannot set protected field %q: title and filename are handled automatically, use rename_note to change a note's title", key)
}

// ErrConfirmationRequired flags a destructive call without confirm=true.
func ErrConfirmationRequired(what string) *Error {
	return newError(KindConfirmationRequired,
		"confirmation required to delete %s: pass confirm=true", what)
}

// ErrTypeNotEmpty flags a type deletion with action=error over live notes.
func ErrTypeNotEmpty(typeName string, count int) *Error {
	return newError(KindNotEmpty,
		"note type %s is not empty (%d notes); use action=migrate or action=delete", typeName, count)
}

// ErrBulkLimitExceeded flags a bulk deletion over the configured maximum.
func ErrBulkLimitExceeded(count, max int) *Error {
	return newError(KindBulkLimitExceeded,
		"bulk delete limit exceeded: %d candidates, max_bulk_delete is %d; nothing was deleted", count, max)
}

// ErrInvalidRegex flags a pattern that does not compile.
func ErrInvalidRegex(pattern string, cause error) *Error {
	e := newError(KindInvalidRegex, "invalid regex %q: %v", pattern, cause)
	e.cause = cause
	return e
}

// ErrInvalidSQL flags a rejected search query.
func ErrInvalidSQL(format string, args ...any) *Error {
	return newError(KindInvalidSQL, format, args...)
}

// ErrIo wraps a filesystem or database failure.
func ErrIo(cause error, format string, args ...any) *Error {
	e := newError(KindIo, format+": %v", append(args, cause)...)
	e.cause = cause
	return e
}
