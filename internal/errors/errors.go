// Package errors provides the structured error type used across the
// CodeSearch core. Every error surfaced by the store, the indexer, or
// the search engine is (or wraps) a *Error carrying one of the five
// kinds the engine distinguishes.
package errors

import "fmt"

// Kind classifies an error for propagation and exit-code purposes.
type Kind string

const (
	// NotFound covers missing repositories, symbols, or chunks.
	// Surfaced to the user, non-fatal.
	NotFound Kind = "NotFound"
	// InvalidInput covers an empty query or a bad flag combination.
	// Surfaced to the user, exit code 1.
	InvalidInput Kind = "InvalidInput"
	// Storage covers schema, I/O, and dimension-mismatch failures.
	// Fatal, exit code 2.
	Storage Kind = "Storage"
	// Model covers embedder/reranker failures. Fatal for the current
	// call; the indexer skips the failing embed batch and leaves those
	// files' hashes unchanged.
	Model Kind = "Model"
	// Parse covers a parser rejecting a file. Warn and skip the file.
	Parse Kind = "Parse"
)

// Error is the structured error type for the CodeSearch core.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches target errors of the same Kind, so errors.Is(err, &Error{Kind: NotFound})
// style sentinel comparisons work against a bare &Error{Kind: NotFound}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Cause == nil && len(t.Details) == 0 {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// InvalidInputf builds an InvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return New(InvalidInput, fmt.Sprintf(format, args...))
}

// StorageError wraps a storage failure.
func StorageError(message string, cause error) *Error {
	return Wrap(Storage, message, cause)
}

// ModelError wraps an embedder/reranker failure.
func ModelError(message string, cause error) *Error {
	return Wrap(Model, message, cause)
}

// ParseError wraps a parser failure.
func ParseError(message string, cause error) *Error {
	return Wrap(Parse, message, cause)
}

// ExitCode maps a Kind to the process exit code spec.md §6 requires.
func ExitCode(err error) int {
	var e *Error
	if !As(err, &e) {
		if err == nil {
			return 0
		}
		return 2
	}
	switch e.Kind {
	case InvalidInput, NotFound:
		return 1
	case Storage, Model:
		return 2
	default:
		return 1
	}
}

// As is a thin wrapper so callers don't need a separate stdlib errors
// import solely to type-assert into *Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf returns the Kind of err, or "" if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return ""
}
