package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures surfaced by the record store facade.
type ErrorKind string

// Error kinds understood by every caller of the facade.
const (
	ErrorNotFound          ErrorKind = "not_found"
	ErrorInvalidIdentifier ErrorKind = "invalid_identifier"
	ErrorInvalidInput      ErrorKind = "invalid_input"
	ErrorStoreUnavailable  ErrorKind = "store_unavailable"
)

// ErrDocumentNotFound is returned by DocumentStore implementations when no
// document matches the requested identifier.
var ErrDocumentNotFound = errors.New("document not found")

// Error is the single tagged outcome returned by facade operations.
type Error struct {
	Kind   ErrorKind
	Entity Kind
	ID     string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorNotFound:
		return fmt.Sprintf("%s no encontrado", e.Entity.Display)
	case ErrorInvalidIdentifier:
		return fmt.Sprintf("identificador de %s inválido: %q", e.Entity.Display, e.ID)
	case ErrorInvalidInput:
		if e.Err != nil {
			return fmt.Sprintf("%s inválido: %v", e.Entity.Display, e.Err)
		}
		return fmt.Sprintf("%s inválido", e.Entity.Display)
	default:
		if e.Err != nil {
			return fmt.Sprintf("error de almacenamiento (%s): %v", e.Entity.Collection, e.Err)
		}
		return fmt.Sprintf("error de almacenamiento (%s)", e.Entity.Collection)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that id does not resolve within the kind's collection.
func NotFound(kind Kind, id string) error {
	return &Error{Kind: ErrorNotFound, Entity: kind, ID: id, Err: ErrDocumentNotFound}
}

// InvalidIdentifier reports a malformed identifier string.
func InvalidIdentifier(kind Kind, id string) error {
	return &Error{Kind: ErrorInvalidIdentifier, Entity: kind, ID: id}
}

// InvalidInput reports a record that failed validation or decoding.
func InvalidInput(kind Kind, cause error) error {
	return &Error{Kind: ErrorInvalidInput, Entity: kind, Err: cause}
}

// StoreUnavailable wraps a document-store failure.
func StoreUnavailable(kind Kind, cause error) error {
	return &Error{Kind: ErrorStoreUnavailable, Entity: kind, Err: cause}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool { return KindOf(err) == ErrorNotFound }

// IsInvalidIdentifier reports whether err is an invalid identifier outcome.
func IsInvalidIdentifier(err error) bool { return KindOf(err) == ErrorInvalidIdentifier }

// IsInvalidInput reports whether err is an invalid input outcome.
func IsInvalidInput(err error) bool { return KindOf(err) == ErrorInvalidInput }

// IsStoreUnavailable reports whether err is a store failure.
func IsStoreUnavailable(err error) bool { return KindOf(err) == ErrorStoreUnavailable }
