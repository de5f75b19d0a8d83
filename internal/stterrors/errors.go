// Package stterrors defines the typed error taxonomy surfaced across the
// transcription pipeline, so callers can classify failures with this
// package's Is helper instead of matching on message strings.
package stterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the service contract
// promises to the caller.
type Kind string

const (
	UnsupportedFormat Kind = "unsupported_format"
	MalformedHeader   Kind = "malformed_header"
	EmptyAudio        Kind = "empty_audio"
	ModelNotFound     Kind = "model_not_found"
	ModelLoadError    Kind = "model_load_error"
	InferenceError    Kind = "inference_error"
	BufferOverflow    Kind = "buffer_overflow"
	Cancelled         Kind = "cancelled"
)

// Error wraps an inner cause with a classification Kind.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Newf builds a classified error from a printf-style message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// Is reports whether err (or any error it wraps) is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
