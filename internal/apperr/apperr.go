// Package apperr defines the error kinds shared by every layer of the service.
//
// Each layer wraps failures in an *Error carrying a Kind, so callers at the
// edge (HTTP handlers, CLI) can classify an error with errors.Is against the
// kind sentinels or with KindOf.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindDecode     Kind = "decode_error"
	KindOCR        Kind = "ocr_error"
	KindExtraction Kind = "extraction_error"
	KindValidation Kind = "validation_error"
	KindFormat     Kind = "format_error"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage_error"
	KindInternal   Kind = "internal_error"
)

// Sentinels, one per kind. An *Error matches the sentinel of its kind.
var (
	ErrDecode     = errors.New("image could not be decoded")
	ErrOCR        = errors.New("text recognition failed")
	ErrExtraction = errors.New("could not detect blood pressure and pulse")
	ErrValidation = errors.New("values out of expected range")
	ErrFormat     = errors.New("invalid input format")
	ErrNotFound   = errors.New("no data")
	ErrStorage    = errors.New("storage failure")
)

var sentinels = map[Kind]error{
	KindDecode:     ErrDecode,
	KindOCR:        ErrOCR,
	KindExtraction: ErrExtraction,
	KindValidation: ErrValidation,
	KindFormat:     ErrFormat,
	KindNotFound:   ErrNotFound,
	KindStorage:    ErrStorage,
}

// Error wraps errors with the kind and the operation that failed.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Op is the operation that failed (e.g., "IngestImage", "ListRange").
	Op string

	// Err is the underlying error. May be nil.
	Err error

	// Details is a user-facing description of the failure.
	Details string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil && e.Err.Error() != msg {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Message returns the user-facing part of the error.
func (e *Error) Message() string {
	if e.Details != "" {
		return e.Details
	}
	if s, ok := sentinels[e.Kind]; ok {
		return s.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New creates an *Error.
func New(kind Kind, op string, err error, details string) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Details: details}
}

// Wrap wraps err as an *Error of the given kind unless it already is one.
func Wrap(kind Kind, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	return New(kind, op, err, details)
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns a message safe to show to a client.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindStorage, KindOCR, KindInternal:
			return sentinelMessage(appErr.Kind)
		}
		return appErr.Message()
	}
	return "internal server error"
}

func sentinelMessage(kind Kind) string {
	if s, ok := sentinels[kind]; ok {
		return s.Error()
	}
	return "internal server error"
}
