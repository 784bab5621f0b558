// Package idxerr defines the error taxonomy used across the catalog index.
//
// Kinds are sentinels, not concrete types: wrap one of them with fmt.Errorf's
// %w verb so callers can still errors.Is/errors.As their way to the kind
// while keeping a specific message.
package idxerr

import (
	"errors"
	"fmt"
)

// Kind identifies why an operation failed, independent of the message.
type Kind error

var (
	// BadRequest means the caller supplied malformed input, e.g. an
	// expected resource level that cannot match a distinct outcome.
	BadRequest Kind = errors.New("bad request")

	// InternalError means an invariant the index relies on was violated,
	// e.g. an Instance with no Dicom attachment, or a non-Patient
	// resource with no parent.
	InternalError Kind = errors.New("internal error")

	// BadSequenceOfCalls means a stateful object was used out of protocol,
	// e.g. committing a transaction twice.
	BadSequenceOfCalls Kind = errors.New("bad sequence of calls")

	// Storage means the embedded engine itself failed (I/O, corruption).
	Storage Kind = errors.New("storage error")
)

// Wrap attaches a kind to err so errors.Is(result, kind) succeeds while
// preserving err's own message via %w.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Newf builds a new error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return Wrap(kind, fmt.Errorf(format, args...))
}

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool { return target == e.kind }
