package importer

import (
	"errors"
	"fmt"

	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/fatturapa"
	"github.com/denysvitali/fatture/pkg/textdecode"
)

// ErrorKind classifies the outcome of a single source item.
type ErrorKind string

const (
	DecodeError       ErrorKind = "DecodeError"
	EnvelopeError     ErrorKind = "EnvelopeError"
	MalformedDocument ErrorKind = "MalformedDocument"
	DuplicateSkipped  ErrorKind = "DuplicateSkipped"
	StoreError        ErrorKind = "StoreError"
	TransportError    ErrorKind = "TransportError"
	Unknown           ErrorKind = "Unknown"
)

// ImportError describes why one source item did not produce a record.
type ImportError struct {
	Source  string    `json:"source"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ImportError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Message)
}

func newImportError(source string, kind ErrorKind, err error) ImportError {
	return ImportError{Source: source, Kind: kind, Message: err.Error()}
}

// CollectError is returned by collectors when the transport fails. Inside a
// Collection it marks a single item; returned from Collect it aborts the
// whole collection.
type CollectError struct {
	Op  string
	Err error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollectError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a CollectError for op.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollectError{Op: op, Err: err}
}

// KindOf maps an error returned by the pipeline packages to its kind,
// or fallback when err carries no known marker.
func KindOf(err error, fallback ErrorKind) ErrorKind {
	var decodeErr *textdecode.DecodeError
	var collectErr *CollectError
	switch {
	case errors.As(err, &decodeErr):
		return DecodeError
	case errors.Is(err, envelope.ErrUnwrap):
		return EnvelopeError
	case errors.Is(err, fatturapa.ErrMalformed):
		return MalformedDocument
	case errors.As(err, &collectErr):
		return TransportError
	}
	return fallback
}
