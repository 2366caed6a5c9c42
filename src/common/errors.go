package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind enumerates the error kinds surfaced at the public API
// (spec.md §7). Every engine-level error returned across a package
// boundary wraps one of these so callers can branch on Kind() instead of
// string-matching messages.
type ErrorKind string

const (
	KindParseError         ErrorKind = "ParseError"
	KindSchemaError        ErrorKind = "SchemaError"
	KindConstraintViolation ErrorKind = "ConstraintViolation"
	KindNotFound           ErrorKind = "NotFound"
	KindWriteConflict      ErrorKind = "WriteConflict"
	KindTransactionAborted ErrorKind = "TransactionAborted"
	KindResourceExhausted  ErrorKind = "ResourceExhausted"
	KindCorruption         ErrorKind = "Corruption"
	KindIoError            ErrorKind = "IoError"
	KindUnsupported        ErrorKind = "Unsupported"
)

// SourceSpan anchors an error to the query text it came from, so the
// frontend can underline it. Line/Column are 1-based; zero means unset.
type SourceSpan struct {
	Start, End   int
	Line, Column int
}

// EngineError is the concrete type behind every error of kind ErrorKind.
// It carries an optional source span and hint per spec.md §7's
// "User-visible errors carry: kind, message, optional source span ...,
// optional hint."
type EngineError struct {
	kind  ErrorKind
	msg   string
	span  *SourceSpan
	hint  string
	cause error
}

func NewError(kind ErrorKind, msg string) *EngineError {
	return &EngineError{kind: kind, msg: msg}
}

func Wrap(kind ErrorKind, cause error, msg string) *EngineError {
	return &EngineError{kind: kind, msg: msg, cause: errors.WithStack(cause)}
}

func (e *EngineError) Kind() ErrorKind { return e.kind }

func (e *EngineError) WithSpan(s SourceSpan) *EngineError {
	e.span = &s
	return e
}

func (e *EngineError) WithHint(hint string) *EngineError {
	e.hint = hint
	return e
}

func (e *EngineError) Span() *SourceSpan { return e.span }
func (e *EngineError) Hint() string      { return e.hint }

func (e *EngineError) Error() string {
	if e.span != nil {
		return fmt.Sprintf("%s: %s (line %d, col %d)", e.kind, e.msg, e.span.Line, e.span.Column)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *EngineError) Unwrap() error { return e.cause }

// Is reports whether err is an EngineError of the given kind, unwrapping
// as needed.
func Is(err error, kind ErrorKind) bool {
	var ee *EngineError
	for err != nil {
		if v, ok := err.(*EngineError); ok {
			ee = v
			break
		}
		err = errors.Unwrap(err)
	}
	return ee != nil && ee.kind == kind
}

var (
	ErrNotFound      = NewError(KindNotFound, "entity does not resolve under the current snapshot")
	ErrWriteConflict = NewError(KindWriteConflict, "write-write conflict detected at commit")
	ErrAborted       = NewError(KindTransactionAborted, "transaction was aborted")
)
