package csvpave

import (
	"errors"
	"fmt"
)

///////////////////////////////////////////////////////////////////////////////
// Error classes
///////////////////////////////////////////////////////////////////////////////

// Every error returned while reading or parsing input belongs to exactly one
// of these classes. Option errors from NewParser and DialectRegistry do not.
// Use errors.Is to tell them apart.
var (
	// ErrMalformedQuoting is the class of tokenizer errors.
	ErrMalformedQuoting = errors.New("malformed quoting")
	// ErrSchemaValidation is the class of errors raised by a RowValidator.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrSourceUnavailable is the class of errors raised while acquiring text.
	ErrSourceUnavailable = errors.New("source unavailable")
)

var (
	ErrUnterminatedQuote = fmt.Errorf("%w: unterminated quoted field", ErrMalformedQuoting)
	ErrTextAfterQuote    = fmt.Errorf("%w: extraneous text after closing quote", ErrMalformedQuoting)
)

var (
	ErrInvalidDelimiter         = errors.New("invalid delimiter")
	ErrInvalidQuote             = errors.New("invalid quote character")
	ErrInvalidHeaderPolicy      = errors.New("invalid header policy")
	ErrUnknownEncoding          = errors.New("unknown character encoding")
	ErrUnknownDialect           = errors.New("unknown dialect")
	ErrDialectAlreadyRegistered = errors.New("a dialect with this name is already registered")
	ErrNilValidator             = errors.New("row validator cannot be nil")
	ErrNilParser                = errors.New("parser cannot be nil")
)

///////////////////////////////////////////////////////////////////////////////
// ParseError
///////////////////////////////////////////////////////////////////////////////

// ParseError reports malformed quoting with the position it was detected at.
type ParseError struct {
	StartLine int   // Line where the offending record started (1-indexed)
	Line      int   // Line where the error was detected (1-indexed)
	Column    int   // Column in runes where the error was detected (1-indexed)
	Err       error // ErrUnterminatedQuote or ErrTextAfterQuote
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.StartLine == e.Line {
		return fmt.Sprintf("parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error on line %d (record started line %d), column %d: %v",
		e.Line, e.StartLine, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

///////////////////////////////////////////////////////////////////////////////
// RowError
///////////////////////////////////////////////////////////////////////////////

// RowError is returned when a RowValidator rejects a row. It aborts the
// whole parse.
type RowError struct {
	Row  int   // Index of the rejected row among all parsed rows, header included
	Line int   // Line the rejected record started on (1-indexed)
	Err  error // Cause returned by the validator
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%v: row %d (line %d): %v", ErrSchemaValidation, e.Row, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Is reports RowError as a member of ErrSchemaValidation.
func (e *RowError) Is(target error) bool {
	return target == ErrSchemaValidation
}

///////////////////////////////////////////////////////////////////////////////
// SourceError
///////////////////////////////////////////////////////////////////////////////

// SourceError wraps failures from opening, reading or decoding the input.
type SourceError struct {
	Path string // File path, empty for readers
	Err  error
}

func (e *SourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrSourceUnavailable, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrSourceUnavailable, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
