package csvpave

import (
	"errors"
	"fmt"
)

var (
	ErrColumnCount = errors.New("unexpected number of fields")
)

///////////////////////////////////////////////////////////////////////////////
// Validator Interfaces
///////////////////////////////////////////////////////////////////////////////

// RowValidator checks one raw row and turns it into a T. Returning an error
// rejects the row, which fails the whole parse.
//
// Implementations receive fields as the tokenizer produced them: untrimmed,
// uncoerced strings. Any conversion belongs in the validator.
type RowValidator[T any] interface {
	ValidateRow(fields []string) (T, error)
}

// HeaderBinder is implemented by validators that need per-parse state, such
// as the column layout or rows seen so far.
//
// The projector calls BindHeader once per parse, before the first row, and
// uses the returned validator for every row of that parse only. header is
// nil when no header row was consumed.
type HeaderBinder[T any] interface {
	BindHeader(header []string) (RowValidator[T], error)
}

// Validatable is implemented by binding targets that check themselves once
// all of their fields have been populated from a row.
type Validatable interface {
	// Validate checks the fields of the struct and returns an error
	// if any of the fields are invalid.
	//
	// # It expects the implementation to be a pointer
	Validate() error
}

// bindValidator gives v a chance to bind per-parse state.
func bindValidator[T any](v RowValidator[T], header []string) (RowValidator[T], error) {
	if binder, ok := v.(HeaderBinder[T]); ok {
		return binder.BindHeader(header)
	}
	return v, nil
}

///////////////////////////////////////////////////////////////////////////////
// Adapters and combinators
///////////////////////////////////////////////////////////////////////////////

// RowValidatorFunc adapts a function to RowValidator.
type RowValidatorFunc[T any] func(fields []string) (T, error)

func (f RowValidatorFunc[T]) ValidateRow(fields []string) (T, error) {
	return f(fields)
}

// Raw returns a validator that accepts every row unchanged.
func Raw() RowValidator[Row] {
	return RowValidatorFunc[Row](func(fields []string) (Row, error) {
		return fields, nil
	})
}

// ExpectColumns wraps inner and rejects rows that do not have exactly n
// fields before inner sees them.
func ExpectColumns[T any](inner RowValidator[T], n int) RowValidator[T] {
	return &columnCountValidator[T]{inner: inner, n: n}
}

type columnCountValidator[T any] struct {
	inner RowValidator[T]
	n     int
}

func (c *columnCountValidator[T]) ValidateRow(fields []string) (T, error) {
	if len(fields) != c.n {
		var zero T
		return zero, fmt.Errorf("%w: expected %d, got %d", ErrColumnCount, c.n, len(fields))
	}
	return c.inner.ValidateRow(fields)
}

func (c *columnCountValidator[T]) BindHeader(header []string) (RowValidator[T], error) {
	inner, err := bindValidator(c.inner, header)
	if err != nil {
		return nil, err
	}
	return &columnCountValidator[T]{inner: inner, n: c.n}, nil
}
