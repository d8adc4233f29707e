package csvpave

import (
	"fmt"
	"reflect"
)

// StructValidator is a RowValidator that binds cells onto the fields of T
// as directed by their `csv` struct tags. See tag.go for the grammar.
//
// After every field is populated, *T is validated with Validate() when it
// implements Validatable.
//
// A StructValidator is immutable and safe for concurrent use. Its per-parse
// column layout lives in the validator returned by BindHeader.
type StructValidator[T any] struct {
	chain   *ParseChain
	columns *columnIndex
}

// NewStructValidator builds, or fetches from the cache, the parse chain of
// T. T must be a struct type with at least one bound field.
func NewStructValidator[T any]() (*StructValidator[T], error) {
	typ := reflect.TypeFor[T]()
	chain, err := _gChainManager.GetParseChain(typ)
	if err != nil {
		return nil, err
	}
	if chain.Head == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilParseChain, typ)
	}
	return &StructValidator[T]{chain: chain}, nil
}

// MustStructValidator is like NewStructValidator but panics on error. It is
// meant for package-level variables.
func MustStructValidator[T any]() *StructValidator[T] {
	sv, err := NewStructValidator[T]()
	if err != nil {
		panic(fmt.Sprintf("csvpave: struct validator for %s: %v", reflect.TypeFor[T](), err))
	}
	return sv
}

// BindHeader resolves the column layout of one parse. Every `col` binding
// that is not omitempty must name a column of header.
func (sv *StructValidator[T]) BindHeader(header []string) (RowValidator[T], error) {
	if header == nil {
		if sv.chain.NeedsHeader {
			return nil, fmt.Errorf("%w: %s", ErrHeaderRequired, sv.chain.StructType)
		}
		return sv, nil
	}

	columns := newColumnIndex(header)
	if err := sv.chain.checkColumns(columns); err != nil {
		return nil, err
	}
	return &StructValidator[T]{chain: sv.chain, columns: columns}, nil
}

// ValidateRow populates a new T from fields.
func (sv *StructValidator[T]) ValidateRow(fields []string) (T, error) {
	var dest T

	src := &rowSource{fields: fields, columns: sv.columns}
	if err := sv.chain.Execute(src, reflect.ValueOf(&dest).Elem()); err != nil {
		var zero T
		return zero, err
	}

	if v, ok := any(&dest).(Validatable); ok {
		if err := v.Validate(); err != nil {
			var zero T
			return zero, fmt.Errorf("validation failed for %s: %w", sv.chain.StructType, err)
		}
	}
	return dest, nil
}
