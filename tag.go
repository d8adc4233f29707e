package csvpave

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Base Error types for tag parsing errors
var (
	ErrNoCsvTag                 = errors.New("no csv tag found in field")
	ErrInvalidTag               = errors.New("invalid csv tag")
	ErrUnallowedBindingName     = errors.New("binding name is not allowed")
	ErrEmptyBindingIdentifier   = errors.New("binding identifier cannot be empty")
	ErrInvalidBindingIndex      = errors.New("binding index must be a non-negative integer")
	ErrUnallowedBindingModifier = errors.New("binding modifier is not allowed")
	ErrSubTagNotFound           = errors.New("subtag not found")
	ErrUnterminatedSubTag       = errors.New("unterminated subtag value")
)

// This file contains the parser for the `csv` struct tag. It supports the
// following grammar:
//
// tag:
//     csv:"-" | csv:"inline" | csv:"<subtag_list>"
// subtag_list:
//     [<subtag>]^* // Space separated
// subtag:
//     <binding> | default:'<value>' | path:'<gjson path>' | time:'<layout>'
// binding:
//     col:'<header name>[,omitempty]' | idx:'<index>[,omitempty]'
//
// Values are wrapped in single quotes. A value without quotes ends at the
// next space. Inside a quoted value a backslash escapes the next byte and
// `:'` opens a nested value that its own closing quote ends.

// CsvTag is the decoded `csv` tag of one struct field.
type CsvTag struct {
	Skip       bool
	Inline     bool
	Bindings   []BindingTag
	Default    DefaultTag
	Path       string
	TimeLayout string
}

// DefaultTag corresponds to the `default` subtag.
// Example: default:'5'
type DefaultTag struct {
	Value string
	Set   bool
}

// BindingTag corresponds to a `col` or `idx` subtag.
// Example: col:'age,omitempty'
type BindingTag struct {
	Name       string
	Identifier string
	Modifiers  []string
}

// SubTag is one key:value pair of a tag, in declaration order.
type SubTag struct {
	Key   string
	Value string
	Bare  bool // A word without a value, such as `inline`
}

// DecodeCsvTag reads the `csv` tag of field.
func DecodeCsvTag(field reflect.StructField) (CsvTag, error) {
	tag, ok := field.Tag.Lookup(CsvTagKey)
	if !ok {
		return CsvTag{}, fmt.Errorf("%w: %s", ErrNoCsvTag, field.Name)
	}

	csvTag, err := decodeCsvTag(tag)
	if err != nil {
		return CsvTag{}, fmt.Errorf("error parsing csv tag for field %s: %w", field.Name, err)
	}
	return csvTag, nil
}

func decodeCsvTag(tag string) (CsvTag, error) {
	switch strings.TrimSpace(tag) {
	case CsvTagSkip:
		return CsvTag{Skip: true}, nil
	case CsvTagInline:
		return CsvTag{Inline: true}, nil
	}

	subtags, err := SubTags(tag)
	if err != nil {
		return CsvTag{}, err
	}

	var out CsvTag
	for _, st := range subtags {
		if st.Bare {
			return CsvTag{}, fmt.Errorf("%w: unexpected word %q", ErrInvalidTag, st.Key)
		}

		switch st.Key {
		case ColumnTagBinding, IndexTagBinding:
			bindingTag, err := decodeBindingTag(st)
			if err != nil {
				return CsvTag{}, err
			}
			out.Bindings = append(out.Bindings, bindingTag)
		case DefaultValueSubTagPrefix:
			out.Default = DefaultTag{Value: st.Value, Set: true}
		case PathSubTagPrefix:
			if st.Value == "" {
				return CsvTag{}, fmt.Errorf("%w: empty path", ErrInvalidTag)
			}
			out.Path = st.Value
		case TimeLayoutSubTagPrefix:
			out.TimeLayout = st.Value
		default:
			return CsvTag{}, fmt.Errorf("%w: unknown subtag %q", ErrInvalidTag, st.Key)
		}
	}

	return out, nil
}

func decodeBindingTag(st SubTag) (BindingTag, error) {
	// Example: "age,omitempty" -> "age" as identifier, "omitempty" as modifier
	parts := strings.Split(st.Value, ",")

	identifier := strings.TrimSpace(parts[0])
	if identifier == "" {
		return BindingTag{}, fmt.Errorf("%w in subtag %s", ErrEmptyBindingIdentifier, st.Key)
	}

	modifiers := make([]string, 0, len(parts)-1)
	for _, modifier := range parts[1:] {
		modifier = strings.TrimSpace(modifier)
		switch modifier {
		case "":
			continue
		case OmitEmptyBindingModifier:
			modifiers = append(modifiers, modifier)
		default:
			return BindingTag{}, fmt.Errorf("%w: %s", ErrUnallowedBindingModifier, modifier)
		}
	}

	return BindingTag{
		Name:       st.Key,
		Identifier: identifier,
		Modifiers:  modifiers,
	}, nil
}

func (t BindingTag) toBinding() (Binding, error) {
	binding := Binding{
		Name:       t.Name,
		Identifier: t.Identifier,
	}

	switch t.Name {
	case ColumnTagBinding:
	case IndexTagBinding:
		index, err := strconv.Atoi(t.Identifier)
		if err != nil || index < 0 {
			return Binding{}, fmt.Errorf("%w: %q", ErrInvalidBindingIndex, t.Identifier)
		}
		binding.Index = index
	default:
		return Binding{}, fmt.Errorf("%w: %s", ErrUnallowedBindingName, t.Name)
	}

	for _, modifier := range t.Modifiers {
		if modifier == OmitEmptyBindingModifier {
			binding.Modifiers.OmitEmpty = true
		}
	}
	binding.Modifiers.Required = !binding.Modifiers.OmitEmpty

	return binding, nil
}

func makeBindings(tag CsvTag) ([]Binding, error) {
	bindings := make([]Binding, 0, len(tag.Bindings))
	for _, bindingTag := range tag.Bindings {
		binding, err := bindingTag.toBinding()
		if err != nil {
			return nil, fmt.Errorf("error creating binding from subtag %s: %w", bindingTag.Name, err)
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// SubTags splits tag into its subtags, in declaration order, using the
// default single-quote scope delimiter.
func SubTags(tag string) ([]SubTag, error) {
	return SubTagsByDelimiter(tag, DefaultSubTagScopeDelimiter)
}

// SubTagsByDelimiter is SubTags with a custom scope delimiter.
func SubTagsByDelimiter(tag string, delim byte) ([]SubTag, error) {
	var result []SubTag

	i := 0
	for {
		i = skipBlanks(tag, i)
		if i >= len(tag) {
			return result, nil
		}

		// Key runs to the colon, or to the next blank for bare words.
		start := i
		for i < len(tag) && tag[i] != DefaultKeyValueTagDelimiter && !isBlank(tag[i]) {
			i++
		}
		key := tag[start:i]
		if i >= len(tag) || isBlank(tag[i]) {
			result = append(result, SubTag{Key: key, Bare: true})
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("%w: missing key at offset %d", ErrInvalidTag, start)
		}
		i++ // skip key/value delimiter

		value, next, err := scanSubTagValue(tag, i, delim)
		if err != nil {
			return nil, fmt.Errorf("%w for %q", err, key)
		}
		result = append(result, SubTag{Key: key, Value: value})
		i = next
	}
}

// SubTagValue returns the value of the first subtag named key.
//
// Examples:
//
//	SubTagValue(`col:'age,omitempty' default:'0'`, "col") // "age,omitempty"
//	SubTagValue(`a:'b:'c:'d'''`, "a")                     // "b:'c:'d''"
func SubTagValue(tag string, key string) (string, error) {
	subtags, err := SubTags(tag)
	if err != nil {
		return "", err
	}
	for _, st := range subtags {
		if st.Key == key && !st.Bare {
			return st.Value, nil
		}
	}
	return "", ErrSubTagNotFound
}

// scanSubTagValue reads the value starting at tag[i] and returns it with the
// offset just past it.
func scanSubTagValue(tag string, i int, delim byte) (string, int, error) {
	if i >= len(tag) || tag[i] != delim {
		// Simple value, up to the next blank.
		start := i
		for i < len(tag) && !isBlank(tag[i]) {
			i++
		}
		return tag[start:i], i, nil
	}

	i++ // skip opening delimiter

	var builder strings.Builder
	escaped := false
	nesting := 0

	for ; i < len(tag); i++ {
		c := tag[i]

		if escaped {
			builder.WriteByte(c)
			escaped = false
			continue
		}

		switch {
		case c == '\\':
			escaped = true
		case c == DefaultKeyValueTagDelimiter && i+1 < len(tag) && tag[i+1] == delim:
			// `:'` opens a nested value; keep it verbatim.
			nesting++
			builder.WriteByte(c)
			builder.WriteByte(delim)
			i++
		case c == delim && nesting == 0:
			return builder.String(), i + 1, nil
		case c == delim:
			nesting--
			builder.WriteByte(c)
		default:
			builder.WriteByte(c)
		}
	}

	return "", i, ErrUnterminatedSubTag
}

func skipBlanks(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	return i
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
