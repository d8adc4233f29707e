package csvpave

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedFieldType = errors.New("unsupported field type")
	ErrEmptyValue           = errors.New("cannot set empty value")
)

// timeLayouts are tried in order when a time.Time field has no explicit
// layout.
var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

///////////////////////////////////////////////////////////////////////////////
// Helpers
///////////////////////////////////////////////////////////////////////////////

// assignCell converts a cell into field's type and stores it.
//
// Currently supports:
//   - string
//   - int and uint kinds (with overflow checking)
//   - float and complex kinds (with overflow checking)
//   - bool ("true", "1", "yes", "on" and their negations, any case)
//   - []byte (raw bytes of the cell)
//   - uuid.UUID
//   - time.Time (layout, or the RFC3339 family when layout is empty)
//   - time.Duration
//   - encoding.TextUnmarshaler
//   - pointers to any of the above, allocated on demand
//   - empty interfaces, which receive the cell as a string
//
// Only string, []byte, pointer and interface fields accept an empty cell.
func assignCell(field reflect.Value, value string, layout string) error {
	if field.Kind() == reflect.Ptr {
		if value == "" {
			field.SetZero()
			return nil
		}
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assignCell(field.Elem(), value, layout)
	}

	if value == "" {
		return assignEmpty(field)
	}

	switch field.Type() {
	case UUIDType:
		return assignUUID(field, value)
	case TimeType:
		return assignTime(field, value, layout)
	case DurationType:
		return assignDuration(field, value)
	}

	if field.CanAddr() {
		if unmarshaler, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return unmarshaler.UnmarshalText([]byte(value))
		}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(field, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return assignUint(field, value)
	case reflect.Float32, reflect.Float64:
		return assignFloat(field, value)
	case reflect.Complex64, reflect.Complex128:
		return assignComplex(field, value)
	case reflect.Bool:
		return assignBool(field, value)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			field.SetBytes([]byte(value))
			return nil
		}
	case reflect.Interface:
		if field.NumMethod() == 0 {
			field.Set(reflect.ValueOf(value))
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedFieldType, field.Type())
}

// assignEmpty handles empty cells for the kinds that have an empty value.
func assignEmpty(field reflect.Value) error {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Interface:
		field.SetZero()
		return nil
	default:
		return fmt.Errorf("%w for field type %s", ErrEmptyValue, field.Type())
	}
}

func assignInt(field reflect.Value, value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("error converting %q to int: %w", value, err)
	}
	if field.OverflowInt(n) {
		return fmt.Errorf("value %d overflows %s", n, field.Type())
	}
	field.SetInt(n)
	return nil
}

func assignUint(field reflect.Value, value string) error {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("error converting %q to uint: %w", value, err)
	}
	if field.OverflowUint(n) {
		return fmt.Errorf("value %d overflows %s", n, field.Type())
	}
	field.SetUint(n)
	return nil
}

func assignFloat(field reflect.Value, value string) error {
	f, err := strconv.ParseFloat(value, field.Type().Bits())
	if err != nil {
		return fmt.Errorf("error converting %q to float: %w", value, err)
	}
	if field.OverflowFloat(f) {
		return fmt.Errorf("value %f overflows %s", f, field.Type())
	}
	field.SetFloat(f)
	return nil
}

func assignComplex(field reflect.Value, value string) error {
	c, err := strconv.ParseComplex(value, field.Type().Bits())
	if err != nil {
		return fmt.Errorf("error converting %q to complex: %w", value, err)
	}
	if field.OverflowComplex(c) {
		return fmt.Errorf("value %v overflows %s", c, field.Type())
	}
	field.SetComplex(c)
	return nil
}

// assignBool accepts the spellings spreadsheets commonly export.
func assignBool(field reflect.Value, value string) error {
	switch value {
	case "true", "1", "yes", "on", "True", "TRUE", "Yes", "YES", "On", "ON":
		field.SetBool(true)
		return nil
	case "false", "0", "no", "off", "False", "FALSE", "No", "NO", "Off", "OFF":
		field.SetBool(false)
		return nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("error converting %q to bool: %w", value, err)
	}
	field.SetBool(b)
	return nil
}

func assignUUID(field reflect.Value, value string) error {
	id, err := uuid.Parse(value)
	if err != nil {
		return fmt.Errorf("error converting %q to UUID: %w", value, err)
	}
	field.Set(reflect.ValueOf(id))
	return nil
}

func assignTime(field reflect.Value, value string, layout string) error {
	if layout != "" {
		t, err := time.Parse(layout, value)
		if err != nil {
			return fmt.Errorf("error converting %q to time.Time: %w", value, err)
		}
		field.Set(reflect.ValueOf(t))
		return nil
	}

	var err error
	for _, l := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(l, value); err == nil {
			field.Set(reflect.ValueOf(t))
			return nil
		}
	}
	return fmt.Errorf("error converting %q to time.Time: %w", value, err)
}

func assignDuration(field reflect.Value, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("error converting %q to time.Duration: %w", value, err)
	}
	field.SetInt(int64(d))
	return nil
}

// isSpecialStructType reports struct types that bind from a single cell
// instead of being walked field by field.
func isSpecialStructType(t reflect.Type) bool {
	if t == TimeType || t == UUIDType {
		return true
	}
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
