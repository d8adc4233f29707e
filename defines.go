package csvpave

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// constants for the default dialect
const (
	DefaultDelimiter = ','
	DefaultQuote     = '"'
	DefaultDialect   = "csv"
)

// constants for the `csv` struct tag and its subtags
const (
	CsvTagKey                   = "csv"
	CsvTagSkip                  = "-"
	CsvTagInline                = "inline"
	DefaultValueSubTagPrefix    = "default"
	PathSubTagPrefix            = "path"
	TimeLayoutSubTagPrefix      = "time"
	DefaultKeyValueTagDelimiter = byte(':')
	DefaultSubTagScopeDelimiter = byte('\'')
)

// constants for builtin column bindings
const (
	ColumnTagBinding = "col"
	IndexTagBinding  = "idx"
)

// constants for builtin binding modifiers
const (
	OmitEmptyBindingModifier = "omitempty"
)

// Dialect names seeded into the global registry.
const (
	CommaDialect     = "csv"
	TabDialect       = "tsv"
	SemicolonDialect = "ssv"
	PipeDialect      = "psv"
)

// utf8BOM is dropped from the very start of in-memory sources.
const utf8BOM = '\uFEFF'

// reflect.TypeOf constants for type checks
var (
	UUIDType     = reflect.TypeOf(uuid.UUID{})
	TimeType     = reflect.TypeOf(time.Time{})
	DurationType = reflect.TypeOf(time.Duration(0))
)
