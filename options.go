package csvpave

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// HeaderPolicy decides what happens to the first parsed row.
type HeaderPolicy int

const (
	// HeaderAuto keeps the first row as data for raw parses, and consumes
	// it as the header when a RowValidator is supplied.
	HeaderAuto HeaderPolicy = iota
	// HeaderKeep always treats the first row as data.
	HeaderKeep
	// HeaderConsume always removes the first row from the output. Validators
	// implementing HeaderBinder receive it.
	HeaderConsume
)

// String returns the string representation of HeaderPolicy.
func (h HeaderPolicy) String() string {
	switch h {
	case HeaderAuto:
		return "auto"
	case HeaderKeep:
		return "keep"
	case HeaderConsume:
		return "consume"
	default:
		return fmt.Sprintf("HeaderPolicy(%d)", h)
	}
}

// ParseHeaderPolicy is the inverse of HeaderPolicy.String. The empty string
// maps to HeaderAuto.
func ParseHeaderPolicy(s string) (HeaderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "keep":
		return HeaderKeep, nil
	case "consume":
		return HeaderConsume, nil
	default:
		return HeaderAuto, fmt.Errorf("%w: %q", ErrInvalidHeaderPolicy, s)
	}
}

// consumes reports whether the first row is removed from the output.
func (h HeaderPolicy) consumes(validated bool) bool {
	switch h {
	case HeaderKeep:
		return false
	case HeaderConsume:
		return true
	default:
		return validated
	}
}

// ParseOpts configures a Parser. The zero value of every field selects the
// default, so ParseOpts{} behaves like DefaultParseOpts().
type ParseOpts struct {
	// Dialect names a preset from the dialect registry. Delimiter and Quote,
	// when set, override the preset.
	Dialect string

	// Delimiter separates fields. Default: ','
	Delimiter rune

	// Quote wraps fields that contain delimiters, quotes or record
	// separators. Default: '"'
	Quote rune

	// LazyQuotes selects the policy for text following a closing quote, as
	// in `"abc"def`. When false the parse fails with ErrTextAfterQuote. When
	// true the quote is kept literally and the field continues unquoted,
	// yielding `abc"def`.
	LazyQuotes bool

	// Header selects what happens to the first row.
	Header HeaderPolicy

	// Encoding names the character encoding of file and reader sources, as
	// understood by the WHATWG encoding index ("utf-8", "windows-1250",
	// "iso-8859-2", "utf-16le", ...). Empty means UTF-8. A byte order mark
	// always takes precedence.
	Encoding string

	// MaxConcurrency bounds ParseFiles. Zero or less means one goroutine per
	// file.
	MaxConcurrency int

	// Logger receives debug events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultParseOpts returns the options of the comma dialect.
func DefaultParseOpts() ParseOpts {
	return ParseOpts{
		Dialect:   DefaultDialect,
		Delimiter: DefaultDelimiter,
		Quote:     DefaultQuote,
		Header:    HeaderAuto,
	}
}

// Validate checks the options after defaults have been applied.
func (o ParseOpts) Validate() error {
	if !validDelimiter(o.Delimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, o.Delimiter)
	}
	if !validDelimiter(o.Quote) {
		return fmt.Errorf("%w: %q", ErrInvalidQuote, o.Quote)
	}
	if o.Delimiter == o.Quote {
		return fmt.Errorf("%w: delimiter and quote are both %q", ErrInvalidQuote, o.Quote)
	}
	if o.Header < HeaderAuto || o.Header > HeaderConsume {
		return fmt.Errorf("%w: %d", ErrInvalidHeaderPolicy, o.Header)
	}
	if _, err := lookupEncoding(o.Encoding); err != nil {
		return err
	}
	return nil
}

// resolve fills zero fields from the named dialect and the defaults.
func (o ParseOpts) resolve(reg *DialectRegistry) (ParseOpts, error) {
	if o.Dialect != "" && reg != nil {
		preset, err := reg.Lookup(o.Dialect)
		if err != nil {
			return ParseOpts{}, err
		}
		if o.Delimiter == 0 {
			o.Delimiter = preset.Delimiter
		}
		if o.Quote == 0 {
			o.Quote = preset.Quote
		}
		if o.Encoding == "" {
			o.Encoding = preset.Encoding
		}
		if o.Header == HeaderAuto {
			o.Header = preset.Header
		}
		o.LazyQuotes = o.LazyQuotes || preset.LazyQuotes
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.Quote == 0 {
		o.Quote = DefaultQuote
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, o.Validate()
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}
