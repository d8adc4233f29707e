package csvpave

import (
	"strings"
	"unicode/utf8"
)

// Row is one record: its fields in source order. Rows of one document may
// have different lengths.
type Row = []string

// tokenizerState is the position of the tokenizer within a field.
type tokenizerState int

const (
	// At the start of a field, either at the start of a record or right
	// after a delimiter.
	fieldStart = tokenizerState(iota)

	// Inside a field that did not start with a quote.
	inUnquotedField

	// Inside a quoted field, special characters lose their meaning.
	inQuotedField

	// Inside a quoted field, just read a quote. It is either the closing
	// quote or the first half of an escaped quote.
	quoteInQuotedField
)

// Tokenizer turns text into rows. It holds configuration only, so a single
// Tokenizer may be used by many goroutines at once.
type Tokenizer struct {
	delimiter  rune
	quote      rune
	lazyQuotes bool
}

// TokenizerOpts configures a Tokenizer. Zero fields select the defaults.
type TokenizerOpts struct {
	Delimiter  rune
	Quote      rune
	LazyQuotes bool
}

// NewTokenizer returns a tokenizer for the given options.
func NewTokenizer(opts TokenizerOpts) (*Tokenizer, error) {
	popts, err := ParseOpts{
		Delimiter:  opts.Delimiter,
		Quote:      opts.Quote,
		LazyQuotes: opts.LazyQuotes,
	}.resolve(nil)
	if err != nil {
		return nil, err
	}
	return newTokenizer(popts), nil
}

func newTokenizer(opts ParseOpts) *Tokenizer {
	return &Tokenizer{
		delimiter:  opts.Delimiter,
		quote:      opts.Quote,
		lazyQuotes: opts.LazyQuotes,
	}
}

// Tokenize splits src into rows. Record separators are "\n", "\r\n" and a
// bare "\r"; inside quoted fields they are kept literally. A trailing record
// separator does not produce an empty final row, and empty text yields no
// rows. A byte order mark at the start of src is dropped.
//
// The only failure is malformed quoting, reported as a *ParseError.
func (t *Tokenizer) Tokenize(src string) ([]Row, error) {
	rows, _, err := t.tokenize(src)
	return rows, err
}

// tokenize also returns the line each row started on.
func (t *Tokenizer) tokenize(src string) ([]Row, []int, error) {
	var (
		rows  []Row
		lines []int
		row   Row
		field strings.Builder
		state = fieldStart

		line      = 1
		column    = 0
		rowLine   = 1
		rowActive = false
	)

	src = strings.TrimPrefix(src, string(utf8BOM))

	emitField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	emitRow := func() {
		rows = append(rows, row)
		lines = append(lines, rowLine)
		row = nil
		rowActive = false
	}

	for i := 0; i < len(src); {
		start := i
		r, size := utf8.DecodeRuneInString(src[i:])
		i += size
		column++

		if !rowActive {
			rowActive = true
			rowLine = line
		}

		// A record separator is "\n", "\r\n" or "\r". The two byte form is
		// consumed as one, so raw covers both bytes.
		separator := false
		if r == '\r' || r == '\n' {
			separator = true
			if r == '\r' && i < len(src) && src[i] == '\n' {
				i++
			}
		}

		// Fields keep the source bytes, invalid UTF-8 included.
		raw := src[start:i]

		switch state {
		case fieldStart:
			switch {
			case r == t.quote:
				state = inQuotedField
			case r == t.delimiter:
				emitField()
			case separator:
				emitField()
				emitRow()
			default:
				field.WriteString(raw)
				state = inUnquotedField
			}

		case inUnquotedField:
			switch {
			case r == t.delimiter:
				emitField()
				state = fieldStart
			case separator:
				emitField()
				emitRow()
				state = fieldStart
			default:
				field.WriteString(raw)
			}

		case inQuotedField:
			if r == t.quote {
				state = quoteInQuotedField
			} else {
				field.WriteString(raw)
			}

		case quoteInQuotedField:
			switch {
			case r == t.quote:
				field.WriteRune(t.quote)
				state = inQuotedField
			case r == t.delimiter:
				emitField()
				state = fieldStart
			case separator:
				emitField()
				emitRow()
				state = fieldStart
			case t.lazyQuotes:
				field.WriteRune(t.quote)
				field.WriteString(raw)
				state = inUnquotedField
			default:
				return nil, nil, &ParseError{
					StartLine: rowLine,
					Line:      line,
					Column:    column,
					Err:       ErrTextAfterQuote,
				}
			}
		}

		if separator {
			line++
			column = 0
		}
	}

	switch state {
	case inQuotedField:
		return nil, nil, &ParseError{
			StartLine: rowLine,
			Line:      line,
			Column:    column,
			Err:       ErrUnterminatedQuote,
		}
	case fieldStart:
		// A row ending in a delimiter still owes its last, empty field.
		if len(row) > 0 {
			emitField()
			emitRow()
		}
	default:
		emitField()
		emitRow()
	}

	return rows, lines, nil
}
