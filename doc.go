// Package csvpave (CSV Parse And Validate Everything) reads delimited text
// into rows and, optionally, validates and transforms every row against a
// caller-supplied schema.
//
// Parsing happens in two stages:
//   - The Tokenizer turns text into rows of string fields. It handles quoted
//     fields, embedded delimiters, embedded record separators and doubled
//     quotes, and knows nothing about schemas.
//   - The projector hands each row to a RowValidator, which either turns it
//     into a value or rejects it. A single rejected row fails the whole
//     parse; no partial results are ever returned.
//
// To use the package, you may use the exported functions:
//   - Parse(), ParseFile(): tokenize with the default comma dialect
//   - ParseWith(), ParseFileWith(): tokenize and project through a validator
//   - RegisterDialect(): register a named preset of ParseOpts
//
// Or you may build a Parser with NewParser() and use its methods together
// with ParseAs(), ParseReaderAs(), ParseFileAs() and ParseFiles().
//
// The built-in StructValidator binds cells onto struct fields declared with
// `csv` tags:
//
//	type Person struct {
//		ID     uuid.UUID `csv:"col:'id'"`
//		Name   string    `csv:"col:'name'"`
//		Age    int       `csv:"col:'age,omitempty' idx:'2,omitempty' default:'0'"`
//		City   string    `csv:"col:'meta' path:'address.city'"`
//		Joined time.Time `csv:"col:'joined' time:'2006-01-02'"`
//	}
//
// Bindings on a field are tried in order:
//   - `col:'<name>'` reads the cell under a header column. It needs the
//     header row to be consumed, which is the default for validated parses.
//   - `idx:'<n>'` reads the n-th cell, counting from zero.
//   - `omitempty`: if the cell is missing or empty, fall through to the next
//     binding, then to `default`. Without it a missing cell fails the row.
//
// If *T implements Validatable, Validate() is called after every field has
// been populated, and its error rejects the row.
//
// Errors fall into three classes, told apart with errors.Is:
//   - ErrMalformedQuoting: a *ParseError from the tokenizer
//   - ErrSchemaValidation: a *RowError from a rejected row
//   - ErrSourceUnavailable: a *SourceError from reading the input
package csvpave
