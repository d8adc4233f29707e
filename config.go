package csvpave

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid parser config")

// FileConfig is the YAML form of ParseOpts. String values may reference
// environment variables as $NAME or ${NAME}.
//
// Example:
//
//	dialect: tsv
//	delimiter: ";"
//	quote: "'"
//	lazy_quotes: true
//	header: consume
//	encoding: windows-1250
//	max_concurrency: 4
type FileConfig struct {
	Dialect        string `yaml:"dialect"`
	Delimiter      string `yaml:"delimiter"`
	Quote          string `yaml:"quote"`
	LazyQuotes     bool   `yaml:"lazy_quotes"`
	Header         string `yaml:"header"`
	Encoding       string `yaml:"encoding"`
	MaxConcurrency int    `yaml:"max_concurrency"`
}

// LoadParseOpts reads a YAML config file into ParseOpts. The result has not
// been resolved against a dialect; NewParser does that.
func LoadParseOpts(path string) (ParseOpts, error) {
	file, err := os.Open(path)
	if err != nil {
		return ParseOpts{}, &SourceError{Path: path, Err: err}
	}
	defer file.Close()

	opts, err := DecodeParseOpts(file)
	if err != nil {
		return ParseOpts{}, fmt.Errorf("config %s: %w", path, err)
	}
	return opts, nil
}

// DecodeParseOpts reads one YAML document from r. Unknown keys are
// rejected. An empty document yields the zero ParseOpts.
func DecodeParseOpts(r io.Reader) (ParseOpts, error) {
	var cfg FileConfig

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return ParseOpts{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg.ParseOpts()
}

// ParseOpts converts the file form into ParseOpts.
func (cfg FileConfig) ParseOpts() (ParseOpts, error) {
	delimiter, err := singleRune(os.ExpandEnv(cfg.Delimiter))
	if err != nil {
		return ParseOpts{}, fmt.Errorf("%w: delimiter: %w", ErrInvalidConfig, err)
	}
	quote, err := singleRune(os.ExpandEnv(cfg.Quote))
	if err != nil {
		return ParseOpts{}, fmt.Errorf("%w: quote: %w", ErrInvalidConfig, err)
	}
	header, err := ParseHeaderPolicy(os.ExpandEnv(cfg.Header))
	if err != nil {
		return ParseOpts{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.MaxConcurrency < 0 {
		return ParseOpts{}, fmt.Errorf("%w: max_concurrency must not be negative, got %d",
			ErrInvalidConfig, cfg.MaxConcurrency)
	}

	return ParseOpts{
		Dialect:        os.ExpandEnv(cfg.Dialect),
		Delimiter:      delimiter,
		Quote:          quote,
		LazyQuotes:     cfg.LazyQuotes,
		Header:         header,
		Encoding:       os.ExpandEnv(cfg.Encoding),
		MaxConcurrency: cfg.MaxConcurrency,
	}, nil
}

// singleRune returns the only rune of s, or 0 for an empty string. YAML
// users write a tab delimiter as "\t", which yaml already unescapes.
func singleRune(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, s)
	}
	return r, nil
}
