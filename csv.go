package csvpave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Parser reads delimited text into rows. It is immutable after
// construction and safe for concurrent use.
type Parser struct {
	opts      ParseOpts
	tokenizer *Tokenizer
	logger    *zap.Logger
}

// NewParser resolves opts against the global dialect registry.
func NewParser(opts ParseOpts) (*Parser, error) {
	return NewParserWithRegistry(opts, _gDialectRegistry)
}

// NewParserWithRegistry resolves opts against reg. A nil reg disables
// dialect lookup, in which case opts.Dialect is ignored.
func NewParserWithRegistry(opts ParseOpts, reg *DialectRegistry) (*Parser, error) {
	resolved, err := opts.resolve(reg)
	if err != nil {
		return nil, err
	}
	return &Parser{
		opts:      resolved,
		tokenizer: newTokenizer(resolved),
		logger:    resolved.Logger,
	}, nil
}

// Opts returns the resolved options of p.
func (p *Parser) Opts() ParseOpts {
	return p.opts
}

// Parse tokenizes src. The first row is removed only under HeaderConsume.
func (p *Parser) Parse(src string) ([]Row, error) {
	start := time.Now()

	rows, _, err := p.tokenizer.tokenize(src)
	if err != nil {
		return nil, err
	}
	if p.opts.Header.consumes(false) {
		rows = dropHeader(rows)
	}

	p.logParsed(len(rows), start)
	return rows, nil
}

// ParseReader reads all of r, decodes it with the configured encoding and
// parses it.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) ([]Row, error) {
	src, err := p.read(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.Parse(src)
}

// ParseFile reads the file at path, decodes it with the configured encoding
// and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]Row, error) {
	src, err := p.open(ctx, path)
	if err != nil {
		return nil, err
	}
	rows, err := p.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func (p *Parser) read(ctx context.Context, r io.Reader) (string, error) {
	src, err := ReadSource(ctx, r, p.opts.Encoding)
	if err != nil {
		return "", err
	}
	p.logRead("", len(src))
	return src, nil
}

func (p *Parser) open(ctx context.Context, path string) (string, error) {
	src, err := OpenSource(ctx, path, p.opts.Encoding)
	if err != nil {
		return "", err
	}
	p.logRead(path, len(src))
	return src, nil
}

func (p *Parser) logRead(path string, size int) {
	p.logger.Debug("source read",
		zap.String("path", path),
		zap.Int("bytes", size),
		zap.String("encoding", p.encodingName()),
	)
}

func (p *Parser) logParsed(rows int, start time.Time) {
	p.logger.Debug("parse finished",
		zap.Int("rows", rows),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (p *Parser) encodingName() string {
	if p.opts.Encoding == "" {
		return "utf-8"
	}
	return p.opts.Encoding
}

///////////////////////////////////////////////////////////////////////////////
// Validated parsing
///////////////////////////////////////////////////////////////////////////////

// ParseAs tokenizes src with p and projects every row through v.
//
// Under HeaderAuto and HeaderConsume the first row is the header: it is
// excluded from the result and handed to v if v implements HeaderBinder.
// The first rejected row fails the whole parse with a *RowError.
func ParseAs[T any](p *Parser, src string, v RowValidator[T]) ([]T, error) {
	if p == nil {
		return nil, ErrNilParser
	}
	if v == nil {
		return nil, ErrNilValidator
	}

	start := time.Now()

	rows, lines, err := p.tokenizer.tokenize(src)
	if err != nil {
		return nil, err
	}
	values, err := project(rows, lines, v, p.opts.Header.consumes(true))
	if err != nil {
		return nil, err
	}

	p.logParsed(len(values), start)
	return values, nil
}

// ParseReaderAs is ParseAs over the decoded contents of r.
func ParseReaderAs[T any](ctx context.Context, p *Parser, r io.Reader, v RowValidator[T]) ([]T, error) {
	if p == nil {
		return nil, ErrNilParser
	}
	src, err := p.read(ctx, r)
	if err != nil {
		return nil, err
	}
	return ParseAs(p, src, v)
}

// ParseFileAs is ParseAs over the decoded contents of the file at path.
func ParseFileAs[T any](ctx context.Context, p *Parser, path string, v RowValidator[T]) ([]T, error) {
	if p == nil {
		return nil, ErrNilParser
	}
	src, err := p.open(ctx, path)
	if err != nil {
		return nil, err
	}
	values, err := ParseAs(p, src, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

///////////////////////////////////////////////////////////////////////////////
// Multiple files
///////////////////////////////////////////////////////////////////////////////

// ParseFiles parses every path concurrently, at most MaxConcurrency at a
// time. Results are in the order of paths. The first failure cancels the
// remaining reads and is returned alone.
func ParseFiles(ctx context.Context, p *Parser, paths []string) ([][]Row, error) {
	if p == nil {
		return nil, ErrNilParser
	}
	return parseEach(ctx, p, paths, p.ParseFile)
}

// ParseFilesAs is ParseFiles with every file projected through v. Each file
// is a separate parse, so v binds its own header and state per file.
func ParseFilesAs[T any](ctx context.Context, p *Parser, paths []string, v RowValidator[T]) ([][]T, error) {
	if p == nil {
		return nil, ErrNilParser
	}
	if v == nil {
		return nil, ErrNilValidator
	}
	return parseEach(ctx, p, paths, func(ctx context.Context, path string) ([]T, error) {
		return ParseFileAs(ctx, p, path, v)
	})
}

func parseEach[T any](ctx context.Context, p *Parser, paths []string, parse func(context.Context, string) ([]T, error)) ([][]T, error) {
	results := make([][]T, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if p.opts.MaxConcurrency > 0 {
		g.SetLimit(p.opts.MaxConcurrency)
	}

	for i, path := range paths {
		g.Go(func() error {
			values, err := parse(gctx, path)
			if err != nil {
				return err
			}
			results[i] = values
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

///////////////////////////////////////////////////////////////////////////////
// Default Parser and Package Functions
///////////////////////////////////////////////////////////////////////////////

var _gDefaultParser = mustDefaultParser()

func mustDefaultParser() *Parser {
	p, err := NewParser(DefaultParseOpts())
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize default Parser: %v", err))
	}
	return p
}

// Package-level functions that use the default comma Parser

func Parse(src string) ([]Row, error) {
	return _gDefaultParser.Parse(src)
}

func ParseFile(ctx context.Context, path string) ([]Row, error) {
	return _gDefaultParser.ParseFile(ctx, path)
}

func ParseWith[T any](src string, v RowValidator[T]) ([]T, error) {
	return ParseAs(_gDefaultParser, src, v)
}

func ParseFileWith[T any](ctx context.Context, path string, v RowValidator[T]) ([]T, error) {
	return ParseFileAs(ctx, _gDefaultParser, path, v)
}

// IsMalformedQuoting reports whether err is a tokenizer failure.
func IsMalformedQuoting(err error) bool {
	return errors.Is(err, ErrMalformedQuoting)
}

// IsSchemaValidation reports whether err is a rejected row.
func IsSchemaValidation(err error) bool {
	return errors.Is(err, ErrSchemaValidation)
}

// IsSourceUnavailable reports whether err is a failure to acquire input.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
