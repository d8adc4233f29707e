package csvpave

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// lookupEncoding resolves an encoding name. The empty name is UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// decoderFor returns a transformer to UTF-8 for enc. A leading byte order
// mark overrides enc and is removed.
func decoderFor(enc encoding.Encoding) transform.Transformer {
	return unicode.BOMOverride(enc.NewDecoder())
}

// ReadSource reads all of r and decodes it to UTF-8 text. encodingName is
// looked up like ParseOpts.Encoding. Unknown encodings and read failures
// are returned as a *SourceError.
func ReadSource(ctx context.Context, r io.Reader, encodingName string) (string, error) {
	return readSource(ctx, r, encodingName, "")
}

// OpenSource reads and decodes the file at path.
func OpenSource(ctx context.Context, path string, encodingName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &SourceError{Path: path, Err: err}
	}

	file, err := os.Open(path)
	if err != nil {
		return "", &SourceError{Path: path, Err: err}
	}
	defer file.Close()

	return readSource(ctx, file, encodingName, path)
}

func readSource(ctx context.Context, r io.Reader, encodingName string, path string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", &SourceError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &SourceError{Path: path, Err: err}
	}

	data, err := io.ReadAll(transform.NewReader(r, decoderFor(enc)))
	if err != nil {
		return "", &SourceError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	return string(data), nil
}
