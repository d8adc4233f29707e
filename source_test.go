package csvpave

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestReadSource(t *testing.T) {
	ctx := context.Background()

	t.Run("UTF8", func(t *testing.T) {
		src, err := ReadSource(ctx, strings.NewReader("a,b\nc,d"), "")
		require.NoError(t, err)
		assert.Equal(t, "a,b\nc,d", src)
	})

	t.Run("UTF8BOMStripped", func(t *testing.T) {
		src, err := ReadSource(ctx, strings.NewReader("\xEF\xBB\xBFa,b"), "utf-8")
		require.NoError(t, err)
		assert.Equal(t, "a,b", src)
	})

	t.Run("Windows1250", func(t *testing.T) {
		encoded, err := charmap.Windows1250.NewEncoder().String("Łódź,żółw")
		require.NoError(t, err)
		require.NotEqual(t, "Łódź,żółw", encoded)

		src, err := ReadSource(ctx, strings.NewReader(encoded), "windows-1250")
		require.NoError(t, err)
		assert.Equal(t, "Łódź,żółw", src)
	})

	t.Run("UTF16BOMOverridesName", func(t *testing.T) {
		encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("x,y")
		require.NoError(t, err)

		src, err := ReadSource(ctx, strings.NewReader(encoded), "")
		require.NoError(t, err)
		assert.Equal(t, "x,y", src)
	})

	t.Run("UnknownEncoding", func(t *testing.T) {
		_, err := ReadSource(ctx, strings.NewReader("a"), "ebcdic-klingon")
		assert.ErrorIs(t, err, ErrUnknownEncoding)
		assert.True(t, IsSourceUnavailable(err))
	})

	t.Run("ReadFailure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ReadSource(ctx, iotest.ErrReader(boom), "")
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
		assert.True(t, IsSourceUnavailable(err))
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := ReadSource(cctx, strings.NewReader("a"), "")
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(dir, "data.csv")
		require.NoError(t, os.WriteFile(path, []byte("h\n1\n"), 0o600))

		src, err := OpenSource(ctx, path, "")
		require.NoError(t, err)
		assert.Equal(t, "h\n1\n", src)
	})

	t.Run("UnknownEncoding", func(t *testing.T) {
		path := filepath.Join(dir, "latin.csv")
		require.NoError(t, os.WriteFile(path, []byte("h\n"), 0o600))

		_, err := OpenSource(ctx, path, "ebcdic-klingon")
		assert.ErrorIs(t, err, ErrUnknownEncoding)
		assert.ErrorIs(t, err, ErrSourceUnavailable)

		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, path, srcErr.Path)
	})

	t.Run("Missing", func(t *testing.T) {
		path := filepath.Join(dir, "missing.csv")
		_, err := OpenSource(ctx, path, "")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.ErrorIs(t, err, ErrSourceUnavailable)

		var srcErr *SourceError
		require.True(t, errors.As(err, &srcErr))
		assert.Equal(t, path, srcErr.Path)
	})
}
