package csvpave

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistry(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{})
		require.NoError(t, err)
		assert.Equal(t, []string{"csv", "psv", "ssv", "tsv"}, reg.Names())

		tsv, err := reg.Lookup("TSV")
		require.NoError(t, err)
		assert.Equal(t, '\t', tsv.Delimiter)
		assert.Equal(t, '"', tsv.Quote)
	})

	t.Run("ExcludeDefaults", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{
			ExcludeDefaults: true,
			Dialects: map[string]ParseOpts{
				"excel-eu": {Delimiter: ';', Encoding: "windows-1252", Header: HeaderConsume},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"excel-eu"}, reg.Names())

		_, err = reg.Lookup("csv")
		assert.ErrorIs(t, err, ErrUnknownDialect)

		eu, err := reg.Lookup("excel-eu")
		require.NoError(t, err)
		assert.Equal(t, ';', eu.Delimiter)
		assert.Equal(t, '"', eu.Quote, "quote defaults when unset")
		assert.Equal(t, HeaderConsume, eu.Header)
	})

	t.Run("RejectsDuplicates", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{})
		require.NoError(t, err)

		err = reg.Register("CSV", ParseOpts{Delimiter: ','})
		assert.ErrorIs(t, err, ErrDialectAlreadyRegistered)

		_, err = NewDialectRegistry(DialectRegistryOpts{
			Dialects: map[string]ParseOpts{"tsv": {Delimiter: '\t'}},
		})
		assert.ErrorIs(t, err, ErrDialectAlreadyRegistered)
	})

	t.Run("RejectsInvalidPresets", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{ExcludeDefaults: true})
		require.NoError(t, err)

		assert.ErrorIs(t, reg.Register("bad", ParseOpts{Delimiter: '\n'}), ErrInvalidDelimiter)
		assert.ErrorIs(t, reg.Register("bad", ParseOpts{Encoding: "klingon"}), ErrUnknownEncoding)
		assert.ErrorIs(t, reg.Register("  ", ParseOpts{}), ErrUnknownDialect)
		assert.Empty(t, reg.Names())
	})

	t.Run("PresetDropsNonDialectFields", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{ExcludeDefaults: true})
		require.NoError(t, err)

		require.NoError(t, reg.Register("x", ParseOpts{Dialect: "csv", MaxConcurrency: 9}))
		x, err := reg.Lookup("x")
		require.NoError(t, err)
		assert.Empty(t, x.Dialect)
		assert.Zero(t, x.MaxConcurrency)
	})

	t.Run("ConcurrentUse", func(t *testing.T) {
		reg, err := NewDialectRegistry(DialectRegistryOpts{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = reg.Register(string(rune('a'+i)), ParseOpts{Delimiter: ':'})
			}()
			go func() {
				defer wg.Done()
				_, err := reg.Lookup("csv")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Len(t, reg.Names(), 4+16)
	})
}

func TestGlobalDialects(t *testing.T) {
	// The global registry outlives a single test run.
	if err := RegisterDialect("test-colon", ParseOpts{Delimiter: ':'}); err != nil {
		require.ErrorIs(t, err, ErrDialectAlreadyRegistered)
	}
	assert.Contains(t, DialectNames(), "test-colon")

	preset, err := LookupDialect("test-colon")
	require.NoError(t, err)
	assert.Equal(t, ':', preset.Delimiter)

	p, err := NewParser(ParseOpts{Dialect: "test-colon"})
	require.NoError(t, err)

	rows, err := p.Parse("a:b\nc:d")
	require.NoError(t, err)
	assert.Equal(t, []Row{{"a", "b"}, {"c", "d"}}, rows)
}
