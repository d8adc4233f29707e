package csvpave

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DialectRegistry maps dialect names to ParseOpts presets.
//
// A preset carries the Delimiter, Quote, LazyQuotes, Header and Encoding
// fields. ParseOpts.Dialect selects a preset, and any non-zero field on
// the ParseOpts overrides it.
//
// DialectRegistry is safe for concurrent use.
type DialectRegistry struct {
	mu sync.RWMutex
	m  map[string]ParseOpts // dialect name -> preset
}

type DialectRegistryOpts struct {
	// Dialects are registered after the defaults, by name.
	Dialects        map[string]ParseOpts
	ExcludeDefaults bool
}

// _defaultDialects seed every registry unless ExcludeDefaults is set.
var _defaultDialects = map[string]ParseOpts{
	CommaDialect:     {Delimiter: ',', Quote: DefaultQuote},
	TabDialect:       {Delimiter: '\t', Quote: DefaultQuote},
	SemicolonDialect: {Delimiter: ';', Quote: DefaultQuote},
	PipeDialect:      {Delimiter: '|', Quote: DefaultQuote},
}

func NewDialectRegistry(opts DialectRegistryOpts) (*DialectRegistry, error) {
	reg := &DialectRegistry{
		m: make(map[string]ParseOpts),
	}

	if !opts.ExcludeDefaults {
		for name, dialect := range _defaultDialects {
			if err := reg.Register(name, dialect); err != nil {
				return nil, err
			}
		}
	}

	// Sorted so that the first failing name is deterministic.
	names := make([]string, 0, len(opts.Dialects))
	for name := range opts.Dialects {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := reg.Register(name, opts.Dialects[name]); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Register adds a preset under name. Names are case-insensitive. A name can
// be registered only once.
func (reg *DialectRegistry) Register(name string, opts ParseOpts) error {
	key := normalizeDialectName(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownDialect)
	}

	preset, err := presetOf(opts)
	if err != nil {
		return fmt.Errorf("dialect %s: %w", name, err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.m[key]; exists {
		return fmt.Errorf("%w: %s", ErrDialectAlreadyRegistered, name)
	}
	reg.m[key] = preset
	return nil
}

// Lookup returns the preset registered under name.
func (reg *DialectRegistry) Lookup(name string) (ParseOpts, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	preset, ok := reg.m[normalizeDialectName(name)]
	if !ok {
		return ParseOpts{}, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
	return preset, nil
}

// Names returns the registered dialect names in sorted order.
func (reg *DialectRegistry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.m))
	for name := range reg.m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// presetOf keeps the fields of opts that a dialect describes and checks
// that they form a usable dialect on their own.
func presetOf(opts ParseOpts) (ParseOpts, error) {
	preset := ParseOpts{
		Delimiter:  opts.Delimiter,
		Quote:      opts.Quote,
		LazyQuotes: opts.LazyQuotes,
		Header:     opts.Header,
		Encoding:   opts.Encoding,
	}
	if preset.Delimiter == 0 {
		preset.Delimiter = DefaultDelimiter
	}
	if preset.Quote == 0 {
		preset.Quote = DefaultQuote
	}
	return preset, preset.Validate()
}

func normalizeDialectName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

///////////////////////////////////////////////////////////////////////////////
// Global Singleton and Package Functions
///////////////////////////////////////////////////////////////////////////////

var _gDialectRegistry = mustDialectRegistry()

func mustDialectRegistry() *DialectRegistry {
	reg, err := NewDialectRegistry(DialectRegistryOpts{ExcludeDefaults: false})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize global DialectRegistry: %v", err))
	}
	return reg
}

// Package-level functions that delegate to the global DialectRegistry instance

func RegisterDialect(name string, opts ParseOpts) error {
	return _gDialectRegistry.Register(name, opts)
}

func LookupDialect(name string) (ParseOpts, error) {
	return _gDialectRegistry.Lookup(name)
}

func DialectNames() []string {
	return _gDialectRegistry.Names()
}
