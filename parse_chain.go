package csvpave

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoStepBindings is returned when a field declares no bindings. Such
	// fields are left out of the chain.
	ErrNoStepBindings        = errors.New("no bindings found for field")
	ErrFailedToParseTag      = errors.New("failed to parse tag for field")
	ErrFailedToBuildSubChain = errors.New("failed to build sub-chain for field")
	ErrNilParseChain         = errors.New("parse chain is empty for type")
	ErrNotStruct             = errors.New("binding target must be a struct type")
	ErrHeaderRequired        = errors.New("column bindings require a header row")
	ErrColumnNotFound        = errors.New("column not found in header")
	ErrCellNotJSON           = errors.New("cell does not hold valid JSON")
	ErrPathNotFound          = errors.New("JSON path not found in cell")
)

// rowSource is one row as seen by a parse chain, along with the column
// layout of the parse it belongs to.
type rowSource struct {
	fields  []string
	columns *columnIndex
	json    map[int]gjson.Result // cells parsed as JSON, by index
}

// columnIndex resolves header names to cell indexes.
type columnIndex struct {
	exact  map[string]int
	folded map[string]int
}

func newColumnIndex(header []string) *columnIndex {
	ci := &columnIndex{
		exact:  make(map[string]int, len(header)),
		folded: make(map[string]int, len(header)),
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := ci.exact[name]; !dup {
			ci.exact[name] = i
		}
		lower := strings.ToLower(name)
		if _, dup := ci.folded[lower]; !dup {
			ci.folded[lower] = i
		}
	}
	return ci
}

// lookup prefers an exact match and falls back to a case-insensitive one.
func (ci *columnIndex) lookup(name string) (int, bool) {
	if i, ok := ci.exact[name]; ok {
		return i, true
	}
	i, ok := ci.folded[strings.ToLower(name)]
	return i, ok
}

// resolve finds the cell for binding and applies path to it when set. A
// column missing from the header is the only NotFound result.
func (src *rowSource) resolve(binding Binding, path string) BindingResult {
	index := binding.Index
	if binding.Name == ColumnTagBinding {
		if src.columns == nil {
			return BindingResultError(ErrHeaderRequired)
		}
		i, ok := src.columns.lookup(binding.Identifier)
		if !ok {
			return BindingResultNotFound()
		}
		index = i
	}

	if index >= len(src.fields) {
		return BindingResultError(fmt.Errorf("%w: %s is field %d, row has %d fields",
			ErrColumnOutOfRange, binding.Identifier, index+1, len(src.fields)))
	}
	cell := src.fields[index]

	if path == "" {
		return BindingResultValue(cell)
	}

	doc, ok := src.json[index]
	if !ok {
		if !gjson.Valid(cell) {
			return BindingResultError(fmt.Errorf("%w: column %s", ErrCellNotJSON, binding.Identifier))
		}
		doc = gjson.Parse(cell)
		if src.json == nil {
			src.json = make(map[int]gjson.Result)
		}
		src.json[index] = doc
	}

	result := doc.Get(path)
	if !result.Exists() {
		return BindingResultError(fmt.Errorf("%w: %s in column %s", ErrPathNotFound, path, binding.Identifier))
	}
	return BindingResultValue(result.String())
}

// ParseChain represents a linked list of parse steps for a struct type.
// Chains depend on the struct type only; the column layout arrives with
// every row.
type ParseChain struct {
	StructType  reflect.Type // StructType is the type of the struct being bound
	Head        *ParseStep   // Head is the first step in the chain
	NeedsHeader bool         // True if any step, nested ones included, uses a col binding
}

// ParseStep represents a single field in the chain
type ParseStep struct {
	Next       *ParseStep  // Next is the next step in the current chain.
	SubChain   *ParseChain // Sub-chain for inline struct fields. Nil otherwise.
	Bindings   []Binding   // Ordered list of bindings to try
	FieldName  string      // Name of the field for error reporting
	Default    DefaultTag  // Value used when every binding fell through
	Path       string      // gjson path applied to the resolved cell
	TimeLayout string      // Layout for time.Time fields
	FieldIndex int         // Index of the field in the struct
}

// Execute runs every step of the chain against src, populating dest, which
// must be an addressable struct value of the chain's type.
func (chain *ParseChain) Execute(src *rowSource, dest reflect.Value) error {
	if chain.Head == nil {
		return fmt.Errorf("%w: %s", ErrNilParseChain, chain.StructType.Name())
	}

	for step := chain.Head; step != nil; step = step.Next {
		if err := chain.doStep(src, dest, step); err != nil {
			return fmt.Errorf("failed to bind field %s: %w", step.FieldName, err)
		}
	}
	return nil
}

func (chain *ParseChain) doStep(src *rowSource, dest reflect.Value, step *ParseStep) error {
	field := dest.Field(step.FieldIndex)
	if !field.CanSet() {
		return nil
	}

	if step.SubChain != nil {
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				field.Set(reflect.New(field.Type().Elem()))
			}
			field = field.Elem()
		}
		return step.SubChain.Execute(src, field)
	}

	for _, binding := range step.Bindings {
		result := src.resolve(binding, step.Path)

		if result.Error != nil {
			if binding.Modifiers.OmitEmpty {
				continue
			}
			return result.Error
		}

		if binding.Modifiers.OmitEmpty && result.empty() {
			continue
		}

		if !result.Found {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, binding.Identifier)
		}

		return assignCell(field, result.Value, step.TimeLayout)
	}

	// Every binding fell through.
	if step.Default.Set {
		return assignCell(field, step.Default.Value, step.TimeLayout)
	}
	return nil
}

// checkColumns reports the first required col binding that header lacks.
func (chain *ParseChain) checkColumns(columns *columnIndex) error {
	for step := chain.Head; step != nil; step = step.Next {
		if step.SubChain != nil {
			if err := step.SubChain.checkColumns(columns); err != nil {
				return err
			}
			continue
		}
		for _, binding := range step.Bindings {
			if binding.Name != ColumnTagBinding || !binding.Modifiers.Required {
				continue
			}
			if _, ok := columns.lookup(binding.Identifier); !ok {
				return fmt.Errorf("%w: %s (field %s)", ErrColumnNotFound, binding.Identifier, step.FieldName)
			}
		}
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// ParseChainManager
///////////////////////////////////////////////////////////////////////////////

// ParseChainManager builds and caches parse chains per struct type. It is
// safe for concurrent use.
type ParseChainManager struct {
	chains *Cache[reflect.Type, *ParseChain]
}

func NewParseChainManager() *ParseChainManager {
	return &ParseChainManager{chains: NewCache[reflect.Type, *ParseChain]()}
}

// _gChainManager is shared by all StructValidators.
var _gChainManager = NewParseChainManager()

// GetParseChain returns the chain for typ, building it on first use.
func (cman *ParseChainManager) GetParseChain(typ reflect.Type) (*ParseChain, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %s", ErrNotStruct, typ)
	}
	return cman.chains.GetOrCreate(typ, func() (*ParseChain, error) {
		return cman.NewParseChain(typ, nil)
	})
}

// NewParseChain builds an uncached chain for typ. visiting guards against
// inline cycles through pointer fields.
func (cman *ParseChainManager) NewParseChain(typ reflect.Type, visiting []reflect.Type) (*ParseChain, error) {
	for _, seen := range visiting {
		if seen == typ {
			return nil, fmt.Errorf("%w %s: inline cycle through %s", ErrFailedToBuildSubChain, typ.Name(), seen)
		}
	}
	visiting = append(visiting, typ)

	chain := &ParseChain{StructType: typ}
	var current *ParseStep

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		step, err := cman.NewParseStep(field, i, visiting)
		if err != nil {
			// Fields without a tag or bindings are left alone.
			if errors.Is(err, ErrNoStepBindings) || errors.Is(err, ErrNoCsvTag) {
				continue
			}
			return nil, err
		}

		if step.SubChain != nil && step.SubChain.NeedsHeader {
			chain.NeedsHeader = true
		}
		for _, binding := range step.Bindings {
			if binding.Name == ColumnTagBinding {
				chain.NeedsHeader = true
			}
		}

		if current == nil {
			chain.Head = step
		} else {
			current.Next = step
		}
		current = step
	}

	return chain, nil
}

func (cman *ParseChainManager) NewParseStep(field reflect.StructField, index int, visiting []reflect.Type) (*ParseStep, error) {
	tag, err := DecodeCsvTag(field)
	if err != nil {
		if errors.Is(err, ErrNoCsvTag) {
			return nil, err
		}
		return nil, fmt.Errorf("%w %s: %w", ErrFailedToParseTag, field.Name, err)
	}

	if tag.Skip {
		return nil, ErrNoStepBindings
	}

	if tag.Inline {
		structType := field.Type
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct || isSpecialStructType(structType) {
			return nil, fmt.Errorf("%w %s: inline needs a struct field", ErrFailedToBuildSubChain, field.Name)
		}

		subChain, err := cman.NewParseChain(structType, visiting)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrFailedToBuildSubChain, field.Name, err)
		}
		if subChain.Head == nil {
			return nil, ErrNoStepBindings
		}
		return &ParseStep{
			FieldIndex: index,
			FieldName:  field.Name,
			SubChain:   subChain,
		}, nil
	}

	bindings, err := makeBindings(tag)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFailedToParseTag, field.Name, err)
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoStepBindings, field.Name)
	}

	return &ParseStep{
		FieldIndex: index,
		FieldName:  field.Name,
		Bindings:   bindings,
		Default:    tag.Default,
		Path:       tag.Path,
		TimeLayout: tag.TimeLayout,
	}, nil
}
