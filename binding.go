package csvpave

// Binding represents one way of finding a field's cell in a row. Several
// bindings may be declared per field; they are tried in order.
type Binding struct {
	Name       string           // ColumnTagBinding or IndexTagBinding
	Identifier string           // Header name, or the index as written in the tag
	Index      int              // Parsed Identifier for IndexTagBinding
	Modifiers  BindingModifiers // Failure and fallback behavior
}

// BindingModifiers control failure and fallback behavior for a single
// binding.
type BindingModifiers struct {
	Required  bool // If true, a missing cell fails the row
	OmitEmpty bool // If true, a missing or empty cell falls through to the next binding
}

// BindingResult is what resolving a binding against a row produced.
type BindingResult struct {
	Value string
	Found bool
	Error error
}

func BindingResultValue(value string) BindingResult {
	return BindingResult{Value: value, Found: true}
}

func BindingResultNotFound() BindingResult {
	return BindingResult{}
}

func BindingResultError(err error) BindingResult {
	return BindingResult{Error: err}
}

// empty reports whether the result should fall through an omitempty binding.
func (r BindingResult) empty() bool {
	return !r.Found || r.Value == ""
}
