package shader

// PreProcessorBuilderOption is a functional option for configuring a PreProcessor.
type PreProcessorBuilderOption func(*preProcessor)

// WithDefine registers a global macro emitted into every processed stage.
//
// Parameters:
//   - name: the macro name
//   - value: the macro value, may be empty
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithDefine(name, value string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.defines[name] = value
	}
}

// WithSnippet registers an include snippet, replacing a built-in of the same name.
//
// Parameters:
//   - name: the include name
//   - source: the snippet source
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithSnippet(name, source string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.snippets[name] = source
	}
}
