// pre_processor.go implements the Oxy GLSL shader pre-processor. It scans shader source for
// //@oxy: directives, injects registered snippets, emits #define lines, and splits single-file
// shaders into per-stage sources.
//
// Global defines registered on the pre-processor are emitted directly after the #version line
// of every processed stage (or at the top when there is none).
package shader

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// maxIncludeDepth bounds nested includes.
const maxIncludeDepth = 16

var (
	// ErrUnknownInclude is returned when an include names an unregistered snippet.
	ErrUnknownInclude = errors.New("shader: unknown include")

	// ErrIncludeCycle is returned when includes reference each other.
	ErrIncludeCycle = errors.New("shader: include cycle")

	// ErrMissingStage is returned when a split shader lacks the vertex or fragment stage.
	ErrMissingStage = errors.New("shader: missing stage")
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// snippets maps include names to their source.
	snippets map[string]string

	// defines holds global macros emitted into every processed stage.
	defines map[string]string

	// directives accumulates the directives seen by the last Process or Split call.
	directives []Annotation
}

// PreProcessor expands //@oxy: directives in GLSL shader source.
type PreProcessor interface {
	// Process expands include and define directives of a single stage.
	// Stage directives are rejected; use Split for single-file shaders.
	//
	// Parameters:
	//   - source: the raw stage source
	//
	// Returns:
	//   - string: the processed source
	//   - error: an error if a directive is malformed or an include is unknown or cyclic
	Process(source string) (string, error)

	// ProcessProgram expands both stages of src.
	//
	// Parameters:
	//   - src: the raw per-stage sources
	//
	// Returns:
	//   - device.ProgramSource: the processed sources
	//   - error: the first stage error, wrapped with the stage name
	ProcessProgram(src device.ProgramSource) (device.ProgramSource, error)

	// Split expands a single-file shader and splits it at stage directives. Lines before the
	// first stage directive are shared by both stages.
	//
	// Parameters:
	//   - source: the raw single-file source
	//
	// Returns:
	//   - device.ProgramSource: the per-stage sources
	//   - error: ErrMissingStage if either stage is absent, or a directive error
	Split(source string) (device.ProgramSource, error)

	// Define registers a global macro emitted into every processed stage.
	//
	// Parameters:
	//   - name: the macro name
	//   - value: the macro value, may be empty
	Define(name, value string)

	// Register adds or replaces an include snippet.
	//
	// Parameters:
	//   - name: the include name
	//   - source: the snippet source
	Register(name, source string)

	// Includes returns the registered include names in ascending order.
	//
	// Returns:
	//   - []string: the include names
	Includes() []string

	// Directives returns the directives seen by the most recent Process, ProcessProgram or Split call.
	//
	// Returns:
	//   - []Annotation: the directives in source order
	Directives() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the built-in snippets registered.
//
// Parameters:
//   - options: optional builder options
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		snippets: make(map[string]string, len(builtinSnippets)),
		defines:  make(map[string]string),
	}
	for name, src := range builtinSnippets {
		p.snippets[name] = src
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.directives = p.directives[:0]
	return p.process(source)
}

func (p *preProcessor) ProcessProgram(src device.ProgramSource) (device.ProgramSource, error) {
	p.directives = p.directives[:0]
	var out device.ProgramSource
	var err error
	if out.Vertex, err = p.process(src.Vertex); err != nil {
		return device.ProgramSource{}, fmt.Errorf("%s stage: %w", StageVertex, err)
	}
	if out.Fragment, err = p.process(src.Fragment); err != nil {
		return device.ProgramSource{}, fmt.Errorf("%s stage: %w", StageFragment, err)
	}
	return out, nil
}

func (p *preProcessor) Split(source string) (device.ProgramSource, error) {
	p.directives = p.directives[:0]

	var shared []string
	stages := map[Stage][]string{}
	var current Stage

	for i, line := range strings.Split(source, "\n") {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return device.ProgramSource{}, err
		}
		if a != nil && a.Type == AnnotationTypeStage {
			p.directives = append(p.directives, *a)
			current = Stage(a.Args[0])
			if _, ok := stages[current]; ok {
				return device.ProgramSource{}, fmt.Errorf("line %d: stage %q declared twice", i+1, current)
			}
			stages[current] = nil
			continue
		}
		if current == "" {
			shared = append(shared, line)
		} else {
			stages[current] = append(stages[current], line)
		}
	}

	var out device.ProgramSource
	for _, s := range []Stage{StageVertex, StageFragment} {
		lines, ok := stages[s]
		if !ok {
			return device.ProgramSource{}, fmt.Errorf("%w: %s", ErrMissingStage, s)
		}
		src, err := p.process(strings.Join(append(slices.Clone(shared), lines...), "\n"))
		if err != nil {
			return device.ProgramSource{}, fmt.Errorf("%s stage: %w", s, err)
		}
		s.set(&out, src)
	}
	return out, nil
}

func (p *preProcessor) Define(name, value string) {
	p.defines[name] = value
}

func (p *preProcessor) Register(name, source string) {
	p.snippets[name] = source
}

func (p *preProcessor) Includes() []string {
	names := make([]string, 0, len(p.snippets))
	for name := range p.snippets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *preProcessor) Directives() []Annotation {
	return p.directives
}

func (p *preProcessor) process(source string) (string, error) {
	lines, err := p.expand(source, nil)
	if err != nil {
		return "", err
	}
	return strings.Join(p.injectDefines(lines), "\n"), nil
}

// expand resolves include and define directives. stack holds the includes being expanded.
func (p *preProcessor) expand(source string, stack []string) ([]string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return nil, withInclude(stack, err)
		}
		if a == nil {
			out = append(out, line)
			continue
		}
		p.directives = append(p.directives, *a)

		switch a.Type {
		case AnnotationTypeInclude:
			name := a.Args[0]
			if slices.Contains(stack, name) {
				return nil, withInclude(stack, fmt.Errorf("line %d: %w: %s", i+1, ErrIncludeCycle, strings.Join(append(stack, name), " -> ")))
			}
			if len(stack) >= maxIncludeDepth {
				return nil, withInclude(stack, fmt.Errorf("line %d: includes nested deeper than %d", i+1, maxIncludeDepth))
			}
			src, ok := p.snippets[name]
			if !ok {
				return nil, withInclude(stack, fmt.Errorf("line %d: %w %q", i+1, ErrUnknownInclude, name))
			}
			inner, err := p.expand(src, append(stack, name))
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case AnnotationTypeDefine:
			out = append(out, strings.TrimSpace("#define "+a.Args[0]+" "+a.Args[1]))
		case AnnotationTypeStage:
			return nil, withInclude(stack, fmt.Errorf("line %d: @oxy stage is only valid in single-file shaders", i+1))
		}
	}
	return out, nil
}

// injectDefines inserts the global defines after the #version line.
func (p *preProcessor) injectDefines(lines []string) []string {
	if len(p.defines) == 0 {
		return lines
	}
	names := make([]string, 0, len(p.defines))
	for name := range p.defines {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]string, 0, len(names))
	for _, name := range names {
		defs = append(defs, strings.TrimSpace("#define "+name+" "+p.defines[name]))
	}

	at := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			at = i + 1
			break
		}
	}
	return slices.Insert(lines, at, defs...)
}

func withInclude(stack []string, err error) error {
	if len(stack) == 0 {
		return err
	}
	return fmt.Errorf("include %q: %w", stack[len(stack)-1], err)
}
