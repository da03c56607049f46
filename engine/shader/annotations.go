// annotations.go defines the directive types and the line parser for the Oxy GLSL shader
// pre-processor. Directives are single-line comments prefixed with @oxy: so that unprocessed
// sources still compile.
package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// annotationPrefix is the marker that identifies an Oxy directive within a comment line.
// Every directive must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "//@oxy:"

// AnnotationType identifies the kind of directive parsed from a source line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered snippet at the directive site.
	//
	// Syntax: //@oxy:include <name>
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeDefine emits a #define at the directive site.
	//
	// Syntax: //@oxy:define <NAME> [value...]
	AnnotationTypeDefine AnnotationType = "define"

	// AnnotationTypeStage starts the named stage when splitting a single-file shader.
	//
	// Syntax: //@oxy:stage <vertex|fragment>
	AnnotationTypeStage AnnotationType = "stage"
)

// Stage names a programmable pipeline stage of a ProgramSource.
type Stage string

const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
)

// Annotation is a single parsed @oxy: directive.
type Annotation struct {
	// Type identifies which directive was parsed.
	Type AnnotationType

	// Args holds the directive arguments:
	//   - include: [0] = snippet name
	//   - define:  [0] = macro name, [1] = value (may be empty)
	//   - stage:   [0] = stage name
	Args []string

	// Line is the 1-based line number of the directive.
	Line int
}

var macroName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single source line as an @oxy: directive.
// Returns nil with no error for lines that are not directives.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed directive, or nil
//   - error: a descriptive error if the directive is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	after, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy directive", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Args: args[1:], Line: lineNum}, nil
	case AnnotationTypeDefine:
		if len(args) < 2 {
			return nil, fmt.Errorf("line %d: @oxy define requires a macro name", lineNum)
		}
		if !macroName.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid macro name %q in @oxy define", lineNum, args[1])
		}
		return &Annotation{Type: AnnotationTypeDefine, Args: []string{args[1], strings.Join(args[2:], " ")}, Line: lineNum}, nil
	case AnnotationTypeStage:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy stage requires exactly one argument", lineNum)
		}
		switch Stage(args[1]) {
		case StageVertex, StageFragment:
		default:
			return nil, fmt.Errorf("line %d: unknown stage %q in @oxy stage", lineNum, args[1])
		}
		return &Annotation{Type: AnnotationTypeStage, Args: args[1:], Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy directive %q", lineNum, args[0])
	}
}

// set stores src as the source of stage in ps.
func (s Stage) set(ps *device.ProgramSource, src string) {
	switch s {
	case StageVertex:
		ps.Vertex = src
	case StageFragment:
		ps.Fragment = src
	}
}
