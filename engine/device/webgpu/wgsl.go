package webgpu

import (
	"regexp"
	"strconv"
	"strings"
)

// typeLayout holds the byte size and alignment of a WGSL type in the uniform address space.
type typeLayout struct {
	size  uint64
	align uint64
}

// structField is a single member of a WGSL struct declaration.
type structField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// wgslStruct is a struct declaration found in WGSL source.
type wgslStruct struct {
	name   string
	fields []structField
}

// uniformField is a resolved member of the program's uniform block.
type uniformField struct {
	offset   uint64
	typeName string
	layout   typeLayout
}

// bindingKind classifies a group 0 resource declaration.
type bindingKind int

const (
	bindingUniform bindingKind = iota
	bindingTexture
	bindingSampler
)

// resourceBinding is a @group(0) declaration the device knows how to feed.
type resourceBinding struct {
	binding  uint32
	kind     bindingKind
	name     string
	typeName string
}

// reflection is everything the device needs to know about a WGSL program.
type reflection struct {
	vertexEntry   string
	fragmentEntry string
	bindings      []resourceBinding
	uniforms      map[string]uniformField
	uniformSize   uint64
}

// primitiveLayouts maps WGSL scalar, vector and matrix types to their size and alignment.
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

var (
	lineCommentRegex  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
	structBlockRegex  = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	builtinRegex      = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex        = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex  = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragEntryRegex    = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindingDeclRegex captures binding, optional address space, name and type of a group 0 declaration,
	// e.g. @group(0) @binding(0) var<uniform> u: Uniforms;
	bindingDeclRegex = regexp.MustCompile(`@group\(0\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectProgram extracts entry points, group 0 bindings and the uniform block layout from WGSL source.
// The vertex and fragment sources may be the same module.
//
// Parameters:
//   - vertex: the WGSL source holding the vertex entry point
//   - fragment: the WGSL source holding the fragment entry point
//
// Returns:
//   - reflection: the reflected program interface
func reflectProgram(vertex, fragment string) reflection {
	vs := stripComments(vertex)
	fs := stripComments(fragment)

	r := reflection{uniforms: make(map[string]uniformField)}
	if m := vertexEntryRegex.FindStringSubmatch(vs); m != nil {
		r.vertexEntry = m[1]
	}
	if m := fragEntryRegex.FindStringSubmatch(fs); m != nil {
		r.fragmentEntry = m[1]
	}

	combined := vs
	if fs != vs {
		combined += "\n" + fs
	}
	structs := parseStructs(combined)
	known := computeStructLayouts(structs)

	seen := make(map[uint32]bool)
	for _, m := range bindingDeclRegex.FindAllStringSubmatch(combined, -1) {
		binding, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil || seen[uint32(binding)] {
			continue
		}
		rb := resourceBinding{
			binding:  uint32(binding),
			name:     m[3],
			typeName: strings.TrimSpace(m[4]),
		}
		switch {
		case strings.TrimSpace(m[2]) == "uniform":
			rb.kind = bindingUniform
		case strings.HasPrefix(rb.typeName, "texture_2d"):
			rb.kind = bindingTexture
		case rb.typeName == "sampler":
			rb.kind = bindingSampler
		default:
			continue
		}
		seen[rb.binding] = true
		r.bindings = append(r.bindings, rb)
	}

	for _, rb := range r.bindings {
		if rb.kind != bindingUniform {
			continue
		}
		if s, ok := findStruct(structs, rb.typeName); ok {
			r.uniforms, r.uniformSize = uniformOffsets(s, known)
		} else if l, ok := primitiveLayouts[rb.typeName]; ok {
			r.uniforms[rb.name] = uniformField{typeName: rb.typeName, layout: l}
			r.uniformSize = roundUpAlign(16, l.size)
		}
		break
	}
	return r
}

// binding returns the first declaration of the given kind.
func (r reflection) binding(kind bindingKind) (resourceBinding, bool) {
	for _, rb := range r.bindings {
		if rb.kind == kind {
			return rb, true
		}
	}
	return resourceBinding{}, false
}

func stripComments(source string) string {
	return lineCommentRegex.ReplaceAllString(blockCommentRegex.ReplaceAllString(source, ""), "")
}

func findStruct(structs []wgslStruct, name string) (wgslStruct, bool) {
	for _, s := range structs {
		if s.name == name {
			return s, true
		}
	}
	return wgslStruct{}, false
}

// parseStructs finds all struct blocks in comment-free WGSL source.
func parseStructs(source string) []wgslStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, wgslStruct{name: m[1], fields: parseFields(m[2])})
	}
	return structs
}

// parseFields splits a struct body at top-level commas into fields.
func parseFields(body string) []structField {
	var fields []structField
	for _, part := range splitTopLevel(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := fieldRegex.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		fields = append(fields, structField{
			name:      m[1],
			typeName:  strings.TrimSpace(m[2]),
			isBuiltin: builtinRegex.MatchString(part),
		})
	}
	return fields
}

// splitTopLevel splits s at commas that are not nested inside <> or ().
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveLayout resolves primitives, known structs and fixed-size arrays.
func resolveLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		parts := strings.SplitN(typeName[6:len(typeName)-1], ",", 2)
		if len(parts) != 2 {
			return typeLayout{}, false
		}
		elem, ok := resolveLayout(strings.TrimSpace(parts[0]), known)
		if !ok {
			return typeLayout{}, false
		}
		n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return typeLayout{}, false
		}
		// uniform arrays have a 16 byte element stride
		stride := roundUpAlign(16, roundUpAlign(elem.align, elem.size))
		return typeLayout{n * stride, max(elem.align, 16)}, true
	}
	return typeLayout{}, false
}

// computeStructLayouts resolves struct layouts iteratively so structs may nest in any order.
func computeStructLayouts(structs []wgslStruct) map[string]typeLayout {
	known := make(map[string]typeLayout, len(structs))
	for progress := true; progress; {
		progress = false
		for _, s := range structs {
			if _, done := known[s.name]; done {
				continue
			}
			if l, ok := structLayout(s, known); ok {
				known[s.name] = l
				progress = true
			}
		}
	}
	return known
}

func structLayout(s wgslStruct, known map[string]typeLayout) (typeLayout, bool) {
	offset, maxAlign := uint64(0), uint64(1)
	for _, f := range s.fields {
		if f.isBuiltin {
			continue
		}
		l, ok := resolveLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUpAlign(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return typeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// uniformOffsets lays out the members of the uniform block struct.
// Members of unresolvable types end the layout; everything before them stays addressable.
func uniformOffsets(s wgslStruct, known map[string]typeLayout) (map[string]uniformField, uint64) {
	fields := make(map[string]uniformField, len(s.fields))
	offset, maxAlign := uint64(0), uint64(16)
	for _, f := range s.fields {
		l, ok := resolveLayout(f.typeName, known)
		if !ok {
			break
		}
		offset = roundUpAlign(l.align, offset)
		fields[f.name] = uniformField{offset: offset, typeName: f.typeName, layout: l}
		offset += l.size
		maxAlign = max(maxAlign, l.align)
	}
	return fields, roundUpAlign(maxAlign, offset)
}
