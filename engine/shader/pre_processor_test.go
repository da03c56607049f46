package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_PassesThroughPlainSource(t *testing.T) {
	p := NewPreProcessor()
	src := "#version 410 core\nvoid main() {}\n"
	out, err := p.Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Empty(t, p.Directives())
}

func TestProcess_IncludeBuiltin(t *testing.T) {
	p := NewPreProcessor()
	out, err := p.Process("#version 410 core\n//@oxy:include transform\nvoid main() {}")
	require.NoError(t, err)
	assert.Contains(t, out, "uniform mat4 uModel;")
	assert.Contains(t, out, "vec4 oxyTransform(vec3 position)")
	assert.NotContains(t, out, "@oxy")
	require.Len(t, p.Directives(), 1)
	assert.Equal(t, AnnotationTypeInclude, p.Directives()[0].Type)
}

func TestProcess_NestedIncludes(t *testing.T) {
	p := NewPreProcessor(
		WithSnippet("a", "// a\n//@oxy:include b"),
		WithSnippet("b", "// b"),
	)
	out, err := p.Process("//@oxy:include a")
	require.NoError(t, err)
	assert.Equal(t, "// a\n// b", out)
}

func TestProcess_IncludeCycle(t *testing.T) {
	p := NewPreProcessor()
	p.Register("a", "//@oxy:include b")
	p.Register("b", "//@oxy:include a")
	_, err := p.Process("//@oxy:include a")
	assert.ErrorIs(t, err, ErrIncludeCycle)
}

func TestProcess_UnknownInclude(t *testing.T) {
	p := NewPreProcessor()
	_, err := p.Process("//@oxy:include nope")
	assert.ErrorIs(t, err, ErrUnknownInclude)
}

func TestProcess_DefineDirective(t *testing.T) {
	p := NewPreProcessor()
	out, err := p.Process("#version 410 core\n//@oxy:define MAX_LIGHTS 4\n//@oxy:define USE_FOG")
	require.NoError(t, err)
	assert.Equal(t, "#version 410 core\n#define MAX_LIGHTS 4\n#define USE_FOG", out)
}

func TestProcess_GlobalDefinesFollowVersion(t *testing.T) {
	p := NewPreProcessor(WithDefine("B", "2"))
	p.Define("A", "1")
	out, err := p.Process("// header\n#version 410 core\nvoid main() {}")
	require.NoError(t, err)
	assert.Equal(t, "// header\n#version 410 core\n#define A 1\n#define B 2\nvoid main() {}", out)

	out, err = p.Process("void main() {}")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "#define A 1\n"))
}

func TestProcess_RejectsMalformedDirectives(t *testing.T) {
	p := NewPreProcessor()
	for _, src := range []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include a b",
		"//@oxy:define 9bad",
		"//@oxy:stage geometry",
		"//@oxy:bogus x",
		"//@oxy:stage vertex",
	} {
		_, err := p.Process(src)
		assert.Error(t, err, src)
	}
}

func TestSplit_SharedPreludeAndStages(t *testing.T) {
	p := NewPreProcessor()
	src := strings.Join([]string{
		"#version 410 core",
		"//@oxy:stage vertex",
		"//@oxy:include transform",
		"layout(location = 0) in vec3 aPos;",
		"void main() { gl_Position = oxyTransform(aPos); }",
		"//@oxy:stage fragment",
		"out vec4 fragColor;",
		"void main() { fragColor = vec4(1.0); }",
	}, "\n")

	ps, err := p.Split(src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ps.Vertex, "#version 410 core\n"))
	assert.True(t, strings.HasPrefix(ps.Fragment, "#version 410 core\n"))
	assert.Contains(t, ps.Vertex, "oxyTransform(aPos)")
	assert.Contains(t, ps.Vertex, "uniform mat4 uProjection;")
	assert.NotContains(t, ps.Vertex, "fragColor")
	assert.Contains(t, ps.Fragment, "fragColor = vec4(1.0)")
	assert.NotContains(t, ps.Fragment, "aPos")
}

func TestSplit_MissingStage(t *testing.T) {
	p := NewPreProcessor()
	_, err := p.Split("//@oxy:stage vertex\nvoid main() {}")
	assert.ErrorIs(t, err, ErrMissingStage)
}

func TestSplit_DuplicateStage(t *testing.T) {
	p := NewPreProcessor()
	_, err := p.Split("//@oxy:stage vertex\n//@oxy:stage vertex\n//@oxy:stage fragment")
	assert.Error(t, err)
}

func TestIncludes_Sorted(t *testing.T) {
	p := NewPreProcessor(WithSnippet("aaa", ""))
	assert.Equal(t, []string{"aaa", "color", "transform"}, p.Includes())
}
