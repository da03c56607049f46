package shader

import _ "embed"

// TransformSnippet declares the model, view and projection uniforms and oxyTransform.
//
//go:embed assets/transform.glsl
var TransformSnippet string

// ColorSnippet declares sRGB conversion helpers.
//
//go:embed assets/color.glsl
var ColorSnippet string

// builtinSnippets are registered on every new PreProcessor.
var builtinSnippets = map[string]string{
	"transform": TransformSnippet,
	"color":     ColorSnippet,
}
