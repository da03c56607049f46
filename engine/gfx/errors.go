package gfx

import "errors"

var (
	// ErrContextDeleted is returned by create calls on a deleted Context.
	ErrContextDeleted = errors.New("gfx: context deleted")

	// ErrIndexLimit is returned when an element buffer or indexed mesh exceeds the 16-bit index range.
	ErrIndexLimit = errors.New("gfx: index limit exceeded")

	// ErrInvalidLayout is returned when attribute lengths or vertex data do not describe whole vertex records.
	ErrInvalidLayout = errors.New("gfx: invalid vertex layout")

	// ErrNotRenderTarget is returned when a render-target operation targets a plain texture.
	ErrNotRenderTarget = errors.New("gfx: texture is not a render target")
)
