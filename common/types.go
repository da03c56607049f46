// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// ErrTextureSize is returned when pixel data does not match the declared texture dimensions.
var ErrTextureSize = errors.New("texture pixel data does not match its dimensions")

// TextureStagingData holds RGBA pixel data pending upload to a texture.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel in row-major order. Nil allocates storage without contents.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width int
	// Height is the height of the texture in pixels.
	Height int
}

// Validate checks that the dimensions are positive and that Pixels, when present, holds exactly Width*Height RGBA texels.
//
// Returns:
//   - error: ErrTextureSize wrapped with the offending sizes, or nil
func (d TextureStagingData) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrTextureSize, d.Width, d.Height)
	}
	if d.Pixels != nil && len(d.Pixels) != d.Width*d.Height*4 {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrTextureSize, d.Width, d.Height, d.Width*d.Height*4, len(d.Pixels))
	}
	return nil
}

// Image converts the staging data into the device upload format.
//
// Returns:
//   - device.TextureImage: the image descriptor sharing Pixels
func (d TextureStagingData) Image() device.TextureImage {
	return device.TextureImage{Width: d.Width, Height: d.Height, Pixels: d.Pixels}
}

// ImportedTexture is an encoded image, either held in memory or referenced by path.
// For in-memory images, the Data field contains raw image bytes.
// For files on disk, the Path field contains the file path.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "diffuse", "checker").
	Name string

	// Path is the file path for external textures (empty for in-memory).
	Path string

	// Data contains raw encoded image bytes (PNG/JPEG/BMP/WebP).
	Data []byte

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int

	// Params overrides the sampling parameters of the texture the image is loaded into.
	Params *device.TextureParams
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either Data bytes or loads from Path on disk.
// Supports PNG, JPEG, BMP and WebP formats.
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data with its dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, err = decodeImage(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode image %q: %w", t.Name, err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, err = decodeImage(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return TextureStagingData{}, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	return TextureStagingData{Pixels: rgba.Pix, Width: t.Width, Height: t.Height}, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}
