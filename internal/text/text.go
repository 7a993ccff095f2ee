// Package text turns characters into GPU glyph textures. It holds the font
// service boundary (Rasterizer, Font) and the GlyphCache that memoizes
// uploaded glyphs for the cell renderer.
package text

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"

	"github.com/tinyrange/celltext/internal/gpu"
)

var (
	// ErrFontNotFound is returned when no locator knows a font family.
	ErrFontNotFound = errors.New("text: font not found")
	// ErrGlyphNotFound is returned when a font has no glyph for a rune.
	ErrGlyphNotFound = errors.New("text: glyph not found")
)

// DefaultDescription is the font loaded when the requested one fails.
var DefaultDescription = Description{Family: "Go Mono", Style: "Regular"}

// DefaultSize is the point size used when none is configured.
const DefaultSize fixed.Int26_6 = 14 << 6

// Description names a font by family and style, e.g. {"Go Mono", "Bold"}.
type Description struct {
	Family string
	Style  string
}

func (d Description) String() string {
	if d.Style == "" {
		return d.Family
	}
	return d.Family + " " + d.Style
}

// FontKey identifies a font loaded by a Rasterizer. Zero is never a valid key.
type FontKey uint32

// GlyphKey identifies one rasterized glyph. Size is in points.
type GlyphKey struct {
	Font FontKey
	Char rune
	Size fixed.Int26_6
}

// Points converts a point size to the fixed-point form used in keys.
func Points(pt float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(pt * 64))
}

// Metrics are per-font measurements in device pixels.
type Metrics struct {
	LineHeight     float64
	AverageAdvance float64
	Descent        float64 // distance below the baseline, positive
}

// Bitmap is a rasterized glyph in device pixels. Left and Top are the
// bearings of the bitmap's top-left corner relative to the glyph origin;
// Top is measured upwards from the baseline.
type Bitmap struct {
	Width  int
	Height int
	Left   int
	Top    int
	Format gpu.PixelFormat
	Pix    []byte
}

// Colored reports whether the bitmap carries its own color.
func (b Bitmap) Colored() bool {
	return b.Format == gpu.FormatRGBA
}

// GPU returns the pixel data in the form accepted by gpu.Backend.
func (b Bitmap) GPU() gpu.Bitmap {
	return gpu.Bitmap{Width: b.Width, Height: b.Height, Format: b.Format, Pix: b.Pix}
}

// Rasterizer is the font service: it loads fonts, reports their metrics
// and renders single glyphs.
type Rasterizer interface {
	LoadFont(d Description, size fixed.Int26_6) (FontKey, error)
	Metrics(key FontKey, size fixed.Int26_6) (Metrics, error)
	Rasterize(key GlyphKey) (Bitmap, error)
}

// FontLoadError reports that neither the requested font nor the default
// could be loaded.
type FontLoadError struct {
	Requested   Description
	Err         error
	Fallback    Description
	FallbackErr error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("load font %q: %v (fallback %q: %v)", e.Requested, e.Err, e.Fallback, e.FallbackErr)
}

func (e *FontLoadError) Unwrap() []error {
	return []error{e.Err, e.FallbackErr}
}
