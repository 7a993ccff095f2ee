// Package texttest provides a deterministic text.Rasterizer for tests.
package texttest

import (
	"fmt"
	"slices"
	"unicode"

	"golang.org/x/image/math/fixed"

	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/text"
)

var _ = text.Rasterizer((*Rasterizer)(nil))

// Rasterizer fakes a monospaced font. Every printable rune rasterizes to a
// GlyphWidth x GlyphHeight bitmap filled with the rune's low byte; spaces
// rasterize to an empty bitmap; runes at or above U+1F000 come back colored.
type Rasterizer struct {
	CellMetrics text.Metrics
	GlyphWidth  int
	GlyphHeight int

	// Missing lists families that fail to load.
	Missing []string
	// Fail maps runes to the error Rasterize returns for them.
	Fail map[rune]error
	// Scale is reported by DPR. Zero reports no ratio.
	Scale float64

	loaded     []text.Description
	rasterized []text.GlyphKey
}

// New returns a fake whose metrics give cells of cellWidth x cellHeight
// device pixels.
func New(cellWidth, cellHeight, descent float64) *Rasterizer {
	return &Rasterizer{
		CellMetrics: text.Metrics{
			LineHeight:     cellHeight,
			AverageAdvance: cellWidth,
			Descent:        descent,
		},
		GlyphWidth:  int(cellWidth) - 2,
		GlyphHeight: int(cellHeight - descent),
		Fail:        make(map[rune]error),
	}
}

func (r *Rasterizer) DPR() float64 { return r.Scale }

func (r *Rasterizer) LoadFont(d text.Description, size fixed.Int26_6) (text.FontKey, error) {
	if slices.Contains(r.Missing, d.Family) {
		return 0, fmt.Errorf("%w: %q", text.ErrFontNotFound, d.Family)
	}
	if i := slices.Index(r.loaded, d); i >= 0 {
		return text.FontKey(i + 1), nil
	}
	r.loaded = append(r.loaded, d)
	return text.FontKey(len(r.loaded)), nil
}

func (r *Rasterizer) Metrics(key text.FontKey, size fixed.Int26_6) (text.Metrics, error) {
	if key == 0 || int(key) > len(r.loaded) {
		return text.Metrics{}, fmt.Errorf("%w: key %d", text.ErrFontNotFound, key)
	}
	return r.CellMetrics, nil
}

func (r *Rasterizer) Rasterize(k text.GlyphKey) (text.Bitmap, error) {
	r.rasterized = append(r.rasterized, k)
	if err, ok := r.Fail[k.Char]; ok {
		return text.Bitmap{}, err
	}
	if unicode.IsSpace(k.Char) {
		return text.Bitmap{Format: gpu.FormatRGB}, nil
	}

	bmp := text.Bitmap{
		Width:  r.GlyphWidth,
		Height: r.GlyphHeight,
		Left:   1,
		Top:    r.GlyphHeight,
		Format: gpu.FormatRGB,
	}
	if k.Char >= 0x1F000 {
		bmp.Format = gpu.FormatRGBA
	}
	bmp.Pix = make([]byte, bmp.Width*bmp.Height*bmp.Format.Channels())
	for i := range bmp.Pix {
		bmp.Pix[i] = byte(k.Char)
	}
	return bmp, nil
}

// Loaded returns the descriptions loaded so far, in key order.
func (r *Rasterizer) Loaded() []text.Description { return slices.Clone(r.loaded) }

// Rasterized returns every key passed to Rasterize.
func (r *Rasterizer) Rasterized() []text.GlyphKey { return slices.Clone(r.rasterized) }
