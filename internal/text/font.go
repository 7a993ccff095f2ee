package text

import (
	"log/slog"

	"golang.org/x/image/math/fixed"
)

// Font is the renderer's handle on one loaded font at one size.
type Font struct {
	r      Rasterizer
	dpr    float64
	desc   Description
	size   fixed.Int26_6
	key    FontKey
	logger *slog.Logger
}

// NewFont returns an unloaded handle for desc at size points. Call Load
// before use.
func NewFont(r Rasterizer, desc Description, size fixed.Int26_6, dpr float64, logger *slog.Logger) *Font {
	if size <= 0 {
		size = DefaultSize
	}
	if dpr <= 0 {
		dpr = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Font{r: r, dpr: dpr, desc: desc, size: size, logger: logger}
}

// Load resolves the font key. If the requested description cannot be
// loaded the failure is logged and DefaultDescription is tried instead.
// A *FontLoadError is returned only when both fail.
func (f *Font) Load() error {
	key, err := f.r.LoadFont(f.desc, f.size)
	if err == nil {
		f.key = key
		return nil
	}

	f.logger.Warn("font unavailable, falling back", "font", f.desc.String(), "fallback", DefaultDescription.String(), "err", err)
	key, ferr := f.r.LoadFont(DefaultDescription, f.size)
	if ferr != nil {
		return &FontLoadError{Requested: f.desc, Err: err, Fallback: DefaultDescription, FallbackErr: ferr}
	}
	f.desc = DefaultDescription
	f.key = key
	return nil
}

// Key returns the loaded font key, zero before Load succeeds.
func (f *Font) Key() FontKey { return f.key }

// Description returns the description actually loaded.
func (f *Font) Description() Description { return f.desc }

// Size returns the point size.
func (f *Font) Size() fixed.Int26_6 { return f.size }

// DPR returns the device pixel ratio bitmaps are rendered at.
func (f *Font) DPR() float64 { return f.dpr }

// GlyphKey returns the cache key for ch in this font.
func (f *Font) GlyphKey(ch rune) GlyphKey {
	return GlyphKey{Font: f.key, Char: ch, Size: f.size}
}

// Metrics returns the font's metrics in device pixels.
func (f *Font) Metrics() (Metrics, error) {
	return f.r.Metrics(f.key, f.size)
}

// Rasterize renders the glyph for k.
func (f *Font) Rasterize(k GlyphKey) (Bitmap, error) {
	return f.r.Rasterize(k)
}
