package text

import (
	"log/slog"

	"github.com/tinyrange/celltext/internal/gpu"
)

// Glyph is a cached glyph texture and its box in logical pixels relative to
// the glyph origin. Top is measured upwards from the baseline. The texture
// belongs to the GlyphCache; holders must not delete it.
type Glyph struct {
	Texture gpu.Texture
	Top     float32
	Left    float32
	Width   float32
	Height  float32
	Colored bool
}

// CacheStats counts cache traffic.
type CacheStats struct {
	Hits     int
	Misses   int
	Failures int // misses whose rasterization failed
}

// GlyphCache memoizes glyph textures by GlyphKey. It never evicts: the
// working set is bounded by the characters one font renders. Textures live
// until Release.
type GlyphCache struct {
	backend gpu.Backend
	font    *Font
	logger  *slog.Logger

	glyphs map[GlyphKey]Glyph
	stats  CacheStats
}

// NewGlyphCache returns an empty cache uploading through backend.
func NewGlyphCache(backend gpu.Backend, font *Font, logger *slog.Logger) *GlyphCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &GlyphCache{
		backend: backend,
		font:    font,
		logger:  logger,
		glyphs:  make(map[GlyphKey]Glyph),
	}
}

// blankTexel stands in for glyphs with no ink so every rasterized key still
// owns a texture.
var blankTexel = gpu.Bitmap{Width: 1, Height: 1, Format: gpu.FormatRGB, Pix: []byte{0, 0, 0}}

// Get returns the glyph for k, rasterizing and uploading it on a miss. Blank
// glyphs get a transparent 1x1 texture; a glyph that fails to rasterize is
// cached as an empty glyph with texture 0.
func (c *GlyphCache) Get(k GlyphKey) Glyph {
	if g, ok := c.glyphs[k]; ok {
		c.stats.Hits++
		return g
	}
	c.stats.Misses++

	bmp, err := c.font.Rasterize(k)
	failed := err != nil
	if failed {
		c.stats.Failures++
		c.logger.Warn("rasterize glyph", "char", string(k.Char), "size", k.Size.String(), "err", err)
		bmp = Bitmap{}
	}

	dpr := float32(c.font.DPR())
	g := Glyph{
		Top:     float32(bmp.Top) / dpr,
		Left:    float32(bmp.Left) / dpr,
		Width:   float32(bmp.Width) / dpr,
		Height:  float32(bmp.Height) / dpr,
		Colored: bmp.Colored(),
	}
	switch {
	case failed:
	case bmp.GPU().Empty():
		g.Texture = c.backend.CreateTexture(blankTexel)
	default:
		g.Texture = c.backend.CreateTexture(bmp.GPU())
	}
	c.logger.Debug("glyph cached", "char", string(k.Char), "texture", g.Texture, "width", bmp.Width, "height", bmp.Height)

	c.glyphs[k] = g
	return g
}

// Len returns the number of cached glyphs.
func (c *GlyphCache) Len() int { return len(c.glyphs) }

// Contains reports whether k is cached, without counting a lookup.
func (c *GlyphCache) Contains(k GlyphKey) bool {
	_, ok := c.glyphs[k]
	return ok
}

// Stats returns the hit and miss counters.
func (c *GlyphCache) Stats() CacheStats { return c.stats }

// Release deletes every cached texture and empties the cache.
func (c *GlyphCache) Release() {
	for k, g := range c.glyphs {
		if g.Texture != 0 {
			c.backend.DeleteTexture(g.Texture)
		}
		delete(c.glyphs, k)
	}
}
