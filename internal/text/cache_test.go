package text_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/gpu/gputest"
	"github.com/tinyrange/celltext/internal/text"
	"github.com/tinyrange/celltext/internal/text/texttest"
)

func newCache(t *testing.T, dpr float64) (*text.GlyphCache, *text.Font, *gputest.Backend, *texttest.Rasterizer) {
	t.Helper()
	r := texttest.New(10, 8, 2)
	f := text.NewFont(r, text.DefaultDescription, text.Points(12), dpr, nil)
	if err := f.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := gputest.New()
	return text.NewGlyphCache(b, f, nil), f, b, r
}

func TestGlyphCacheHit(t *testing.T) {
	c, f, b, r := newCache(t, 1)

	first := c.Get(f.GlyphKey('A'))
	second := c.Get(f.GlyphKey('A'))

	if first.Texture == 0 {
		t.Fatalf("Get('A') texture = 0, want uploaded texture")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second Get differs (-first +second):\n%s", diff)
	}
	if got := b.LiveTextures(); got != 1 {
		t.Errorf("LiveTextures = %d, want 1", got)
	}
	if got := len(r.Rasterized()); got != 1 {
		t.Errorf("Rasterize called %d times, want 1", got)
	}
	want := text.CacheStats{Hits: 1, Misses: 1}
	if diff := cmp.Diff(want, c.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestGlyphCacheKeyDiscrimination(t *testing.T) {
	c, f, _, _ := newCache(t, 1)

	a := c.Get(f.GlyphKey('A'))
	b := c.Get(f.GlyphKey('B'))
	bigger := f.GlyphKey('A')
	bigger.Size += text.Points(1)
	aBig := c.Get(bigger)

	if a.Texture == b.Texture {
		t.Errorf("'A' and 'B' share texture %d", a.Texture)
	}
	if a.Texture == aBig.Texture {
		t.Errorf("'A' at two sizes share texture %d", a.Texture)
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestGlyphCacheFailureDegrades(t *testing.T) {
	c, f, b, r := newCache(t, 1)
	r.Fail['x'] = errors.New("no outline")

	g := c.Get(f.GlyphKey('x'))
	if diff := cmp.Diff(text.Glyph{}, g); diff != "" {
		t.Errorf("failed glyph not empty (-want +got):\n%s", diff)
	}
	if !c.Contains(f.GlyphKey('x')) {
		t.Errorf("failed glyph was not cached")
	}

	c.Get(f.GlyphKey('x'))
	if got := len(r.Rasterized()); got != 1 {
		t.Errorf("Rasterize called %d times, want 1", got)
	}
	if got := c.Stats().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
	if got := b.LiveTextures(); got != 0 {
		t.Errorf("LiveTextures = %d, want 0", got)
	}
}

func TestGlyphCacheBlankGlyph(t *testing.T) {
	c, f, b, _ := newCache(t, 1)

	space := c.Get(f.GlyphKey(' '))
	bigger := f.GlyphKey(' ')
	bigger.Size += text.Points(1)
	spaceBig := c.Get(bigger)
	nbsp := c.Get(f.GlyphKey('\u00a0'))

	handles := map[gpu.Texture]string{}
	for name, g := range map[string]text.Glyph{"space": space, "bigger space": spaceBig, "nbsp": nbsp} {
		if g.Texture == 0 {
			t.Errorf("%s texture = 0, want an uploaded texture", name)
			continue
		}
		if other, ok := handles[g.Texture]; ok {
			t.Errorf("%s and %s share texture %d", name, other, g.Texture)
		}
		handles[g.Texture] = name
		if g.Width != 0 || g.Height != 0 {
			t.Errorf("%s box = %vx%v, want 0x0", name, g.Width, g.Height)
		}
	}
	if got := b.LiveTextures(); got != 3 {
		t.Errorf("LiveTextures = %d, want 3", got)
	}
	bmp, ok := b.Texture(space.Texture)
	if !ok {
		t.Fatalf("texture %d not uploaded", space.Texture)
	}
	want := gpu.Bitmap{Width: 1, Height: 1, Format: gpu.FormatRGB, Pix: []byte{0, 0, 0}}
	if diff := cmp.Diff(want, bmp); diff != "" {
		t.Errorf("blank texture mismatch (-want +got):\n%s", diff)
	}
}

func TestGlyphCacheBlankGlyphOpenType(t *testing.T) {
	r := text.NewRasterizer(1)
	defer r.Close()
	f := text.NewFont(r, text.DefaultDescription, text.Points(12), 1, nil)
	if err := f.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := text.NewGlyphCache(gputest.New(), f, nil)

	space := c.Get(f.GlyphKey(' '))
	bigger := f.GlyphKey(' ')
	bigger.Size = text.Points(13)
	spaceBig := c.Get(bigger)
	nbsp := c.Get(f.GlyphKey('\u00a0'))

	if space.Texture == 0 || spaceBig.Texture == 0 || nbsp.Texture == 0 {
		t.Fatalf("blank textures = %d, %d, %d, want all non-zero", space.Texture, spaceBig.Texture, nbsp.Texture)
	}
	if space.Texture == spaceBig.Texture || space.Texture == nbsp.Texture || spaceBig.Texture == nbsp.Texture {
		t.Errorf("blank glyphs share textures: %d, %d, %d", space.Texture, spaceBig.Texture, nbsp.Texture)
	}
	if got := c.Stats().Failures; got != 0 {
		t.Errorf("Failures = %d, want 0", got)
	}
}

func TestGlyphCacheLogicalBox(t *testing.T) {
	c, f, b, r := newCache(t, 2)

	g := c.Get(f.GlyphKey('A'))
	want := text.Glyph{
		Texture: g.Texture,
		Top:     float32(r.GlyphHeight) / 2,
		Left:    0.5,
		Width:   float32(r.GlyphWidth) / 2,
		Height:  float32(r.GlyphHeight) / 2,
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("glyph box mismatch (-want +got):\n%s", diff)
	}

	bmp, ok := b.Texture(g.Texture)
	if !ok {
		t.Fatalf("texture %d not uploaded", g.Texture)
	}
	if bmp.Width != r.GlyphWidth || bmp.Height != r.GlyphHeight {
		t.Errorf("uploaded %dx%d, want %dx%d device pixels", bmp.Width, bmp.Height, r.GlyphWidth, r.GlyphHeight)
	}
}

func TestGlyphCacheColored(t *testing.T) {
	c, f, b, _ := newCache(t, 1)

	g := c.Get(f.GlyphKey('😀'))
	if !g.Colored {
		t.Errorf("Colored = false, want true")
	}
	bmp, _ := b.Texture(g.Texture)
	if bmp.Format != gpu.FormatRGBA {
		t.Errorf("uploaded format = %v, want %v", bmp.Format, gpu.FormatRGBA)
	}
}

func TestGlyphCacheRelease(t *testing.T) {
	c, f, b, _ := newCache(t, 1)
	for _, ch := range "hello" {
		c.Get(f.GlyphKey(ch))
	}
	if got := b.LiveTextures(); got != 4 {
		t.Fatalf("LiveTextures = %d, want 4", got)
	}

	c.Release()
	if got := b.LiveTextures(); got != 0 {
		t.Errorf("LiveTextures after Release = %d, want 0", got)
	}
	if got := b.DeletedTextures(); got != 4 {
		t.Errorf("DeletedTextures = %d, want 4", got)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len after Release = %d, want 0", got)
	}

	c.Release()
	if got := b.DeletedTextures(); got != 4 {
		t.Errorf("second Release deleted again: DeletedTextures = %d", got)
	}
}
