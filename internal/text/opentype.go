package text

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/tinyrange/celltext/internal/gpu"
)

// Option configures an OpenTypeRasterizer.
type Option func(*OpenTypeRasterizer)

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *OpenTypeRasterizer) { r.logger = logger }
}

// WithLocators replaces the font locators. They are tried in order.
func WithLocators(locators ...Locator) Option {
	return func(r *OpenTypeRasterizer) { r.locators = locators }
}

type faceKey struct {
	font FontKey
	size fixed.Int26_6
}

type loadedFont struct {
	desc Description
	font *opentype.Font
}

// OpenTypeRasterizer is a Rasterizer backed by golang.org/x/image. Faces are
// created at 72*dpr DPI so that one point maps to one device pixel at a
// ratio of 1.
type OpenTypeRasterizer struct {
	dpr      float64
	logger   *slog.Logger
	locators []Locator

	fonts  []loadedFont
	byDesc map[Description]FontKey
	faces  map[faceKey]font.Face
	buf    sfnt.Buffer
}

var _ Rasterizer = (*OpenTypeRasterizer)(nil)

// NewRasterizer returns a rasterizer for the given device pixel ratio. By
// default it looks fonts up in the embedded Go Mono family first, then in
// the system font index.
func NewRasterizer(dpr float64, opts ...Option) *OpenTypeRasterizer {
	if dpr <= 0 {
		dpr = 1
	}
	r := &OpenTypeRasterizer{
		dpr:    dpr,
		byDesc: make(map[Description]FontKey),
		faces:  make(map[faceKey]font.Face),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.locators == nil {
		r.locators = []Locator{EmbeddedLocator, NewSystemLocator(r.logger)}
	}
	return r
}

// DPR returns the device pixel ratio glyphs are rendered at.
func (r *OpenTypeRasterizer) DPR() float64 { return r.dpr }

func (r *OpenTypeRasterizer) LoadFont(d Description, size fixed.Int26_6) (FontKey, error) {
	if key, ok := r.byDesc[d]; ok {
		return key, nil
	}

	data, index, err := r.locate(d)
	if err != nil {
		return 0, err
	}

	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return 0, fmt.Errorf("parse font %q: %w", d, err)
	}
	if index < 0 || index >= coll.NumFonts() {
		return 0, fmt.Errorf("font %q: face index %d out of range (%d faces)", d, index, coll.NumFonts())
	}
	f, err := coll.Font(index)
	if err != nil {
		return 0, fmt.Errorf("parse font %q: %w", d, err)
	}

	r.fonts = append(r.fonts, loadedFont{desc: d, font: f})
	key := FontKey(len(r.fonts))
	r.byDesc[d] = key

	if size > 0 {
		if _, err := r.face(key, size); err != nil {
			return 0, err
		}
	}
	r.logger.Debug("loaded font", "font", d.String(), "key", key, "glyphs", f.NumGlyphs())
	return key, nil
}

func (r *OpenTypeRasterizer) locate(d Description) ([]byte, int, error) {
	var errs []error
	for _, l := range r.locators {
		data, index, err := l.Locate(d)
		if err == nil {
			return data, index, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, 0, fmt.Errorf("%w: %q", ErrFontNotFound, d.Family)
	}
	return nil, 0, errors.Join(errs...)
}

func (r *OpenTypeRasterizer) lookup(key FontKey) (loadedFont, error) {
	if key == 0 || int(key) > len(r.fonts) {
		return loadedFont{}, fmt.Errorf("%w: unknown font key %d", ErrFontNotFound, key)
	}
	return r.fonts[key-1], nil
}

func (r *OpenTypeRasterizer) face(key FontKey, size fixed.Int26_6) (font.Face, error) {
	fk := faceKey{font: key, size: size}
	if f, ok := r.faces[fk]; ok {
		return f, nil
	}

	lf, err := r.lookup(key)
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(lf.font, &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     72 * r.dpr,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face for %q at %v: %w", lf.desc, size, err)
	}
	r.faces[fk] = f
	return f, nil
}

func (r *OpenTypeRasterizer) Metrics(key FontKey, size fixed.Int26_6) (Metrics, error) {
	f, err := r.face(key, size)
	if err != nil {
		return Metrics{}, err
	}
	fm := f.Metrics()

	var total fixed.Int26_6
	n := 0
	for c := rune(0x20); c < 0x7f; c++ {
		if adv, ok := f.GlyphAdvance(c); ok {
			total += adv
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = float64(total) / 64 / float64(n)
	}

	return Metrics{
		LineHeight:     float64(fm.Height) / 64,
		AverageAdvance: avg,
		Descent:        float64(fm.Descent) / 64,
	}, nil
}

func (r *OpenTypeRasterizer) Rasterize(key GlyphKey) (Bitmap, error) {
	lf, err := r.lookup(key.Font)
	if err != nil {
		return Bitmap{}, err
	}
	if idx, err := lf.font.GlyphIndex(&r.buf, key.Char); err != nil || idx == 0 {
		return Bitmap{}, fmt.Errorf("%w: %q in %q", ErrGlyphNotFound, key.Char, lf.desc)
	}

	f, err := r.face(key.Font, key.Size)
	if err != nil {
		return Bitmap{}, err
	}
	dr, mask, maskp, _, ok := f.Glyph(fixed.Point26_6{}, key.Char)
	if !ok {
		return Bitmap{}, fmt.Errorf("%w: %q in %q", ErrGlyphNotFound, key.Char, lf.desc)
	}

	bmp := Bitmap{
		Width:  dr.Dx(),
		Height: dr.Dy(),
		Left:   dr.Min.X,
		Top:    -dr.Min.Y,
		Format: gpu.FormatRGB,
	}
	if dr.Empty() || mask == nil {
		bmp.Width, bmp.Height = 0, 0
		return bmp, nil
	}

	// The face reuses its mask between calls, so pixels are copied out here.
	if alpha, ok := mask.(*image.Alpha); ok {
		bmp.Pix = make([]byte, 0, bmp.Width*bmp.Height*3)
		for y := 0; y < bmp.Height; y++ {
			for x := 0; x < bmp.Width; x++ {
				a := alpha.AlphaAt(maskp.X+x, maskp.Y+y).A
				bmp.Pix = append(bmp.Pix, a, a, a)
			}
		}
		return bmp, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bmp.Width, bmp.Height))
	draw.Draw(dst, dst.Bounds(), mask, maskp, draw.Src)
	bmp.Format = gpu.FormatRGBA
	bmp.Pix = dst.Pix
	return bmp, nil
}

// Close releases the cached faces.
func (r *OpenTypeRasterizer) Close() error {
	var errs []error
	for k, f := range r.faces {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.faces, k)
	}
	return errors.Join(errs...)
}
