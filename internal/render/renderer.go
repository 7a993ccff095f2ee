// Package render draws a grid of text cells. A Renderer owns the shader
// program, the glyph cache and the cells; every method must be called on
// the thread that owns the GPU context.
package render

import (
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/fixed"

	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/text"
)

// Options configures a Renderer.
type Options struct {
	// DPR is the device pixel ratio. Zero means 1. A rasterizer that
	// reports its own ratio through a DPR method overrides it, since glyph
	// boxes are scaled back by the ratio the bitmaps were rendered at.
	DPR float64
	// Font is the requested font; it falls back to text.DefaultDescription.
	Font text.Description
	// FontSize is the size in points. Zero means text.DefaultSize.
	FontSize fixed.Int26_6

	// ShaderDir overrides the embedded shader sources with files of the
	// same name when they exist.
	ShaderDir string
	// ShaderFS takes precedence over ShaderDir when set.
	ShaderFS fs.FS

	Logger *slog.Logger
}

type pixelRatioer interface {
	DPR() float64
}

type uniforms struct {
	cellSize   gpu.Uniform
	windowSize gpu.Uniform
	drawFlag   gpu.Uniform
	colored    gpu.Uniform
}

// Renderer is the cell grid renderer.
type Renderer struct {
	backend gpu.Backend
	logger  *slog.Logger
	shaders shaderLoader

	program  gpu.Program
	uniforms uniforms

	font  *text.Font
	cache *text.GlyphCache

	cellWidth  float64 // device pixels
	cellHeight float64
	descent    float64

	cellSize   mgl32.Vec2
	windowSize mgl32.Vec2

	lines   int
	columns int
	cells   []*Cell // row-major
}

// New builds the shader program, loads the font and measures its cells.
// Errors are *CreationError.
func New(backend gpu.Backend, rasterizer text.Rasterizer, opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if pr, ok := rasterizer.(pixelRatioer); ok && pr.DPR() > 0 {
		if opts.DPR > 0 && opts.DPR != pr.DPR() {
			opts.Logger.Warn("device pixel ratio differs from the rasterizer's, using the rasterizer's",
				"dpr", opts.DPR, "rasterizer_dpr", pr.DPR())
		}
		opts.DPR = pr.DPR()
	}
	if opts.DPR <= 0 {
		opts.DPR = 1
	}

	loader := shaderLoader{fsys: opts.ShaderFS, dir: opts.ShaderDir}
	if loader.fsys == nil && opts.ShaderDir != "" {
		loader.fsys = os.DirFS(opts.ShaderDir)
	}

	program, err := buildProgram(backend, loader)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		backend: backend,
		logger:  opts.Logger,
		shaders: loader,
		program: program,
	}
	r.resolveUniforms()

	r.font = text.NewFont(rasterizer, opts.Font, opts.FontSize, opts.DPR, r.logger)
	if err := r.font.Load(); err != nil {
		backend.DeleteProgram(program)
		return nil, &CreationError{Kind: KindFont, Err: err}
	}
	m, err := r.font.Metrics()
	if err != nil {
		backend.DeleteProgram(program)
		return nil, &CreationError{Kind: KindFont, Err: err}
	}
	r.cellWidth = math.Max(1, math.Floor(m.AverageAdvance))
	r.cellHeight = math.Max(1, math.Floor(m.LineHeight))
	r.descent = m.Descent

	r.cache = text.NewGlyphCache(backend, r.font, r.logger)

	r.logger.Debug("cell metrics",
		"font", r.font.Description().String(),
		"size", r.font.Size().String(),
		"dpr", opts.DPR,
		"cell_width", r.cellWidth,
		"cell_height", r.cellHeight,
		"descent", r.descent,
	)
	return r, nil
}

func (r *Renderer) resolveUniforms() {
	r.uniforms = uniforms{
		cellSize:   r.backend.UniformLocation(r.program, "cellSize"),
		windowSize: r.backend.UniformLocation(r.program, "windowSize"),
		drawFlag:   r.backend.UniformLocation(r.program, "drawFlag"),
		colored:    r.backend.UniformLocation(r.program, "colored"),
	}
}

// SetSize replaces the grid with lines x columns empty cells. Sizes with a
// zero dimension are logged and ignored.
func (r *Renderer) SetSize(lines, columns int) {
	if lines <= 0 || columns <= 0 {
		r.logger.Error("ignoring empty grid size", "lines", lines, "columns", columns)
		return
	}

	r.cellSize = mgl32.Vec2{2 / float32(columns), 2 / float32(lines)}
	r.backend.UseProgram(r.program)
	r.backend.Uniform2f(r.uniforms.cellSize, r.cellSize.X(), r.cellSize.Y())

	r.releaseCells()
	r.cells = make([]*Cell, 0, lines*columns)
	for row := 0; row < lines; row++ {
		for col := 0; col < columns; col++ {
			r.cells = append(r.cells, NewCell(r.backend, row, col))
		}
	}
	r.lines, r.columns = lines, columns
}

func (r *Renderer) releaseCells() {
	for _, c := range r.cells {
		c.Release()
	}
	r.cells = nil
}

// Cell returns the cell at row, column, or nil when out of range.
func (r *Renderer) Cell(row, column int) *Cell {
	if row < 0 || column < 0 || row >= r.lines || column >= r.columns {
		return nil
	}
	return r.cells[row*r.columns+column]
}

// SetText shows ch at row, column. Positions outside the grid are ignored.
func (r *Renderer) SetText(row, column int, ch rune) {
	c := r.Cell(row, column)
	if c == nil {
		return
	}
	g := r.cache.Get(r.font.GlyphKey(ch))
	c.SetText(ch, g, Baseline{DPR: float32(r.font.DPR()), Descent: float32(r.descent)})
}

// CharAt returns the character shown at row, column.
func (r *Renderer) CharAt(row, column int) (rune, bool) {
	c := r.Cell(row, column)
	if c == nil {
		return 0, false
	}
	return c.Char(), true
}

// Resize maps the viewport to a window of width x height device pixels and
// reflows the grid to as many whole cells as fit.
func (r *Renderer) Resize(width, height int) {
	r.backend.Viewport(0, 0, width, height)
	r.windowSize = mgl32.Vec2{float32(width), float32(height)}
	r.backend.UseProgram(r.program)
	r.backend.Uniform2f(r.uniforms.windowSize, r.windowSize.X(), r.windowSize.Y())

	columns := int(math.Floor(float64(width) / r.cellWidth))
	lines := int(math.Floor(float64(height) / r.cellHeight))
	r.logger.Debug("resize", "width", width, "height", height, "lines", lines, "columns", columns)
	r.SetSize(lines, columns)
}

// DrawFrame clears the frame and draws every cell, all passes of one cell
// before the next.
func (r *Renderer) DrawFrame() {
	r.backend.Clear()
	r.backend.UseProgram(r.program)
	for _, c := range r.cells {
		var colored int32
		if c.Colored() {
			colored = 1
		}
		r.backend.Uniform1i(r.uniforms.colored, colored)
		for _, pass := range Passes {
			r.backend.Uniform1i(r.uniforms.drawFlag, int32(pass))
			c.Draw(pass)
		}
	}
}

// ReloadShaders rebuilds the program from the current sources. On failure
// the running program is kept and the *CreationError is returned.
func (r *Renderer) ReloadShaders() error {
	program, err := buildProgram(r.backend, r.shaders)
	if err != nil {
		return err
	}

	r.backend.DeleteProgram(r.program)
	r.program = program
	r.resolveUniforms()

	r.backend.UseProgram(r.program)
	if r.lines > 0 {
		r.backend.Uniform2f(r.uniforms.cellSize, r.cellSize.X(), r.cellSize.Y())
	}
	r.backend.Uniform2f(r.uniforms.windowSize, r.windowSize.X(), r.windowSize.Y())
	r.logger.Info("reloaded shaders", "program", program)
	return nil
}

// Lines returns the number of grid rows.
func (r *Renderer) Lines() int { return r.lines }

// Columns returns the number of grid columns.
func (r *Renderer) Columns() int { return r.columns }

// CellSize returns the cell size in device pixels.
func (r *Renderer) CellSize() (width, height float64) { return r.cellWidth, r.cellHeight }

// Font returns the loaded font.
func (r *Renderer) Font() *text.Font { return r.font }

// GlyphCache returns the renderer's glyph cache.
func (r *Renderer) GlyphCache() *text.GlyphCache { return r.cache }

// Close releases the cells, the glyph textures and the program.
func (r *Renderer) Close() {
	r.releaseCells()
	r.lines, r.columns = 0, 0
	if r.cache != nil {
		r.cache.Release()
	}
	if r.program != 0 {
		r.backend.DeleteProgram(r.program)
		r.program = 0
	}
}
