package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/tinyrange/celltext/internal/gpu"
	"github.com/tinyrange/celltext/internal/text"
)

// Pass selects what a draw call renders. The value is written to the
// drawFlag uniform.
type Pass int32

const (
	PassGlyph    Pass = iota // filled glyph quad
	PassGlyphBox             // glyph bounding box outline
	PassCellBox              // cell outline
	PassBaseline             // baseline outline
)

// Passes is the order passes are drawn in for every cell.
var Passes = [...]Pass{PassGlyph, PassGlyphBox, PassCellBox, PassBaseline}

func (p Pass) draw() gpu.Draw {
	if p == PassGlyph {
		return gpu.Draw{Primitive: gpu.Triangles, Count: len(quadIndices)}
	}
	return gpu.Draw{Primitive: gpu.LineLoop, Count: 4, Wireframe: true}
}

// InstanceLayout is the per-instance record shared by every cell. It must
// match the inputs declared by text.v.glsl.
var InstanceLayout = gpu.Layout{
	{Index: 0, Size: 2}, // gridCoords
	{Index: 1, Size: 4}, // uvAttr
	{Index: 2, Size: 1}, // baseline
}

// Two triangles; the first four indices walk the outline.
var quadIndices = []uint32{0, 1, 2, 3, 0, 2}

type instanceAttr struct {
	gridCoords mgl32.Vec2 // column, row
	uvAttr     mgl32.Vec4 // glyph width, height, left, top in device pixels
	baseline   float32    // device pixels above the cell bottom
}

func (a *instanceAttr) record(dst []float32) []float32 {
	dst = append(dst[:0], a.gridCoords[:]...)
	dst = append(dst, a.uvAttr[:]...)
	return append(dst, a.baseline)
}

// Baseline positions glyphs vertically inside a cell.
type Baseline struct {
	DPR     float32
	Descent float32 // device pixels between the cell bottom and the baseline
}

// Cell draws one grid position. It owns its buffers; the glyph texture is
// borrowed from the glyph cache.
type Cell struct {
	backend gpu.Backend
	buffers gpu.Buffers
	row     int
	column  int

	char    rune
	texture gpu.Texture
	colored bool
	attr    instanceAttr
	scratch []float32
}

// NewCell allocates the buffers for the cell at row, column.
func NewCell(backend gpu.Backend, row, column int) *Cell {
	return &Cell{
		backend: backend,
		buffers: backend.CreateBuffers(InstanceLayout, quadIndices),
		row:     row,
		column:  column,
		attr: instanceAttr{
			gridCoords: mgl32.Vec2{float32(column), float32(row)},
		},
		scratch: make([]float32, 0, InstanceLayout.Floats()),
	}
}

// SetText shows ch using g. The glyph box is scaled to device pixels and
// its top is placed relative to the baseline.
func (c *Cell) SetText(ch rune, g text.Glyph, b Baseline) {
	c.char = ch
	c.texture = g.Texture
	c.colored = g.Colored
	c.attr.uvAttr = mgl32.Vec4{
		g.Width * b.DPR,
		g.Height * b.DPR,
		g.Left * b.DPR,
		g.Top*b.DPR + b.Descent,
	}
	c.attr.baseline = b.Descent
}

// Draw uploads the instance record and issues the draw call for pass.
func (c *Cell) Draw(pass Pass) {
	c.scratch = c.attr.record(c.scratch)
	c.backend.DrawInstanced(c.buffers, c.texture, c.scratch, pass.draw())
}

// Colored reports whether the glyph texture carries its own color.
func (c *Cell) Colored() bool { return c.colored }

// Char returns the character shown, or zero.
func (c *Cell) Char() rune { return c.char }

// Position returns the cell's row and column.
func (c *Cell) Position() (row, column int) { return c.row, c.column }

// Buffers returns the GPU buffers owned by the cell.
func (c *Cell) Buffers() gpu.Buffers { return c.buffers }

// Release deletes the cell's buffers. It is safe to call more than once.
func (c *Cell) Release() {
	if c.buffers.IsZero() {
		return
	}
	c.backend.DeleteBuffers(c.buffers)
	c.buffers = gpu.Buffers{}
	c.texture = 0
}
