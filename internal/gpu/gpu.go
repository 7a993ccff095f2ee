// Package gpu is the typed capability layer between the cell renderer and
// the graphics API. Only implementations of Backend issue raw GL calls; the
// rest of the program works with the opaque handles defined here, which
// keeps the glyph cache and grid logic testable without a GPU.
package gpu

import "fmt"

// Texture names a 2-D texture. The zero Texture is "no texture".
type Texture uint32

// Shader names a compiled shader stage.
type Shader uint32

// Program names a linked shader program.
type Program uint32

// Uniform is a uniform location inside a program; -1 when the program does
// not declare it, in which case setting it is a no-op.
type Uniform int32

// Buffers is the vertex array, vertex buffer and index buffer owned by one
// drawable.
type Buffers struct {
	VAO uint32
	VBO uint32
	EBO uint32
}

// IsZero reports whether b names no buffers.
func (b Buffers) IsZero() bool {
	return b == Buffers{}
}

// Stage selects the pipeline stage of a shader.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// PixelFormat is the channel layout of uploaded pixel data.
type PixelFormat int

const (
	FormatRGB PixelFormat = iota
	FormatRGBA
)

// Channels returns the number of bytes per pixel.
func (f PixelFormat) Channels() int {
	if f == FormatRGBA {
		return 4
	}
	return 3
}

func (f PixelFormat) String() string {
	if f == FormatRGBA {
		return "RGBA"
	}
	return "RGB"
}

// Bitmap is tightly packed pixel data, rows top to bottom.
type Bitmap struct {
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

// Empty reports whether the bitmap has no pixels to upload.
func (b Bitmap) Empty() bool {
	return b.Width <= 0 || b.Height <= 0 || len(b.Pix) == 0
}

// Attrib declares one float vector input of the instance record.
type Attrib struct {
	Index uint32
	Size  int32 // number of float32 components
}

// Layout is the ordered attribute list of an instance record. Attributes
// are packed back to back in declaration order.
type Layout []Attrib

// Floats returns the number of float32 values in one record.
func (l Layout) Floats() int {
	n := 0
	for _, a := range l {
		n += int(a.Size)
	}
	return n
}

// Stride returns the size of one record in bytes.
func (l Layout) Stride() int {
	return l.Floats() * 4
}

// Primitive is the topology of a draw call.
type Primitive int

const (
	Triangles Primitive = iota
	LineLoop
)

func (p Primitive) String() string {
	if p == LineLoop {
		return "line-loop"
	}
	return "triangles"
}

// Draw describes one instanced draw call.
type Draw struct {
	Primitive Primitive
	Count     int  // number of indices
	Wireframe bool // rasterize polygons as lines
}

// Backend is the GPU capability handed to the renderer at construction.
// Methods operate on the context current on the calling thread and must be
// called from that thread only.
type Backend interface {
	// Viewport maps clip space onto the given window pixel rectangle.
	Viewport(x, y, width, height int)

	// Clear clears the color and depth buffers.
	Clear()

	// CompileShader compiles source for stage. Failures return a *LogError
	// carrying the compiler log; no shader object is left behind.
	CompileShader(stage Stage, source string) (Shader, error)
	DeleteShader(s Shader)

	// LinkProgram links a program from vs and fs. The shaders are released
	// whether or not linking succeeds. Failures return a *LogError.
	LinkProgram(vs, fs Shader) (Program, error)

	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformLocation(p Program, name string) Uniform
	Uniform1i(u Uniform, v int32)
	Uniform2f(u Uniform, x, y float32)

	// CreateTexture uploads bmp as a 2-D texture with linear filtering and
	// clamp-to-border wrapping.
	CreateTexture(bmp Bitmap) Texture
	DeleteTexture(t Texture)

	// CreateBuffers allocates a vertex array whose vertex buffer holds one
	// instance record described by layout (divisor 1) and whose index
	// buffer holds indices.
	CreateBuffers(layout Layout, indices []uint32) Buffers
	DeleteBuffers(b Buffers)

	// DrawInstanced uploads instance into b's vertex buffer and issues one
	// instanced draw of a single instance with t bound to unit 0.
	DrawInstanced(b Buffers, t Texture, instance []float32, d Draw)
}

// LogError is a shader compile or program link failure.
type LogError struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *LogError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("gpu: %s failed", e.Stage)
	}
	return fmt.Sprintf("gpu: %s failed: %s", e.Stage, e.Log)
}
