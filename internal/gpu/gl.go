package gpu

import (
	"unsafe"

	glpkg "github.com/tinyrange/celltext/internal/gl"
)

type glBackend struct {
	gl glpkg.OpenGL
}

// NewGL returns a Backend issuing calls through gl. It enables blending
// for premultiplied glyph coverage.
func NewGL(gl glpkg.OpenGL) Backend {
	gl.Enable(glpkg.Blend)
	gl.BlendFunc(glpkg.One, glpkg.OneMinusSrcAlpha)
	return &glBackend{gl: gl}
}

func (b *glBackend) Viewport(x, y, width, height int) {
	b.gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *glBackend) Clear() {
	b.gl.Clear(glpkg.ColorBufferBit | glpkg.DepthBufferBit)
}

func (b *glBackend) CompileShader(stage Stage, source string) (Shader, error) {
	kind := uint32(glpkg.VertexShader)
	if stage == StageFragment {
		kind = glpkg.FragmentShader
	}

	shader := b.gl.CreateShader(kind)
	b.gl.ShaderSource(shader, source)
	b.gl.CompileShader(shader)

	var status int32
	b.gl.GetShaderiv(shader, glpkg.CompileStatus, &status)
	if status != glpkg.True {
		log := b.gl.GetShaderInfoLog(shader)
		b.gl.DeleteShader(shader)
		return 0, &LogError{Stage: stage.String(), Log: log}
	}
	return Shader(shader), nil
}

func (b *glBackend) DeleteShader(s Shader) {
	if s != 0 {
		b.gl.DeleteShader(uint32(s))
	}
}

func (b *glBackend) LinkProgram(vs, fs Shader) (Program, error) {
	program := b.gl.CreateProgram()
	b.gl.AttachShader(program, uint32(vs))
	b.gl.AttachShader(program, uint32(fs))
	b.gl.LinkProgram(program)
	b.gl.DetachShader(program, uint32(vs))
	b.gl.DetachShader(program, uint32(fs))
	b.gl.DeleteShader(uint32(vs))
	b.gl.DeleteShader(uint32(fs))

	var status int32
	b.gl.GetProgramiv(program, glpkg.LinkStatus, &status)
	if status != glpkg.True {
		log := b.gl.GetProgramInfoLog(program)
		b.gl.DeleteProgram(program)
		return 0, &LogError{Stage: "link", Log: log}
	}
	return Program(program), nil
}

func (b *glBackend) DeleteProgram(p Program) {
	if p != 0 {
		b.gl.DeleteProgram(uint32(p))
	}
}

func (b *glBackend) UseProgram(p Program) {
	b.gl.UseProgram(uint32(p))
}

func (b *glBackend) UniformLocation(p Program, name string) Uniform {
	return Uniform(b.gl.GetUniformLocation(uint32(p), name))
}

func (b *glBackend) Uniform1i(u Uniform, v int32) {
	b.gl.Uniform1i(int32(u), v)
}

func (b *glBackend) Uniform2f(u Uniform, x, y float32) {
	b.gl.Uniform2f(int32(u), x, y)
}

func (b *glBackend) CreateTexture(bmp Bitmap) Texture {
	format := uint32(glpkg.RGB)
	if bmp.Format == FormatRGBA {
		format = glpkg.RGBA
	}

	var id uint32
	b.gl.PixelStorei(glpkg.UnpackAlignment, 1)
	b.gl.GenTextures(1, &id)
	b.gl.ActiveTexture(glpkg.Texture0)
	b.gl.BindTexture(glpkg.Texture2D, id)

	b.gl.TexParameteri(glpkg.Texture2D, glpkg.TextureWrapS, glpkg.ClampToBorder)
	b.gl.TexParameteri(glpkg.Texture2D, glpkg.TextureWrapT, glpkg.ClampToBorder)
	b.gl.TexParameteri(glpkg.Texture2D, glpkg.TextureMinFilter, glpkg.Linear)
	b.gl.TexParameteri(glpkg.Texture2D, glpkg.TextureMagFilter, glpkg.Linear)

	var pixels unsafe.Pointer
	if len(bmp.Pix) > 0 {
		pixels = unsafe.Pointer(&bmp.Pix[0])
	}
	b.gl.TexImage2D(
		glpkg.Texture2D,
		0,
		int32(format),
		int32(bmp.Width),
		int32(bmp.Height),
		0,
		format,
		glpkg.UnsignedByte,
		pixels,
	)

	b.gl.BindTexture(glpkg.Texture2D, 0)
	return Texture(id)
}

func (b *glBackend) DeleteTexture(t Texture) {
	if t == 0 {
		return
	}
	id := uint32(t)
	b.gl.DeleteTextures(1, &id)
}

func (b *glBackend) CreateBuffers(layout Layout, indices []uint32) Buffers {
	var bufs Buffers

	b.gl.GenVertexArrays(1, &bufs.VAO)
	b.gl.BindVertexArray(bufs.VAO)

	b.gl.GenBuffers(1, &bufs.EBO)
	b.gl.BindBuffer(glpkg.ElementArrayBuffer, bufs.EBO)
	if len(indices) > 0 {
		b.gl.BufferData(glpkg.ElementArrayBuffer, len(indices)*4, unsafe.Pointer(&indices[0]), glpkg.StaticDraw)
	}

	// Storage for a single record; contents arrive with each draw.
	b.gl.GenBuffers(1, &bufs.VBO)
	b.gl.BindBuffer(glpkg.ArrayBuffer, bufs.VBO)
	stride := layout.Stride()
	b.gl.BufferData(glpkg.ArrayBuffer, stride, nil, glpkg.DynamicDraw)

	offset := uintptr(0)
	for _, a := range layout {
		b.gl.VertexAttribPointerWithOffset(a.Index, a.Size, glpkg.Float, false, int32(stride), offset)
		b.gl.EnableVertexAttribArray(a.Index)
		b.gl.VertexAttribDivisor(a.Index, 1)
		offset += uintptr(a.Size) * 4
	}

	b.gl.BindVertexArray(0)
	return bufs
}

func (b *glBackend) DeleteBuffers(bufs Buffers) {
	if bufs.VAO != 0 {
		b.gl.DeleteVertexArrays(1, &bufs.VAO)
	}
	if bufs.VBO != 0 {
		b.gl.DeleteBuffers(1, &bufs.VBO)
	}
	if bufs.EBO != 0 {
		b.gl.DeleteBuffers(1, &bufs.EBO)
	}
}

func (b *glBackend) DrawInstanced(bufs Buffers, t Texture, instance []float32, d Draw) {
	b.gl.BindVertexArray(bufs.VAO)
	b.gl.BindTexture(glpkg.Texture2D, uint32(t))
	b.gl.BindBuffer(glpkg.ElementArrayBuffer, bufs.EBO)
	b.gl.BindBuffer(glpkg.ArrayBuffer, bufs.VBO)
	if len(instance) > 0 {
		b.gl.BufferSubData(glpkg.ArrayBuffer, 0, len(instance)*4, unsafe.Pointer(&instance[0]))
	}

	mode := uint32(glpkg.Triangles)
	if d.Primitive == LineLoop {
		mode = glpkg.LineLoop
	}
	fill := uint32(glpkg.Fill)
	if d.Wireframe {
		fill = glpkg.Line
	}
	b.gl.PolygonMode(glpkg.FrontAndBack, fill)
	b.gl.DrawElementsInstanced(mode, int32(d.Count), glpkg.UnsignedInt, 0, 1)

	b.gl.BindVertexArray(0)
	b.gl.BindTexture(glpkg.Texture2D, 0)
}
