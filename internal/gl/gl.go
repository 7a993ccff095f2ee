package gl

import "unsafe"

const (
	// ColorBufferBit is a mask used with Clear to clear the color buffer.
	ColorBufferBit = 0x00004000
	// DepthBufferBit is a mask used with Clear to clear the depth buffer.
	DepthBufferBit = 0x00000100

	// Texture2D is the texture target for 2D textures.
	Texture2D = 0x0DE1
	// Texture0 is the first texture unit.
	Texture0 = 0x84C0

	// UnpackAlignment specifies the alignment requirements for pixel data
	// when uploading textures (PixelStorei).
	UnpackAlignment = 0x0CF5

	// TextureWrapS selects the wrapping function for texture coordinate S.
	TextureWrapS = 0x2802
	// TextureWrapT selects the wrapping function for texture coordinate T.
	TextureWrapT = 0x2803

	// TextureMinFilter selects the texture minification filter.
	TextureMinFilter = 0x2801
	// TextureMagFilter selects the texture magnification filter.
	TextureMagFilter = 0x2800

	// Nearest selects nearest-neighbor filtering.
	Nearest = 0x2600
	// Linear selects linear filtering.
	Linear = 0x2601

	// ClampToEdge clamps texture coordinates to the edge of the texture.
	ClampToEdge = 0x812F
	// ClampToBorder clamps texture coordinates to the border color.
	ClampToBorder = 0x812D

	// RGB is a pixel format representing red/green/blue.
	RGB = 0x1907
	// RGBA is a pixel format representing red/green/blue/alpha.
	RGBA = 0x1908

	// UnsignedByte is a pixel data type indicating 8-bit unsigned values.
	UnsignedByte = 0x1401
	// UnsignedInt is the element type of 32-bit index buffers.
	UnsignedInt = 0x1405
	// Float is the component type of float32 vertex attributes.
	Float = 0x1406

	// Primitive types.
	LineLoop  = 0x0002
	Triangles = 0x0004

	// Polygon rasterization (PolygonMode).
	FrontAndBack = 0x0408
	Line         = 0x1B01
	Fill         = 0x1B02

	// Buffer targets and usage hints.
	ArrayBuffer        = 0x8892
	ElementArrayBuffer = 0x8893
	StaticDraw         = 0x88E4
	DynamicDraw        = 0x88E8

	// Shader stages and object queries.
	FragmentShader = 0x8B30
	VertexShader   = 0x8B31
	CompileStatus  = 0x8B81
	LinkStatus     = 0x8B82
	InfoLogLength  = 0x8B84

	// Blending capabilities and factors.
	Blend            = 0x0BE2
	One              = 1
	SrcAlpha         = 0x0302
	OneMinusSrcAlpha = 0x0303

	// GetString parameters.
	//
	// Vendor returns the company responsible for the GL implementation.
	Vendor = 0x1F00
	// Renderer returns the name of the renderer.
	Renderer = 0x1F01
	// Version returns the GL version string of the current context.
	Version = 0x1F02
	// ShadingLanguageVersion returns the highest supported GLSL version.
	ShadingLanguageVersion = 0x8B8C

	// True is the GLint value of a successful status query.
	True = 1
)

// OpenGL describes the subset of OpenGL 3.3 core entry points used by the
// cell renderer.
//
// Implementations typically wrap platform-specific GL bindings. All methods are
// expected to operate on the currently current GL context for the calling thread.
type OpenGL interface {
	// ClearColor sets the clear color used by Clear when clearing the color buffer.
	ClearColor(r, g, b, a float32)

	// Clear clears buffers to preset values (e.g., ColorBufferBit).
	Clear(mask uint32)

	// Viewport sets the affine transformation of x and y from normalized device
	// coordinates to window coordinates.
	Viewport(x, y, width, height int32)

	// Enable enables a server-side GL capability (e.g., Blend).
	Enable(cap uint32)

	// Disable disables a server-side GL capability.
	Disable(cap uint32)

	// BlendFunc specifies the pixel arithmetic for blending.
	BlendFunc(sfactor, dfactor uint32)

	// PolygonMode selects how polygons are rasterized (Fill or Line).
	// Core profiles only accept FrontAndBack as face.
	PolygonMode(face, mode uint32)

	// GenTextures generates texture object names.
	GenTextures(n int32, textures *uint32)

	// DeleteTextures deletes named textures.
	DeleteTextures(n int32, textures *uint32)

	// ActiveTexture selects the active texture unit (Texture0 + n).
	ActiveTexture(texture uint32)

	// BindTexture binds a named texture to a texturing target (e.g., Texture2D).
	BindTexture(target, texture uint32)

	// TexImage2D specifies a two-dimensional texture image.
	//
	// The pixels pointer may be nil to allocate storage without uploading data.
	TexImage2D(
		target uint32,
		level int32,
		internalformat int32,
		width int32,
		height int32,
		border int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// TexParameteri sets texture parameters for the currently bound texture.
	TexParameteri(target, pname uint32, param int32)

	// PixelStorei sets pixel storage modes (e.g., UnpackAlignment).
	PixelStorei(pname uint32, param int32)

	// GenBuffers generates buffer object names.
	GenBuffers(n int32, buffers *uint32)

	// DeleteBuffers deletes named buffer objects.
	DeleteBuffers(n int32, buffers *uint32)

	// BindBuffer binds a buffer object to a target (ArrayBuffer, ElementArrayBuffer).
	BindBuffer(target, buffer uint32)

	// BufferData creates and initializes the data store of the bound buffer.
	// data may be nil to only allocate size bytes.
	BufferData(target uint32, size int, data unsafe.Pointer, usage uint32)

	// BufferSubData updates a range of the bound buffer's data store.
	BufferSubData(target uint32, offset int, size int, data unsafe.Pointer)

	// GenVertexArrays generates vertex array object names.
	GenVertexArrays(n int32, arrays *uint32)

	// DeleteVertexArrays deletes named vertex array objects.
	DeleteVertexArrays(n int32, arrays *uint32)

	// BindVertexArray binds a vertex array object; 0 unbinds.
	BindVertexArray(array uint32)

	// VertexAttribPointerWithOffset defines an array of generic vertex
	// attribute data at offset bytes into the bound ArrayBuffer.
	VertexAttribPointerWithOffset(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr)

	// EnableVertexAttribArray enables a generic vertex attribute array.
	EnableVertexAttribArray(index uint32)

	// VertexAttribDivisor sets how many instances pass before the attribute advances.
	VertexAttribDivisor(index, divisor uint32)

	// DrawElementsInstanced renders instancecount instances of count indices
	// read at offset bytes into the bound ElementArrayBuffer.
	DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset uintptr, instancecount int32)

	// CreateShader creates an empty shader object of the given stage.
	CreateShader(xtype uint32) uint32

	// ShaderSource replaces the source code of a shader object.
	ShaderSource(shader uint32, source string)

	// CompileShader compiles a shader object.
	CompileShader(shader uint32)

	// GetShaderiv returns a parameter from a shader object.
	GetShaderiv(shader uint32, pname uint32, params *int32)

	// GetShaderInfoLog returns the information log of a shader object.
	GetShaderInfoLog(shader uint32) string

	// DeleteShader deletes a shader object.
	DeleteShader(shader uint32)

	// CreateProgram creates an empty program object.
	CreateProgram() uint32

	// AttachShader attaches a shader object to a program object.
	AttachShader(program, shader uint32)

	// DetachShader detaches a shader object from a program object.
	DetachShader(program, shader uint32)

	// LinkProgram links a program object.
	LinkProgram(program uint32)

	// GetProgramiv returns a parameter from a program object.
	GetProgramiv(program uint32, pname uint32, params *int32)

	// GetProgramInfoLog returns the information log of a program object.
	GetProgramInfoLog(program uint32) string

	// UseProgram installs a program object as part of current rendering state.
	UseProgram(program uint32)

	// DeleteProgram deletes a program object.
	DeleteProgram(program uint32)

	// GetUniformLocation returns the location of a uniform variable, or -1.
	GetUniformLocation(program uint32, name string) int32

	// Uniform1i sets an int uniform of the current program.
	Uniform1i(location int32, v0 int32)

	// Uniform2f sets a vec2 uniform of the current program.
	Uniform2f(location int32, v0, v1 float32)

	// ReadPixels reads a block of pixels from the framebuffer into client memory.
	ReadPixels(
		x int32,
		y int32,
		width int32,
		height int32,
		format uint32,
		xtype uint32,
		pixels unsafe.Pointer,
	)

	// GetString returns a string describing a GL property for the current context.
	//
	// Common names are Vendor and Version.
	// If the name is not recognized or no context is current, implementations may
	// return the empty string.
	GetString(name uint32) string
}

func gostring(ptr *byte) string {
	if ptr == nil {
		return ""
	}
	var bytes []byte
	for p := ptr; *p != 0; p = (*byte)(unsafe.Add(unsafe.Pointer(p), 1)) {
		bytes = append(bytes, *p)
	}
	return string(bytes)
}

func cString(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}
