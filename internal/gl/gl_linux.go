//go:build linux

package gl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
)

// libGL exports the 1.x entry points directly; everything newer is resolved
// through glXGetProcAddressARB when the symbol is not exported.
type openGL struct {
	clearColor     func(float32, float32, float32, float32)
	clear          func(uint32)
	viewport       func(int32, int32, int32, int32)
	enable         func(uint32)
	disable        func(uint32)
	blendFunc      func(uint32, uint32)
	polygonMode    func(uint32, uint32)
	genTextures    func(int32, *uint32)
	deleteTextures func(int32, *uint32)
	activeTexture  func(uint32)
	bindTexture    func(uint32, uint32)
	texImage2D     func(uint32, int32, int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	texParameteri  func(uint32, uint32, int32)
	pixelStorei    func(uint32, int32)
	readPixels     func(int32, int32, int32, int32, uint32, uint32, unsafe.Pointer)
	getString      func(uint32) *byte

	genBuffers    func(int32, *uint32)
	deleteBuffers func(int32, *uint32)
	bindBuffer    func(uint32, uint32)
	bufferData    func(uint32, int, unsafe.Pointer, uint32)
	bufferSubData func(uint32, int, int, unsafe.Pointer)

	genVertexArrays         func(int32, *uint32)
	deleteVertexArrays      func(int32, *uint32)
	bindVertexArray         func(uint32)
	vertexAttribPointer     func(uint32, int32, uint32, bool, int32, uintptr)
	enableVertexAttribArray func(uint32)
	vertexAttribDivisor     func(uint32, uint32)
	drawElementsInstanced   func(uint32, int32, uint32, uintptr, int32)

	createShader     func(uint32) uint32
	shaderSource     func(uint32, int32, **byte, *int32)
	compileShader    func(uint32)
	getShaderiv      func(uint32, uint32, *int32)
	getShaderInfoLog func(uint32, int32, *int32, *byte)
	deleteShader     func(uint32)

	createProgram     func() uint32
	attachShader      func(uint32, uint32)
	detachShader      func(uint32, uint32)
	linkProgram       func(uint32)
	getProgramiv      func(uint32, uint32, *int32)
	getProgramInfoLog func(uint32, int32, *int32, *byte)
	useProgram        func(uint32)
	deleteProgram     func(uint32)

	getUniformLocation func(uint32, *byte) int32
	uniform1i          func(int32, int32)
	uniform2f          func(int32, float32, float32)
}

func (gl *openGL) ClearColor(r, g, b, a float32) { gl.clearColor(r, g, b, a) }
func (gl *openGL) Clear(mask uint32)             { gl.clear(mask) }
func (gl *openGL) Enable(cap uint32)             { gl.enable(cap) }
func (gl *openGL) Disable(cap uint32)            { gl.disable(cap) }

func (gl *openGL) Viewport(x, y, width, height int32) {
	gl.viewport(x, y, width, height)
}

func (gl *openGL) BlendFunc(sfactor, dfactor uint32) {
	gl.blendFunc(sfactor, dfactor)
}

func (gl *openGL) PolygonMode(face, mode uint32) {
	gl.polygonMode(face, mode)
}

func (gl *openGL) GenTextures(n int32, textures *uint32) {
	gl.genTextures(n, textures)
}

func (gl *openGL) DeleteTextures(n int32, textures *uint32) {
	gl.deleteTextures(n, textures)
}

func (gl *openGL) ActiveTexture(texture uint32) {
	gl.activeTexture(texture)
}

func (gl *openGL) BindTexture(target, texture uint32) {
	gl.bindTexture(target, texture)
}

func (gl *openGL) TexImage2D(target uint32, level, internalFormat, width, height, border int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.texImage2D(target, level, internalFormat, width, height, border, format, xtype, pixels)
}

func (gl *openGL) TexParameteri(target, pname uint32, param int32) {
	gl.texParameteri(target, pname, param)
}

func (gl *openGL) PixelStorei(pname uint32, param int32) {
	gl.pixelStorei(pname, param)
}

func (gl *openGL) ReadPixels(x, y, width, height int32, format, xtype uint32, pixels unsafe.Pointer) {
	gl.readPixels(x, y, width, height, format, xtype, pixels)
}

func (gl *openGL) GetString(name uint32) string {
	return gostring(gl.getString(name))
}

func (gl *openGL) GenBuffers(n int32, buffers *uint32) {
	gl.genBuffers(n, buffers)
}

func (gl *openGL) DeleteBuffers(n int32, buffers *uint32) {
	gl.deleteBuffers(n, buffers)
}

func (gl *openGL) BindBuffer(target uint32, buffer uint32) {
	gl.bindBuffer(target, buffer)
}

func (gl *openGL) BufferData(target uint32, size int, data unsafe.Pointer, usage uint32) {
	gl.bufferData(target, size, data, usage)
}

func (gl *openGL) BufferSubData(target uint32, offset int, size int, data unsafe.Pointer) {
	gl.bufferSubData(target, offset, size, data)
}

func (gl *openGL) GenVertexArrays(n int32, arrays *uint32) {
	gl.genVertexArrays(n, arrays)
}

func (gl *openGL) DeleteVertexArrays(n int32, arrays *uint32) {
	gl.deleteVertexArrays(n, arrays)
}

func (gl *openGL) BindVertexArray(array uint32) {
	gl.bindVertexArray(array)
}

func (gl *openGL) VertexAttribPointerWithOffset(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr) {
	gl.vertexAttribPointer(index, size, xtype, normalized, stride, offset)
}

func (gl *openGL) EnableVertexAttribArray(index uint32) {
	gl.enableVertexAttribArray(index)
}

func (gl *openGL) VertexAttribDivisor(index, divisor uint32) {
	gl.vertexAttribDivisor(index, divisor)
}

func (gl *openGL) DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset uintptr, instancecount int32) {
	gl.drawElementsInstanced(mode, count, xtype, offset, instancecount)
}

func (gl *openGL) CreateShader(xtype uint32) uint32 {
	return gl.createShader(xtype)
}

func (gl *openGL) ShaderSource(shader uint32, source string) {
	src := cString(source)
	length := int32(len(source))
	gl.shaderSource(shader, 1, &src, &length)
}

func (gl *openGL) CompileShader(shader uint32) {
	gl.compileShader(shader)
}

func (gl *openGL) GetShaderiv(shader uint32, pname uint32, params *int32) {
	gl.getShaderiv(shader, pname, params)
}

func (gl *openGL) GetShaderInfoLog(shader uint32) string {
	var length int32
	gl.getShaderiv(shader, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.getShaderInfoLog(shader, length, &length, &log[0])
	return string(log[:length])
}

func (gl *openGL) DeleteShader(shader uint32) {
	gl.deleteShader(shader)
}

func (gl *openGL) CreateProgram() uint32 {
	return gl.createProgram()
}

func (gl *openGL) AttachShader(program uint32, shader uint32) {
	gl.attachShader(program, shader)
}

func (gl *openGL) DetachShader(program uint32, shader uint32) {
	gl.detachShader(program, shader)
}

func (gl *openGL) LinkProgram(program uint32) {
	gl.linkProgram(program)
}

func (gl *openGL) GetProgramiv(program uint32, pname uint32, params *int32) {
	gl.getProgramiv(program, pname, params)
}

func (gl *openGL) GetProgramInfoLog(program uint32) string {
	var length int32
	gl.getProgramiv(program, InfoLogLength, &length)
	if length == 0 {
		return ""
	}
	log := make([]byte, length)
	gl.getProgramInfoLog(program, length, &length, &log[0])
	return string(log[:length])
}

func (gl *openGL) UseProgram(program uint32) {
	gl.useProgram(program)
}

func (gl *openGL) DeleteProgram(program uint32) {
	gl.deleteProgram(program)
}

func (gl *openGL) GetUniformLocation(program uint32, name string) int32 {
	return gl.getUniformLocation(program, cString(name))
}

func (gl *openGL) Uniform1i(location int32, v0 int32) {
	gl.uniform1i(location, v0)
}

func (gl *openGL) Uniform2f(location int32, v0, v1 float32) {
	gl.uniform2f(location, v0, v1)
}

// Load binds the entry points of the GL context current on the calling
// thread. It fails listing every symbol that could not be resolved.
func Load() (OpenGL, error) {
	handle, err := purego.Dlopen("libGL.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("open libGL: %w", err)
	}

	var getProcAddress func(*byte) uintptr
	if sym, err := purego.Dlsym(handle, "glXGetProcAddressARB"); err == nil {
		purego.RegisterFunc(&getProcAddress, sym)
	}

	var missing []string
	register := func(dst interface{}, name string) {
		if sym, err := purego.Dlsym(handle, name); err == nil && sym != 0 {
			purego.RegisterFunc(dst, sym)
			return
		}
		if getProcAddress != nil {
			if sym := getProcAddress(cString(name)); sym != 0 {
				purego.RegisterFunc(dst, sym)
				return
			}
		}
		missing = append(missing, name)
	}

	gl := &openGL{}
	register(&gl.clearColor, "glClearColor")
	register(&gl.clear, "glClear")
	register(&gl.viewport, "glViewport")
	register(&gl.enable, "glEnable")
	register(&gl.disable, "glDisable")
	register(&gl.blendFunc, "glBlendFunc")
	register(&gl.polygonMode, "glPolygonMode")
	register(&gl.genTextures, "glGenTextures")
	register(&gl.deleteTextures, "glDeleteTextures")
	register(&gl.activeTexture, "glActiveTexture")
	register(&gl.bindTexture, "glBindTexture")
	register(&gl.texImage2D, "glTexImage2D")
	register(&gl.texParameteri, "glTexParameteri")
	register(&gl.pixelStorei, "glPixelStorei")
	register(&gl.readPixels, "glReadPixels")
	register(&gl.getString, "glGetString")

	register(&gl.genBuffers, "glGenBuffers")
	register(&gl.deleteBuffers, "glDeleteBuffers")
	register(&gl.bindBuffer, "glBindBuffer")
	register(&gl.bufferData, "glBufferData")
	register(&gl.bufferSubData, "glBufferSubData")
	register(&gl.genVertexArrays, "glGenVertexArrays")
	register(&gl.deleteVertexArrays, "glDeleteVertexArrays")
	register(&gl.bindVertexArray, "glBindVertexArray")
	register(&gl.vertexAttribPointer, "glVertexAttribPointer")
	register(&gl.enableVertexAttribArray, "glEnableVertexAttribArray")
	register(&gl.vertexAttribDivisor, "glVertexAttribDivisor")
	register(&gl.drawElementsInstanced, "glDrawElementsInstanced")

	register(&gl.createShader, "glCreateShader")
	register(&gl.shaderSource, "glShaderSource")
	register(&gl.compileShader, "glCompileShader")
	register(&gl.getShaderiv, "glGetShaderiv")
	register(&gl.getShaderInfoLog, "glGetShaderInfoLog")
	register(&gl.deleteShader, "glDeleteShader")
	register(&gl.createProgram, "glCreateProgram")
	register(&gl.attachShader, "glAttachShader")
	register(&gl.detachShader, "glDetachShader")
	register(&gl.linkProgram, "glLinkProgram")
	register(&gl.getProgramiv, "glGetProgramiv")
	register(&gl.getProgramInfoLog, "glGetProgramInfoLog")
	register(&gl.useProgram, "glUseProgram")
	register(&gl.deleteProgram, "glDeleteProgram")
	register(&gl.getUniformLocation, "glGetUniformLocation")
	register(&gl.uniform1i, "glUniform1i")
	register(&gl.uniform2f, "glUniform2f")

	if len(missing) > 0 {
		return nil, fmt.Errorf("libGL is missing %s", strings.Join(missing, ", "))
	}
	return gl, nil
}
