//go:build linux

package window

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/tinyrange/celltext/internal/gl"
)

const (
	glxRGBA         = 4
	glxDoubleBuffer = 5
	glxRedSize      = 8
	glxGreenSize    = 9
	glxBlueSize     = 10
	glxAlphaSize    = 11
	glxDepthSize    = 12
	glxNone         = 0

	glxDrawableType = 0x8010
	glxRenderType   = 0x8011
	glxXRenderable  = 0x8012
	glxWindowBit    = 1
	glxRGBABit      = 1

	glxContextMajorVersion = 0x2091
	glxContextMinorVersion = 0x2092
	glxContextProfileMask  = 0x9126
	glxContextCoreBit      = 1

	inputOutput = 1

	keyPressMask        = 1 << 0
	exposureMask        = 1 << 15
	structureNotifyMask = 1 << 17

	keyPress        = 2
	expose          = 12
	destroyNotify   = 17
	configureNotify = 22
	clientMessage   = 33

	xkEscape = 0xff1b
	xkF5     = 0xffc2
	xkQ      = 0x0071
)

type xVisualInfo struct {
	Visual       uintptr
	VisualID     uint64
	Screen       int32
	Depth        int32
	Class        int32
	RedMask      uint64
	GreenMask    uint64
	BlueMask     uint64
	ColormapSize int32
	BitsPerRGB   int32
}

type xSetWindowAttributes struct {
	BackgroundPixmap uintptr
	BackgroundPixel  uint64
	BorderPixmap     uint64
	BorderPixel      uint64
	BitGravity       int32
	WinGravity       int32
	BackingStore     int32
	BackingPlanes    uint64
	BackingPixel     uint64
	SaveUnder        int32
	EventMask        int64
	DoNotPropagate   int64
	OverrideRedirect int32
	Colormap         uintptr
	Cursor           uintptr
}

type xClientMessageEvent struct {
	Type        int32
	Serial      uint64
	SendEvent   int32
	Display     uintptr
	Window      uintptr
	MessageType uintptr
	Format      int32
	Data        [5]uint64
}

type xConfigureEvent struct {
	Type             int32
	Serial           uint64
	SendEvent        int32
	Display          uintptr
	Event            uintptr
	Window           uintptr
	X, Y             int32
	Width, Height    int32
	BorderWidth      int32
	Above            uintptr
	OverrideRedirect int32
}

type xExposeEvent struct {
	Type          int32
	Serial        uint64
	SendEvent     int32
	Display       uintptr
	Window        uintptr
	X, Y          int32
	Width, Height int32
	Count         int32
}

var (
	x11lib uintptr
	gllib  uintptr

	xOpenDisplay           func(*byte) uintptr
	xDefaultScreen         func(uintptr) int32
	xRootWindow            func(uintptr, int32) uintptr
	xCreateColormap        func(uintptr, uintptr, uintptr, int32) uintptr
	xCreateWindow          func(uintptr, uintptr, int32, int32, uint32, uint32, uint32, int32, uint32, uintptr, uint64, unsafe.Pointer) uintptr
	xMapWindow             func(uintptr, uintptr) int32
	xStoreName             func(uintptr, uintptr, *byte) int32
	xResizeWindow          func(uintptr, uintptr, uint32, uint32) int32
	xInternAtom            func(uintptr, *byte, int32) uintptr
	xSetWMProtocols        func(uintptr, uintptr, *uintptr, int32) int32
	xSelectInput           func(uintptr, uintptr, int64)
	xPending               func(uintptr) int32
	xNextEvent             func(uintptr, unsafe.Pointer)
	xLookupKeysym          func(unsafe.Pointer, int32) uint64
	xGetGeometry           func(uintptr, uintptr, *uintptr, *int32, *int32, *uint32, *uint32, *uint32, *uint32) int32
	xFlush                 func(uintptr) int32
	xFree                  func(unsafe.Pointer) int32
	xDestroyWindow         func(uintptr, uintptr) int32
	xCloseDisplay          func(uintptr) int32
	xDisplayWidth          func(uintptr, int32) int32
	xDisplayWidthMM        func(uintptr, int32) int32
	xResourceManagerString func(uintptr) *byte

	glxChooseVisual            func(uintptr, int32, *int32) *xVisualInfo
	glxChooseFBConfig          func(uintptr, int32, *int32, *int32) *uintptr
	glxGetVisualFromFBConfig   func(uintptr, uintptr) *xVisualInfo
	glxCreateContext           func(uintptr, *xVisualInfo, uintptr, int32) uintptr
	glxCreateContextAttribsARB func(uintptr, uintptr, uintptr, int32, *int32) uintptr
	glxMakeCurrent             func(uintptr, uintptr, uintptr) int32
	glxSwapBuffers             func(uintptr, uintptr)
	glxDestroyContext          func(uintptr, uintptr)
	glxGetProcAddressARB       func(*byte) uintptr
)

type x11Window struct {
	display  uintptr
	window   uintptr
	ctx      uintptr
	wmDelete uintptr
	running  bool
	scale    float32

	width, height int32
}

// New opens a window of width x height pixels titled title and makes its
// GL context current. The calling goroutine stays locked to its thread
// until Close.
func New(title string, width, height int) (Window, error) {
	runtime.LockOSThread()
	w, err := open(title, width, height)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return w, nil
}

func open(title string, width, height int) (*x11Window, error) {
	if err := ensureLibs(); err != nil {
		return nil, err
	}

	dpy := xOpenDisplay(nil)
	if dpy == 0 {
		return nil, errors.New("XOpenDisplay failed")
	}
	screen := xDefaultScreen(dpy)
	root := xRootWindow(dpy, screen)

	visual, fbconfig := chooseVisual(dpy, screen)
	if visual == nil {
		xCloseDisplay(dpy)
		return nil, errors.New("no GLX visual with double buffering")
	}
	defer xFree(unsafe.Pointer(visual))

	var swa xSetWindowAttributes
	swa.Colormap = xCreateColormap(dpy, root, visual.Visual, 0)
	swa.EventMask = exposureMask | structureNotifyMask | keyPressMask

	const (
		cwBorderPixel = 1 << 3
		cwEventMask   = 1 << 11
		cwColormap    = 1 << 13
	)
	win := xCreateWindow(
		dpy, root,
		0, 0,
		uint32(width), uint32(height),
		0,
		visual.Depth,
		inputOutput,
		visual.Visual,
		cwBorderPixel|cwColormap|cwEventMask,
		unsafe.Pointer(&swa),
	)
	if win == 0 {
		xCloseDisplay(dpy)
		return nil, errors.New("XCreateWindow failed")
	}
	xSelectInput(dpy, win, swa.EventMask)
	xStoreName(dpy, win, cString(title))
	xMapWindow(dpy, win)

	wmDelete := xInternAtom(dpy, cString("WM_DELETE_WINDOW"), 0)
	xSetWMProtocols(dpy, win, &wmDelete, 1)

	ctx := createContext(dpy, visual, fbconfig)
	if ctx == 0 {
		xDestroyWindow(dpy, win)
		xCloseDisplay(dpy)
		return nil, errors.New("glXCreateContext failed")
	}
	if glxMakeCurrent(dpy, win, ctx) == 0 {
		glxDestroyContext(dpy, ctx)
		xDestroyWindow(dpy, win)
		xCloseDisplay(dpy)
		return nil, errors.New("glXMakeCurrent failed")
	}

	return &x11Window{
		display:  dpy,
		window:   win,
		ctx:      ctx,
		wmDelete: wmDelete,
		running:  true,
		scale:    calculateScale(dpy, screen),
		width:    int32(width),
		height:   int32(height),
	}, nil
}

// chooseVisual prefers a framebuffer config, which a core profile context
// needs, and falls back to glXChooseVisual.
func chooseVisual(dpy uintptr, screen int32) (*xVisualInfo, uintptr) {
	if glxChooseFBConfig != nil && glxGetVisualFromFBConfig != nil {
		attrs := []int32{
			glxXRenderable, 1,
			glxDrawableType, glxWindowBit,
			glxRenderType, glxRGBABit,
			glxRedSize, 8,
			glxGreenSize, 8,
			glxBlueSize, 8,
			glxAlphaSize, 8,
			glxDepthSize, 24,
			glxDoubleBuffer, 1,
			glxNone,
		}
		var n int32
		configs := glxChooseFBConfig(dpy, screen, &attrs[0], &n)
		if configs != nil && n > 0 {
			fb := *configs
			xFree(unsafe.Pointer(configs))
			if vi := glxGetVisualFromFBConfig(dpy, fb); vi != nil {
				return vi, fb
			}
		}
	}

	attrs := []int32{glxRGBA, glxDoubleBuffer, glxDepthSize, 24, glxNone}
	return glxChooseVisual(dpy, screen, &attrs[0]), 0
}

func createContext(dpy uintptr, visual *xVisualInfo, fbconfig uintptr) uintptr {
	if fbconfig != 0 && glxCreateContextAttribsARB != nil {
		attrs := []int32{
			glxContextMajorVersion, 3,
			glxContextMinorVersion, 3,
			glxContextProfileMask, glxContextCoreBit,
			glxNone,
		}
		if ctx := glxCreateContextAttribsARB(dpy, fbconfig, 0, 1, &attrs[0]); ctx != 0 {
			return ctx
		}
	}
	return glxCreateContext(dpy, visual, 0, 1)
}

func (w *x11Window) GL() (gl.OpenGL, error) {
	return gl.Load()
}

func (w *x11Window) Close() {
	if w.display == 0 {
		return
	}
	if w.ctx != 0 {
		glxMakeCurrent(w.display, 0, 0)
		glxDestroyContext(w.display, w.ctx)
		w.ctx = 0
	}
	if w.window != 0 {
		xDestroyWindow(w.display, w.window)
		w.window = 0
	}
	xCloseDisplay(w.display)
	w.display = 0
	w.running = false
	runtime.UnlockOSThread()
}

func (w *x11Window) Poll(handle func(Event)) bool {
	if !w.running {
		return false
	}
	if handle == nil {
		handle = func(Event) {}
	}

	for w.running && xPending(w.display) > 0 {
		var ev [192]byte
		xNextEvent(w.display, unsafe.Pointer(&ev[0]))
		switch *(*int32)(unsafe.Pointer(&ev[0])) {
		case configureNotify:
			ce := (*xConfigureEvent)(unsafe.Pointer(&ev[0]))
			if ce.Width == w.width && ce.Height == w.height {
				continue
			}
			w.width, w.height = ce.Width, ce.Height
			handle(Event{Type: EventResize, Width: int(ce.Width), Height: int(ce.Height)})
		case expose:
			if (*xExposeEvent)(unsafe.Pointer(&ev[0])).Count == 0 {
				handle(Event{Type: EventExpose})
			}
		case keyPress:
			handle(Event{Type: EventKey, Key: keyFromSym(xLookupKeysym(unsafe.Pointer(&ev[0]), 0))})
		case clientMessage:
			cm := (*xClientMessageEvent)(unsafe.Pointer(&ev[0]))
			if cm.Format == 32 && cm.Data[0] == uint64(w.wmDelete) {
				w.running = false
				handle(Event{Type: EventClose})
			}
		case destroyNotify:
			w.running = false
			handle(Event{Type: EventClose})
		}
	}
	return w.running
}

func keyFromSym(sym uint64) Key {
	switch sym {
	case xkEscape:
		return KeyEscape
	case xkQ:
		return KeyQ
	case xkF5:
		return KeyF5
	}
	return KeyUnknown
}

func (w *x11Window) Swap() {
	if w.display != 0 && w.window != 0 {
		glxSwapBuffers(w.display, w.window)
	}
}

func (w *x11Window) BackingSize() (int, int) {
	var root uintptr
	var x, y int32
	var width, height, border, depth uint32
	if xGetGeometry(w.display, w.window, &root, &x, &y, &width, &height, &border, &depth) == 0 {
		return 0, 0
	}
	return int(width), int(height)
}

func (w *x11Window) Scale() float32 {
	return w.scale
}

func (w *x11Window) SetTitle(title string) {
	xStoreName(w.display, w.window, cString(title))
	xFlush(w.display)
}

func (w *x11Window) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	xResizeWindow(w.display, w.window, uint32(width), uint32(height))
	xFlush(w.display)
}

// calculateScale tries, in order, the toolkit scale variables, Xft.dpi from
// the X resources and the physical screen density. It defaults to 1.
func calculateScale(dpy uintptr, screen int32) float32 {
	if s := envScale(nil); s > 0 {
		return roundScale(s)
	}
	if xResourceManagerString != nil {
		if dpi := parseXftDPI(gostring(xResourceManagerString(dpy))); dpi > 0 {
			return roundScale(dpi / 96)
		}
	}
	if s := dpiScale(xDisplayWidth(dpy, screen), xDisplayWidthMM(dpy, screen)); s > 0 {
		return roundScale(s)
	}
	return 1
}

func ensureLibs() error {
	var err error
	if x11lib == 0 {
		x11lib, err = purego.Dlopen("libX11.so.6", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			return fmt.Errorf("load libX11: %w", err)
		}
		registerX11()
	}
	if gllib == 0 {
		gllib, err = purego.Dlopen("libGL.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			return fmt.Errorf("load libGL: %w", err)
		}
		registerGLX()
	}
	return nil
}

func registerX11() {
	purego.RegisterLibFunc(&xOpenDisplay, x11lib, "XOpenDisplay")
	purego.RegisterLibFunc(&xDefaultScreen, x11lib, "XDefaultScreen")
	purego.RegisterLibFunc(&xRootWindow, x11lib, "XRootWindow")
	purego.RegisterLibFunc(&xCreateColormap, x11lib, "XCreateColormap")
	purego.RegisterLibFunc(&xCreateWindow, x11lib, "XCreateWindow")
	purego.RegisterLibFunc(&xMapWindow, x11lib, "XMapWindow")
	purego.RegisterLibFunc(&xStoreName, x11lib, "XStoreName")
	purego.RegisterLibFunc(&xResizeWindow, x11lib, "XResizeWindow")
	purego.RegisterLibFunc(&xInternAtom, x11lib, "XInternAtom")
	purego.RegisterLibFunc(&xSetWMProtocols, x11lib, "XSetWMProtocols")
	purego.RegisterLibFunc(&xSelectInput, x11lib, "XSelectInput")
	purego.RegisterLibFunc(&xPending, x11lib, "XPending")
	purego.RegisterLibFunc(&xNextEvent, x11lib, "XNextEvent")
	purego.RegisterLibFunc(&xLookupKeysym, x11lib, "XLookupKeysym")
	purego.RegisterLibFunc(&xGetGeometry, x11lib, "XGetGeometry")
	purego.RegisterLibFunc(&xFlush, x11lib, "XFlush")
	purego.RegisterLibFunc(&xFree, x11lib, "XFree")
	purego.RegisterLibFunc(&xDestroyWindow, x11lib, "XDestroyWindow")
	purego.RegisterLibFunc(&xCloseDisplay, x11lib, "XCloseDisplay")
	purego.RegisterLibFunc(&xDisplayWidth, x11lib, "XDisplayWidth")
	purego.RegisterLibFunc(&xDisplayWidthMM, x11lib, "XDisplayWidthMM")
	if _, err := purego.Dlsym(x11lib, "XResourceManagerString"); err == nil {
		purego.RegisterLibFunc(&xResourceManagerString, x11lib, "XResourceManagerString")
	}
}

func registerGLX() {
	purego.RegisterLibFunc(&glxChooseVisual, gllib, "glXChooseVisual")
	purego.RegisterLibFunc(&glxCreateContext, gllib, "glXCreateContext")
	purego.RegisterLibFunc(&glxMakeCurrent, gllib, "glXMakeCurrent")
	purego.RegisterLibFunc(&glxSwapBuffers, gllib, "glXSwapBuffers")
	purego.RegisterLibFunc(&glxDestroyContext, gllib, "glXDestroyContext")
	purego.RegisterLibFunc(&glxGetProcAddressARB, gllib, "glXGetProcAddressARB")

	// GLX 1.3 entry points; absent on very old stacks.
	if _, err := purego.Dlsym(gllib, "glXChooseFBConfig"); err == nil {
		purego.RegisterLibFunc(&glxChooseFBConfig, gllib, "glXChooseFBConfig")
		purego.RegisterLibFunc(&glxGetVisualFromFBConfig, gllib, "glXGetVisualFromFBConfig")
	}
	if fn := glxGetProcAddressARB(cString("glXCreateContextAttribsARB")); fn != 0 {
		purego.RegisterFunc(&glxCreateContextAttribsARB, fn)
	}
}

func cString(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

func gostring(ptr *byte) string {
	if ptr == nil {
		return ""
	}
	var b []byte
	for p := ptr; *p != 0; p = (*byte)(unsafe.Add(unsafe.Pointer(p), 1)) {
		b = append(b, *p)
	}
	return string(b)
}
