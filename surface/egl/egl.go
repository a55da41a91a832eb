// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux || freebsd || openbsd || windows

// Package egl implements a surface.Driver on top of EGL and OpenGL ES.
package egl

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"gioui.org/glthread/internal/gl"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/internal/refcount"
	"gioui.org/glthread/surface"
)

// Driver opens EGL displays for one native display.
type Driver struct {
	disp NativeDisplayType
	caps surface.Capabilities
	log  *logrus.Entry
	// logged is set once the GL renderer has been logged.
	logged sync.Once
}

// Option configures a Driver.
type Option func(d *Driver)

// Window is a native window. Resize must be called when the native
// window changes size.
type Window struct {
	native NativeWindowType

	mu   sync.Mutex
	size image.Point
}

type device struct {
	d     *Driver
	disp  _EGLDisplay
	srgb  bool
	cfg   _EGLConfig
	ctx   _EGLContext
	surf  _EGLSurface
	funcs *gl.Functions
}

// displays counts the open devices of each EGL display. eglInitialize
// is not reference counted, and eglTerminate would invalidate every
// context on the display.
var displays refcount.Map[_EGLDisplay]

var (
	nilEGLDisplay _EGLDisplay
	nilEGLSurface _EGLSurface
	nilEGLContext _EGLContext
	nilEGLConfig  _EGLConfig
)

const (
	_EGL_ALPHA_SIZE             = 0x3021
	_EGL_BLUE_SIZE              = 0x3022
	_EGL_CONFIG_CAVEAT          = 0x3027
	_EGL_CONTEXT_CLIENT_VERSION = 0x3098
	_EGL_CONTEXT_LOST           = 0x300e
	_EGL_DEPTH_SIZE             = 0x3025
	_EGL_GL_COLORSPACE_KHR      = 0x309d
	_EGL_GL_COLORSPACE_SRGB_KHR = 0x3089
	_EGL_GREEN_SIZE             = 0x3023
	_EGL_EXTENSIONS             = 0x3055
	_EGL_NATIVE_VISUAL_ID       = 0x302e
	_EGL_NONE                   = 0x3038
	_EGL_OPENGL_ES2_BIT         = 0x4
	_EGL_RED_SIZE               = 0x3024
	_EGL_RENDERABLE_TYPE        = 0x3040
	_EGL_STENCIL_SIZE           = 0x3026
	_EGL_SURFACE_TYPE           = 0x3033
	_EGL_WINDOW_BIT             = 0x4
)

// WithCapabilities overrides the capabilities reported for the device.
// EGL allows any number of contexts unless told otherwise.
func WithCapabilities(c surface.Capabilities) Option {
	return func(d *Driver) {
		d.caps = c
	}
}

// NewDriver returns a driver for the native display disp.
func NewDriver(disp NativeDisplayType, opts ...Option) *Driver {
	d := &Driver{
		disp: disp,
		caps: surface.Capabilities{MultipleContexts: true},
		log:  ilog.New("egl"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// NewWindow returns a Window for the native window win of the given size.
func NewWindow(win NativeWindowType, width, height int) *Window {
	return &Window{native: win, size: image.Pt(width, height)}
}

// Size implements surface.Window.
func (w *Window) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Resize records a new window size.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size = image.Pt(width, height)
}

func (d *Driver) Open() (surface.Device, error) {
	if err := loadEGL(); err != nil {
		return nil, err
	}
	if err := gl.Load(); err != nil {
		return nil, err
	}
	disp := eglGetDisplay(d.disp)
	if disp == nilEGLDisplay {
		return nil, fmt.Errorf("eglGetDisplay failed: 0x%x", eglGetError())
	}
	var major, minor _EGLint
	err := displays.Acquire(disp, func() error {
		var ok bool
		major, minor, ok = eglInitialize(disp)
		if !ok {
			return fmt.Errorf("eglInitialize failed: 0x%x", eglGetError())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// sRGB framebuffer support on EGL 1.5 or if EGL_KHR_gl_colorspace is supported.
	exts := strings.Split(eglQueryString(disp, _EGL_EXTENSIONS), " ")
	srgb := major > 1 || minor >= 5 || hasExtension(exts, "EGL_KHR_gl_colorspace")
	return &device{d: d, disp: disp, srgb: srgb, funcs: new(gl.Functions)}, nil
}

func hasExtension(exts []string, ext string) bool {
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (dev *device) ChooseConfig(spec surface.ConfigSpec) (surface.Config, error) {
	attribs := []_EGLint{
		_EGL_RENDERABLE_TYPE, _EGL_OPENGL_ES2_BIT,
		_EGL_SURFACE_TYPE, _EGL_WINDOW_BIT,
		_EGL_RED_SIZE, _EGLint(spec.Red),
		_EGL_GREEN_SIZE, _EGLint(spec.Green),
		_EGL_BLUE_SIZE, _EGLint(spec.Blue),
		_EGL_DEPTH_SIZE, _EGLint(spec.Depth),
		_EGL_STENCIL_SIZE, _EGLint(spec.Stencil),
		_EGL_CONFIG_CAVEAT, _EGL_NONE,
	}
	alpha := spec.Alpha
	if dev.srgb && runtime.GOOS == "linux" && alpha == 0 {
		// Some Mesa drivers crash if an sRGB framebuffer is requested without alpha.
		// https://bugs.freedesktop.org/show_bug.cgi?id=107782.
		alpha = 1
	}
	attribs = append(attribs, _EGL_ALPHA_SIZE, _EGLint(alpha), _EGL_NONE)
	cfg, ok := eglChooseConfig(dev.disp, attribs)
	if !ok {
		return surface.Config{}, fmt.Errorf("eglChooseConfig failed: 0x%x", eglGetError())
	}
	if cfg == nilEGLConfig {
		return surface.Config{}, errors.New("eglChooseConfig returned 0 configs")
	}
	dev.cfg = cfg
	c := surface.Config{ConfigSpec: spec, SRGB: dev.srgb}
	attrib := func(a _EGLint) int {
		v, _ := eglGetConfigAttrib(dev.disp, cfg, a)
		return int(v)
	}
	c.Red = attrib(_EGL_RED_SIZE)
	c.Green = attrib(_EGL_GREEN_SIZE)
	c.Blue = attrib(_EGL_BLUE_SIZE)
	c.Alpha = attrib(_EGL_ALPHA_SIZE)
	c.Depth = attrib(_EGL_DEPTH_SIZE)
	c.Stencil = attrib(_EGL_STENCIL_SIZE)
	visID, ok := eglGetConfigAttrib(dev.disp, cfg, _EGL_NATIVE_VISUAL_ID)
	if !ok {
		return surface.Config{}, errors.New("eglGetConfigAttrib for _EGL_NATIVE_VISUAL_ID failed")
	}
	c.VisualID = int(visID)
	return c, nil
}

func (dev *device) CreateContext(cfg surface.Config) error {
	versions := []int{3, 2}
	if v := cfg.ClientVersion; v != 0 {
		versions = []int{v}
	}
	for _, v := range versions {
		attribs := []_EGLint{
			_EGL_CONTEXT_CLIENT_VERSION, _EGLint(v),
			_EGL_NONE,
		}
		if ctx := eglCreateContext(dev.disp, dev.cfg, nilEGLContext, attribs); ctx != nilEGLContext {
			dev.ctx = ctx
			return nil
		}
	}
	return fmt.Errorf("eglCreateContext failed: 0x%x", eglGetError())
}

func (dev *device) DestroyContext() {
	if dev.ctx == nilEGLContext {
		return
	}
	eglMakeCurrent(dev.disp, nilEGLSurface, nilEGLSurface, nilEGLContext)
	eglDestroyContext(dev.disp, dev.ctx)
	dev.ctx = nilEGLContext
}

func (dev *device) CreateSurface(win surface.Window) error {
	w, ok := win.(*Window)
	if !ok {
		return fmt.Errorf("egl: unsupported window type %T", win)
	}
	if dev.ctx == nilEGLContext {
		return surface.ErrNoContext
	}
	dev.DestroySurface()
	var attribs []_EGLint
	if dev.srgb {
		attribs = append(attribs, _EGL_GL_COLORSPACE_KHR, _EGL_GL_COLORSPACE_SRGB_KHR)
	}
	attribs = append(attribs, _EGL_NONE)
	surf := eglCreateWindowSurface(dev.disp, dev.cfg, w.native, attribs)
	if surf == nilEGLSurface && dev.srgb {
		// Try again without sRGB.
		dev.srgb = false
		surf = eglCreateWindowSurface(dev.disp, dev.cfg, w.native, []_EGLint{_EGL_NONE})
	}
	if surf == nilEGLSurface {
		return fmt.Errorf("eglCreateWindowSurface failed 0x%x (sRGB=%v)", eglGetError(), dev.srgb)
	}
	dev.surf = surf
	if !eglMakeCurrent(dev.disp, surf, surf, dev.ctx) {
		err := fmt.Errorf("eglMakeCurrent error 0x%x", eglGetError())
		dev.DestroySurface()
		return err
	}
	// The render thread paces itself; never block in eglSwapBuffers.
	eglSwapInterval(dev.disp, 0)
	dev.d.logged.Do(func() {
		dev.d.log.WithFields(logrus.Fields{
			"vendor":   dev.funcs.GetString(gl.VENDOR),
			"renderer": dev.funcs.GetString(gl.RENDERER),
			"version":  dev.funcs.GetString(gl.VERSION),
		}).Info("GL context")
	})
	return nil
}

func (dev *device) DestroySurface() {
	if dev.surf == nilEGLSurface {
		return
	}
	// Make sure any in-flight GL commands are complete.
	dev.funcs.Finish()
	eglMakeCurrent(dev.disp, nilEGLSurface, nilEGLSurface, nilEGLContext)
	eglDestroySurface(dev.disp, dev.surf)
	dev.surf = nilEGLSurface
}

func (dev *device) SwapBuffers() error {
	if dev.surf == nilEGLSurface {
		return errors.New("egl: no surface")
	}
	if eglSwapBuffers(dev.disp, dev.surf) {
		return nil
	}
	code := eglGetError()
	if code == _EGL_CONTEXT_LOST {
		return fmt.Errorf("eglSwapBuffers: %w", surface.ErrContextLost)
	}
	return fmt.Errorf("eglSwapBuffers failed (%x)", code)
}

func (dev *device) Capabilities() (surface.Capabilities, error) {
	return dev.d.caps, nil
}

func (dev *device) Close() {
	dev.DestroySurface()
	dev.DestroyContext()
	// Other devices may share the display.
	displays.Release(dev.disp, func() {
		eglTerminate(dev.disp)
	})
	eglReleaseThread()
}
