// SPDX-License-Identifier: Unlicense OR MIT

// Package headless implements a software surface.Driver that renders
// into images. It is used for tests and for running render threads
// without a display.
package headless

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"gioui.org/glthread/surface"
)

// Driver is a software surface.Driver. Its fault injection methods are
// safe for concurrent use with running sessions.
type Driver struct {
	mu       sync.Mutex
	caps     surface.Capabilities
	capsErr  error
	openErr  error
	hook     func(Event)
	nextID   int
	live     int
	maxLive  int
	failCtx  int
	failSurf int
	presents []error
	swaps    int
}

// Option configures a Driver.
type Option func(d *Driver)

// EventKind identifies a native operation of a headless device.
type EventKind uint8

// Event describes one native operation. Device identifies the device
// connection it happened on.
type Event struct {
	Kind   EventKind
	Device int
}

const (
	Opened EventKind = iota
	Closed
	ContextCreated
	ContextDestroyed
	SurfaceCreated
	SurfaceDestroyed
	Swapped
)

// Window is an in-memory window. The renderer draws into its back
// buffer and presented frames are copied into the window image.
type Window struct {
	mu     sync.Mutex
	img    *image.RGBA
	back   *image.RGBA
	frames int
}

type device struct {
	d    *Driver
	id   int
	cfg  surface.Config
	ctx  bool
	win  *Window
	curr bool
}

// WithCapabilities sets the capabilities reported by devices.
func WithCapabilities(c surface.Capabilities) Option {
	return func(d *Driver) {
		d.caps = c
	}
}

// WithCapabilitiesError makes devices fail the capability probe.
func WithCapabilitiesError(err error) Option {
	return func(d *Driver) {
		d.capsErr = err
	}
}

// WithEventHook registers f to receive every native operation. f is
// called on the render thread and must not block.
func WithEventHook(f func(Event)) Option {
	return func(d *Driver) {
		d.hook = f
	}
}

// NewDriver returns a driver whose devices report multi-context support
// unless configured otherwise.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		caps: surface.Capabilities{MultipleContexts: true},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FailOpen makes every later Open fail with err. A nil err clears the
// fault.
func (d *Driver) FailOpen(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr = err
}

// FailContexts makes the next n context creations fail.
func (d *Driver) FailContexts(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failCtx = n
}

// FailSurfaces makes the next n surface creations fail.
func (d *Driver) FailSurfaces(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failSurf = n
}

// FailPresent queues err as the result of a later SwapBuffers. Use
// surface.ErrContextLost to simulate context loss.
func (d *Driver) FailPresent(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presents = append(d.presents, err)
}

// LiveContexts returns the number of contexts currently alive.
func (d *Driver) LiveContexts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// MaxLiveContexts returns the largest number of simultaneously live
// contexts observed.
func (d *Driver) MaxLiveContexts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxLive
}

// Swaps returns the number of successful buffer swaps.
func (d *Driver) Swaps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swaps
}

func (d *Driver) Open() (surface.Device, error) {
	d.mu.Lock()
	if err := d.openErr; err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.nextID++
	dev := &device{d: d, id: d.nextID}
	d.mu.Unlock()
	d.emit(Opened, dev.id)
	return dev, nil
}

func (d *Driver) emit(k EventKind, id int) {
	if d.hook != nil {
		d.hook(Event{Kind: k, Device: id})
	}
}

func (dev *device) ChooseConfig(spec surface.ConfigSpec) (surface.Config, error) {
	if spec.Red > 8 || spec.Green > 8 || spec.Blue > 8 || spec.Alpha > 8 {
		return surface.Config{}, errors.New("headless: no config with more than 8 bits per channel")
	}
	cfg := surface.Config{ConfigSpec: spec}
	// Every headless surface is RGBA8888.
	cfg.Red, cfg.Green, cfg.Blue, cfg.Alpha = 8, 8, 8, 8
	if cfg.ClientVersion == 0 {
		cfg.ClientVersion = 3
	}
	return cfg, nil
}

func (dev *device) CreateContext(cfg surface.Config) error {
	d := dev.d
	d.mu.Lock()
	if d.failCtx > 0 {
		d.failCtx--
		d.mu.Unlock()
		return errors.New("headless: context creation refused")
	}
	d.live++
	if d.live > d.maxLive {
		d.maxLive = d.live
	}
	d.mu.Unlock()
	dev.cfg = cfg
	dev.ctx = true
	d.emit(ContextCreated, dev.id)
	return nil
}

func (dev *device) DestroyContext() {
	if !dev.ctx {
		return
	}
	if dev.win != nil {
		panic("headless: context destroyed before its surface")
	}
	dev.ctx = false
	dev.curr = false
	d := dev.d
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
	d.emit(ContextDestroyed, dev.id)
}

func (dev *device) CreateSurface(win surface.Window) error {
	w, ok := win.(*Window)
	if !ok {
		return fmt.Errorf("headless: unsupported window type %T", win)
	}
	if !dev.ctx {
		return surface.ErrNoContext
	}
	d := dev.d
	d.mu.Lock()
	if d.failSurf > 0 {
		d.failSurf--
		d.mu.Unlock()
		return errors.New("headless: bad native window")
	}
	d.mu.Unlock()
	dev.DestroySurface()
	w.bind()
	dev.win = w
	dev.curr = true
	d.emit(SurfaceCreated, dev.id)
	return nil
}

func (dev *device) DestroySurface() {
	if dev.win == nil {
		return
	}
	dev.win.unbind()
	dev.win = nil
	dev.curr = false
	dev.d.emit(SurfaceDestroyed, dev.id)
}

func (dev *device) SwapBuffers() error {
	if !dev.curr {
		return errors.New("headless: no current surface")
	}
	d := dev.d
	d.mu.Lock()
	if len(d.presents) > 0 {
		err := d.presents[0]
		d.presents = d.presents[1:]
		d.mu.Unlock()
		if errors.Is(err, surface.ErrContextLost) {
			return fmt.Errorf("headless: %w", err)
		}
		return err
	}
	d.swaps++
	d.mu.Unlock()
	dev.win.present()
	d.emit(Swapped, dev.id)
	return nil
}

func (dev *device) Capabilities() (surface.Capabilities, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps, d.capsErr
}

func (dev *device) Close() {
	dev.DestroySurface()
	dev.DestroyContext()
	dev.d.emit(Closed, dev.id)
}

// NewWindow returns a window of the given size.
func NewWindow(width, height int) *Window {
	return &Window{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Size implements surface.Window.
func (w *Window) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.img.Bounds().Size()
}

// Resize changes the window size. The bound surface keeps its size until
// it is recreated; frames presented meanwhile are scaled.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(img, img.Bounds(), w.img, w.img.Bounds(), draw.Src, nil)
	w.img = img
}

// BackBuffer returns the image frames are drawn into, or nil if no
// surface is bound. It must only be used from the render thread.
func (w *Window) BackBuffer() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.back
}

// Frames returns the number of frames presented to the window.
func (w *Window) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Screenshot returns a copy of the window content.
func (w *Window) Screenshot() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	img := image.NewRGBA(w.img.Bounds())
	draw.Draw(img, img.Bounds(), w.img, image.Point{}, draw.Src)
	return img
}

func (w *Window) bind() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.back = image.NewRGBA(w.img.Bounds())
}

func (w *Window) unbind() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.back = nil
}

func (w *Window) present() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.back.Bounds() == w.img.Bounds() {
		draw.Draw(w.img, w.img.Bounds(), w.back, image.Point{}, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(w.img, w.img.Bounds(), w.back, w.back.Bounds(), draw.Src, nil)
	}
	w.frames++
}
