// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/draw"

	"gioui.org/glthread/surface"
)

func fill(img *image.RGBA, col color.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func newDevice(t *testing.T, d *Driver) surface.Device {
	t.Helper()
	dev, err := d.Open()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := dev.ChooseConfig(surface.DefaultConfigSpec)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.CreateContext(cfg); err != nil {
		t.Fatal(err)
	}
	return dev
}

func TestPresent(t *testing.T) {
	d := NewDriver()
	dev := newDevice(t, d)
	defer dev.Close()
	win := NewWindow(10, 10)
	if win.BackBuffer() != nil {
		t.Error("back buffer without a surface")
	}
	if err := dev.CreateSurface(win); err != nil {
		t.Fatal(err)
	}
	col := color.RGBA{R: 0xca, G: 0xfe, A: 0xff}
	fill(win.BackBuffer(), col)
	if got := win.Screenshot().RGBAAt(5, 5); got == col {
		t.Error("content visible before SwapBuffers")
	}
	if err := dev.SwapBuffers(); err != nil {
		t.Fatal(err)
	}
	if got := win.Screenshot().RGBAAt(5, 5); got != col {
		t.Errorf("got color %v, expected %v", got, col)
	}
	if n := win.Frames(); n != 1 {
		t.Errorf("got %d frames, expected 1", n)
	}
}

func TestResizeScales(t *testing.T) {
	d := NewDriver()
	dev := newDevice(t, d)
	defer dev.Close()
	win := NewWindow(10, 10)
	if err := dev.CreateSurface(win); err != nil {
		t.Fatal(err)
	}
	col := color.RGBA{B: 0xff, A: 0xff}
	fill(win.BackBuffer(), col)
	win.Resize(20, 30)
	if sz := win.Size(); sz != image.Pt(20, 30) {
		t.Errorf("got size %v, expected (20,30)", sz)
	}
	if err := dev.SwapBuffers(); err != nil {
		t.Fatal(err)
	}
	img := win.Screenshot()
	if sz := img.Bounds().Size(); sz != image.Pt(20, 30) {
		t.Errorf("got screenshot size %v", sz)
	}
	if got := img.RGBAAt(10, 15); got != col {
		t.Errorf("got color %v, expected %v", got, col)
	}
}

func TestContextCounting(t *testing.T) {
	d := NewDriver()
	dev1 := newDevice(t, d)
	dev2 := newDevice(t, d)
	if n := d.LiveContexts(); n != 2 {
		t.Errorf("got %d live contexts, expected 2", n)
	}
	dev1.Close()
	dev2.Close()
	if n := d.LiveContexts(); n != 0 {
		t.Errorf("got %d live contexts after Close, expected 0", n)
	}
	if n := d.MaxLiveContexts(); n != 2 {
		t.Errorf("got max %d live contexts, expected 2", n)
	}
}

func TestDestroyOrder(t *testing.T) {
	d := NewDriver()
	dev := newDevice(t, d)
	if err := dev.CreateSurface(NewWindow(1, 1)); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("destroying a context before its surface did not panic")
		}
	}()
	dev.DestroyContext()
}

type foreignWindow struct{}

func (foreignWindow) Size() image.Point { return image.Pt(1, 1) }

func TestForeignWindow(t *testing.T) {
	dev := newDevice(t, NewDriver())
	defer dev.Close()
	if err := dev.CreateSurface(foreignWindow{}); err == nil {
		t.Error("surface created for a foreign window")
	}
}
