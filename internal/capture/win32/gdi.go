//go:build windows

package win32

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/lxn/win"
)

// dibSection is a memory DC with a bitmap compatible with src selected into
// it. release undoes every step that succeeded, in reverse order.
type dibSection struct {
	owner  win.HWND
	src    win.HDC
	mem    win.HDC
	bitmap win.HBITMAP
	old    win.HGDIOBJ
	width  int
	height int
}

func newDIBSection(owner win.HWND, src win.HDC, width, height int) (*dibSection, error) {
	d := &dibSection{owner: owner, src: src, width: width, height: height}

	d.mem = win.CreateCompatibleDC(src)
	if d.mem == 0 {
		d.release()
		return nil, fmt.Errorf("CreateCompatibleDC failed: %d", win.GetLastError())
	}
	d.bitmap = win.CreateCompatibleBitmap(src, int32(width), int32(height))
	if d.bitmap == 0 {
		d.release()
		return nil, fmt.Errorf("CreateCompatibleBitmap failed: %d", win.GetLastError())
	}
	d.old = win.SelectObject(d.mem, win.HGDIOBJ(d.bitmap))
	if d.old == 0 {
		d.release()
		return nil, fmt.Errorf("SelectObject failed: %d", win.GetLastError())
	}
	return d, nil
}

func (d *dibSection) release() {
	if d.old != 0 {
		win.SelectObject(d.mem, d.old)
		d.old = 0
	}
	if d.bitmap != 0 {
		win.DeleteObject(win.HGDIOBJ(d.bitmap))
		d.bitmap = 0
	}
	if d.mem != 0 {
		win.DeleteDC(d.mem)
		d.mem = 0
	}
	if d.src != 0 {
		win.ReleaseDC(d.owner, d.src)
		d.src = 0
	}
}

// ReadPixels copies the bitmap out as a top-down 32-bit DIB.
func (d *dibSection) ReadPixels(dst []byte, stride int) error {
	if d.mem == 0 {
		return errors.New("surface is closed")
	}
	row := d.width * capture.BytesPerPixel
	if stride != row {
		return fmt.Errorf("GDI rows are %d bytes, got stride %d", row, stride)
	}
	if len(dst) < row*d.height {
		return fmt.Errorf("destination too small for %dx%d", d.width, d.height)
	}

	bi := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(d.width),
			BiHeight:      -int32(d.height),
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	// The bitmap must not be selected into a DC while GetDIBits reads it.
	win.SelectObject(d.mem, d.old)
	defer win.SelectObject(d.mem, win.HGDIOBJ(d.bitmap))

	if n := win.GetDIBits(d.mem, d.bitmap, 0, uint32(d.height), &dst[0], &bi, dibRGBColors); n == 0 {
		return fmt.Errorf("GetDIBits failed: %d", win.GetLastError())
	}
	return nil
}

func (d *dibSection) Close() error {
	d.release()
	return nil
}

// screenSurface copies from the virtual-desktop DC, so any rectangle on any
// monitor is addressable.
type screenSurface struct {
	*dibSection
	origin capture.Rect
}

func (b *Backend) OpenScreen(r capture.Rect) (capture.ScreenSurface, error) {
	dc := win.GetDC(0)
	if dc == 0 {
		return nil, fmt.Errorf("GetDC failed: %d", win.GetLastError())
	}
	d, err := newDIBSection(0, dc, r.Width, r.Height)
	if err != nil {
		return nil, err
	}
	return &screenSurface{dibSection: d, origin: r}, nil
}

func (s *screenSurface) Copy() error {
	if !win.BitBlt(s.mem, 0, 0, int32(s.width), int32(s.height),
		s.src, int32(s.origin.X), int32(s.origin.Y), srcCopy|captureBlt) {
		return fmt.Errorf("BitBlt failed: %d", win.GetLastError())
	}
	return nil
}

// windowSurface renders a single window through its window DC.
type windowSurface struct {
	*dibSection
	hwnd win.HWND
}

func (b *Backend) OpenWindow(h capture.Handle, r capture.Rect) (capture.WindowSurface, error) {
	w := hwnd(h)
	dcp, _, _ := procGetWindowDC.Call(uintptr(w))
	if dcp == 0 {
		return nil, fmt.Errorf("GetWindowDC failed: %d", win.GetLastError())
	}
	d, err := newDIBSection(w, win.HDC(dcp), r.Width, r.Height)
	if err != nil {
		return nil, err
	}
	return &windowSurface{dibSection: d, hwnd: w}, nil
}

func (s *windowSurface) printWindow(flags uintptr) bool {
	return callBool(procPrintWindow, uintptr(s.hwnd), uintptr(s.mem), flags)
}

func (s *windowSurface) RenderFullContent() bool { return s.printWindow(pwRenderFullContent) }
func (s *windowSurface) RenderDefault() bool     { return s.printWindow(pwDefault) }
func (s *windowSurface) RenderAlternate() bool   { return s.printWindow(pwAlternate) }

func (s *windowSurface) CopyFrontBuffer() bool {
	return win.BitBlt(s.mem, 0, 0, int32(s.width), int32(s.height), s.src, 0, 0, srcCopy)
}
