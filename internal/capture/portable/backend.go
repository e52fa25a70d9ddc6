//go:build !windows && !linux

// Package portable implements the display half of capture.Platform on top
// of github.com/kbinani/screenshot. It knows nothing about windows: window
// enumeration is empty and every window query reports "not found".
package portable

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog"
)

var errNoWindows = errors.New("window capture is not supported on this platform")

// Backend maps monitor handles to 1-based display indexes so 0 stays free
// for "no target".
type Backend struct {
	log *zerolog.Logger
}

var _ capture.Platform = (*Backend)(nil)

func New() (*Backend, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, errors.New("no active displays")
	}
	return &Backend{log: logger.WithComponent("portable-backend")}, nil
}

func (b *Backend) Name() string                       { return "portable" }
func (b *Backend) ChannelOrder() capture.ChannelOrder { return capture.RGBA }
func (b *Backend) Close() error                       { return nil }

func (b *Backend) EnumMonitors(visit func(capture.Handle) bool) error {
	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		if !visit(capture.Handle(i + 1)) {
			break
		}
	}
	return nil
}

// MonitorInfo treats display 0 as primary, which is how every supported
// OS orders them.
func (b *Backend) MonitorInfo(h capture.Handle) (capture.MonitorInfo, error) {
	i := int(h) - 1
	if i < 0 || i >= screenshot.NumActiveDisplays() {
		return capture.MonitorInfo{}, fmt.Errorf("monitor %s: no such display", h)
	}
	return capture.MonitorInfo{
		Name:    fmt.Sprintf("Display %d", i+1),
		Bounds:  capture.RectFromImage(screenshot.GetDisplayBounds(i)),
		Primary: i == 0,
	}, nil
}

func (b *Backend) MonitorDPI(h capture.Handle) (uint32, error) {
	return 0, errors.New("display DPI is not exposed on this platform")
}

func (b *Backend) EnumWindows(visit func(capture.Handle) bool) error { return nil }

func (b *Backend) IsVisible(capture.Handle) bool                  { return false }
func (b *Backend) IsCloaked(capture.Handle) bool                  { return false }
func (b *Backend) ProcessID(capture.Handle) uint32                { return 0 }
func (b *Backend) IsToolWindow(capture.Handle) bool               { return false }
func (b *Backend) ClassName(capture.Handle) string                { return "" }
func (b *Backend) WindowRect(capture.Handle) (capture.Rect, bool) { return capture.Rect{}, false }
func (b *Backend) Title(capture.Handle) string                    { return "" }

func (b *Backend) ExtendedFrameBounds(capture.Handle) (capture.Rect, bool) {
	return capture.Rect{}, false
}

func (b *Backend) ProcessName(uint32) (string, error) { return "", errNoWindows }

func (b *Backend) IsWindow(capture.Handle) bool     { return false }
func (b *Backend) IsMinimized(capture.Handle) bool  { return false }
func (b *Backend) IsMaximized(capture.Handle) bool  { return false }
func (b *Backend) ForegroundWindow() capture.Handle { return 0 }
func (b *Backend) CurrentProcessID() uint32         { return uint32(os.Getpid()) }

func (b *Backend) SupportsFullContent() bool { return false }
func (b *Backend) CompositionEnabled() bool  { return false }

func (b *Backend) OpenWindow(capture.Handle, capture.Rect) (capture.WindowSurface, error) {
	return nil, errNoWindows
}

type screenSurface struct {
	r   capture.Rect
	img *image.RGBA
}

func (b *Backend) OpenScreen(r capture.Rect) (capture.ScreenSurface, error) {
	return &screenSurface{r: r}, nil
}

func (s *screenSurface) Copy() error {
	img, err := screenshot.CaptureRect(s.r.Image())
	if err != nil {
		return err
	}
	s.img = img
	return nil
}

func (s *screenSurface) ReadPixels(dst []byte, stride int) error {
	if s.img == nil {
		return errors.New("surface holds no pixels")
	}
	row := s.r.Width * capture.BytesPerPixel
	if stride < row || len(dst) < stride*(s.r.Height-1)+row {
		return fmt.Errorf("destination too small for %dx%d", s.r.Width, s.r.Height)
	}
	for y := 0; y < s.r.Height; y++ {
		src := s.img.Pix[y*s.img.Stride : y*s.img.Stride+row]
		copy(dst[y*stride:], src)
	}
	return nil
}

func (s *screenSurface) Close() error {
	s.img = nil
	return nil
}
