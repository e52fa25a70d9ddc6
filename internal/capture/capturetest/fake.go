// Package capturetest provides an in-memory capture.Platform for tests.
package capturetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/screencap/internal/capture"
)

// Monitor describes a fake display.
type Monitor struct {
	Handle  capture.Handle
	Name    string
	Bounds  capture.Rect
	Primary bool
	DPI     uint32
	DPIErr  error
	InfoErr error
}

// Window describes a fake top-level window.
type Window struct {
	Handle      capture.Handle
	Visible     bool
	Cloaked     bool
	Tool        bool
	PID         uint32
	Class       string
	Title       string
	AppName     string
	Rect        capture.Rect
	NoRect      bool
	Extended    *capture.Rect
	Minimized   bool
	Maximized   bool
	Closed      bool
	ProcNameErr error
}

// Render strategy names accepted in Fake.Succeeds.
const (
	FullContent = "full-content"
	Default     = "default-render"
	Alternate   = "alternate-render"
	FrontBuffer = "front-buffer"
)

// ErrInjected is the failure returned by every injected fault.
var ErrInjected = errors.New("capturetest: injected failure")

// Fake is a scriptable platform. Every probe and drawing call is appended
// to Calls so tests can assert on ordering.
type Fake struct {
	Monitors   []Monitor
	Windows    []Window
	Foreground capture.Handle
	SelfPID    uint32
	Order      capture.ChannelOrder

	FullContent bool
	Composition bool
	// Succeeds lists the render strategies that produce pixels.
	Succeeds map[string]bool

	EnumErr       error
	OpenScreenErr error
	OpenWindowErr error
	CopyErr       error
	ReadErr       error

	// Fill is written to every pixel on readback.
	Fill [4]byte

	mu     sync.Mutex
	calls  []string
	open   int
	opened int
}

var _ capture.Platform = (*Fake)(nil)

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ResetCalls clears the call log.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// OpenSurfaces is the number of surfaces opened and not yet closed.
func (f *Fake) OpenSurfaces() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// SurfacesOpened is the number of surfaces ever opened.
func (f *Fake) SurfacesOpened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *Fake) monitor(h capture.Handle) (Monitor, bool) {
	for _, m := range f.Monitors {
		if m.Handle == h {
			return m, true
		}
	}
	return Monitor{}, false
}

func (f *Fake) window(h capture.Handle) (Window, bool) {
	for _, w := range f.Windows {
		if w.Handle == h && !w.Closed {
			return w, true
		}
	}
	return Window{}, false
}

func (f *Fake) Name() string                       { return "fake" }
func (f *Fake) ChannelOrder() capture.ChannelOrder { return f.Order }
func (f *Fake) Close() error                       { return nil }

func (f *Fake) EnumMonitors(visit func(capture.Handle) bool) error {
	f.record("EnumMonitors")
	for _, m := range f.Monitors {
		if !visit(m.Handle) {
			break
		}
	}
	return f.EnumErr
}

func (f *Fake) MonitorInfo(h capture.Handle) (capture.MonitorInfo, error) {
	f.record("MonitorInfo:%d", h)
	m, ok := f.monitor(h)
	if !ok {
		return capture.MonitorInfo{}, fmt.Errorf("monitor %d: %w", h, ErrInjected)
	}
	if m.InfoErr != nil {
		return capture.MonitorInfo{}, m.InfoErr
	}
	return capture.MonitorInfo{Name: m.Name, Bounds: m.Bounds, Primary: m.Primary}, nil
}

func (f *Fake) MonitorDPI(h capture.Handle) (uint32, error) {
	m, ok := f.monitor(h)
	if !ok {
		return 0, ErrInjected
	}
	if m.DPIErr != nil {
		return 0, m.DPIErr
	}
	return m.DPI, nil
}

func (f *Fake) EnumWindows(visit func(capture.Handle) bool) error {
	f.record("EnumWindows")
	for _, w := range f.Windows {
		if w.Closed {
			continue
		}
		if !visit(w.Handle) {
			break
		}
	}
	return f.EnumErr
}

func (f *Fake) IsVisible(h capture.Handle) bool {
	f.record("IsVisible:%d", h)
	w, _ := f.window(h)
	return w.Visible
}

func (f *Fake) IsCloaked(h capture.Handle) bool {
	f.record("IsCloaked:%d", h)
	w, _ := f.window(h)
	return w.Cloaked
}

func (f *Fake) ProcessID(h capture.Handle) uint32 {
	f.record("ProcessID:%d", h)
	w, _ := f.window(h)
	return w.PID
}

func (f *Fake) IsToolWindow(h capture.Handle) bool {
	f.record("IsToolWindow:%d", h)
	w, _ := f.window(h)
	return w.Tool
}

func (f *Fake) ClassName(h capture.Handle) string {
	f.record("ClassName:%d", h)
	w, _ := f.window(h)
	return w.Class
}

func (f *Fake) WindowRect(h capture.Handle) (capture.Rect, bool) {
	f.record("WindowRect:%d", h)
	w, ok := f.window(h)
	if !ok || w.NoRect {
		return capture.Rect{}, false
	}
	return w.Rect, true
}

func (f *Fake) ExtendedFrameBounds(h capture.Handle) (capture.Rect, bool) {
	f.record("ExtendedFrameBounds:%d", h)
	w, ok := f.window(h)
	if !ok || w.Extended == nil {
		return capture.Rect{}, false
	}
	return *w.Extended, true
}

func (f *Fake) Title(h capture.Handle) string {
	w, _ := f.window(h)
	return w.Title
}

func (f *Fake) ProcessName(pid uint32) (string, error) {
	for _, w := range f.Windows {
		if w.PID == pid {
			if w.ProcNameErr != nil {
				return "", w.ProcNameErr
			}
			return w.AppName, nil
		}
	}
	return "", ErrInjected
}

func (f *Fake) IsWindow(h capture.Handle) bool {
	f.record("IsWindow:%d", h)
	_, ok := f.window(h)
	return ok
}

func (f *Fake) IsMinimized(h capture.Handle) bool {
	w, _ := f.window(h)
	return w.Minimized
}

func (f *Fake) IsMaximized(h capture.Handle) bool {
	w, _ := f.window(h)
	return w.Maximized
}

func (f *Fake) ForegroundWindow() capture.Handle { return f.Foreground }
func (f *Fake) CurrentProcessID() uint32         { return f.SelfPID }

func (f *Fake) SupportsFullContent() bool {
	f.record("SupportsFullContent")
	return f.FullContent
}

func (f *Fake) CompositionEnabled() bool {
	f.record("CompositionEnabled")
	return f.Composition
}

func (f *Fake) OpenScreen(r capture.Rect) (capture.ScreenSurface, error) {
	f.record("OpenScreen:%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
	if f.OpenScreenErr != nil {
		return nil, f.OpenScreenErr
	}
	f.mu.Lock()
	f.open++
	f.opened++
	f.mu.Unlock()
	return &surface{fake: f, rect: r}, nil
}

func (f *Fake) OpenWindow(h capture.Handle, r capture.Rect) (capture.WindowSurface, error) {
	f.record("OpenWindow:%d", h)
	if f.OpenWindowErr != nil {
		return nil, f.OpenWindowErr
	}
	f.mu.Lock()
	f.open++
	f.opened++
	f.mu.Unlock()
	return &surface{fake: f, rect: r}, nil
}

type surface struct {
	fake   *Fake
	rect   capture.Rect
	filled bool
	closed bool
}

func (s *surface) attempt(name string) bool {
	s.fake.record("Render:%s", name)
	if s.fake.Succeeds[name] {
		s.filled = true
	}
	return s.filled
}

func (s *surface) RenderFullContent() bool { return s.attempt(FullContent) }
func (s *surface) RenderDefault() bool     { return s.attempt(Default) }
func (s *surface) RenderAlternate() bool   { return s.attempt(Alternate) }
func (s *surface) CopyFrontBuffer() bool   { return s.attempt(FrontBuffer) }

func (s *surface) Copy() error {
	s.fake.record("Copy")
	if s.fake.CopyErr != nil {
		return s.fake.CopyErr
	}
	s.filled = true
	return nil
}

func (s *surface) ReadPixels(dst []byte, stride int) error {
	s.fake.record("ReadPixels")
	if s.fake.ReadErr != nil {
		return s.fake.ReadErr
	}
	if !s.filled {
		return errors.New("capturetest: surface holds no pixels")
	}
	if need := stride * s.rect.Height; len(dst) < need {
		return fmt.Errorf("capturetest: dst holds %d bytes, need %d", len(dst), need)
	}
	for y := 0; y < s.rect.Height; y++ {
		row := dst[y*stride : y*stride+s.rect.Width*capture.BytesPerPixel]
		for i := 0; i < len(row); i += capture.BytesPerPixel {
			copy(row[i:i+4], s.fake.Fill[:])
		}
	}
	return nil
}

func (s *surface) Close() error {
	s.fake.record("Close")
	if s.closed {
		return errors.New("capturetest: surface closed twice")
	}
	s.closed = true
	s.fake.mu.Lock()
	s.fake.open--
	s.fake.mu.Unlock()
	return nil
}
