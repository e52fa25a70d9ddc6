// Package abi exposes the capture engine through fixed-layout records and
// integer result codes, the shape a foreign-function binding consumes.
// Every allocation handed out is tracked until its matching release call.
package abi

import (
	"math"
	"sync"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/rs/zerolog"
)

// Result codes.
const (
	CodeOK            = int32(capture.OK)
	CodeNoMonitors    = int32(capture.NoMonitors)
	CodeNoWindows     = int32(capture.NoWindows)
	CodeCaptureFailed = int32(capture.CaptureFailed)
	CodeAllocFailed   = int32(capture.AllocFailed)
	CodeNotFound      = int32(capture.NotFound)
)

// MonitorRecord describes one display.
type MonitorRecord struct {
	Handle      uintptr
	Name        [MonitorNameLen]uint16
	X           int32
	Y           int32
	Width       uint32
	Height      uint32
	IsPrimary   bool
	ScaleFactor float32
}

// WindowRecord describes one capturable window.
type WindowRecord struct {
	Handle  uintptr
	PID     uint32
	AppName [AppNameLen]uint16
	Title   [TitleLen]uint16
	X       int32
	Y       int32
	Width   uint32
	Height  uint32
}

// CaptureBuffer is a top-down bitmap with 4 bytes per pixel.
type CaptureBuffer struct {
	Data       []byte
	Width      uint32
	Height     uint32
	RowStride  uint32
	DataLength uint32

	owner *capture.CaptureBuffer
}

// API binds the record-oriented operations to an engine.
type API struct {
	engine *capture.Engine
	log    *zerolog.Logger

	mu       sync.Mutex
	monitors map[*MonitorRecord]struct{}
	windows  map[*WindowRecord]struct{}
}

// New returns an API over engine.
func New(engine *capture.Engine) *API {
	return &API{
		engine:   engine,
		log:      logger.WithComponent("abi"),
		monitors: make(map[*MonitorRecord]struct{}),
		windows:  make(map[*WindowRecord]struct{}),
	}
}

func codeOf(err error) int32 {
	return int32(capture.CodeOf(err))
}

func clampInt32(v int) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

func clampUint32(v int) uint32 {
	switch {
	case v <= 0:
		return 0
	case uint64(v) > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// ListMonitors stores a new record array in out. On failure out is nil.
func (a *API) ListMonitors(out *[]MonitorRecord) int32 {
	*out = nil
	monitors, err := a.engine.ListMonitors()
	if err != nil {
		return codeOf(err)
	}

	records := make([]MonitorRecord, len(monitors))
	for i, m := range monitors {
		r := &records[i]
		r.Handle = uintptr(m.Handle)
		PutText(r.Name[:], m.Name)
		r.X = clampInt32(m.Bounds.X)
		r.Y = clampInt32(m.Bounds.Y)
		r.Width = clampUint32(m.Bounds.Width)
		r.Height = clampUint32(m.Bounds.Height)
		r.IsPrimary = m.Primary
		r.ScaleFactor = float32(m.ScaleFactor)
	}

	a.mu.Lock()
	a.monitors[&records[0]] = struct{}{}
	a.mu.Unlock()

	*out = records
	return CodeOK
}

// ReleaseMonitors returns an array obtained from ListMonitors. Releasing an
// unknown or already released array is ignored. Released records are zeroed.
func (a *API) ReleaseMonitors(records []MonitorRecord) {
	if len(records) == 0 {
		return
	}
	a.mu.Lock()
	_, ok := a.monitors[&records[0]]
	delete(a.monitors, &records[0])
	a.mu.Unlock()

	if !ok {
		a.log.Warn().Int("count", len(records)).Msg("Ignoring release of unknown monitor records")
		return
	}
	clear(records)
}

// ListWindows stores a new record array in out. On failure out is nil.
func (a *API) ListWindows(excludeCurrentProcess bool, out *[]WindowRecord) int32 {
	*out = nil
	windows, err := a.engine.ListWindows(excludeCurrentProcess)
	if err != nil {
		return codeOf(err)
	}

	records := make([]WindowRecord, len(windows))
	for i, w := range windows {
		r := &records[i]
		r.Handle = uintptr(w.Handle)
		r.PID = w.PID
		PutText(r.AppName[:], w.AppName)
		PutText(r.Title[:], w.Title)
		r.X = clampInt32(w.Bounds.X)
		r.Y = clampInt32(w.Bounds.Y)
		r.Width = clampUint32(w.Bounds.Width)
		r.Height = clampUint32(w.Bounds.Height)
	}

	a.mu.Lock()
	a.windows[&records[0]] = struct{}{}
	a.mu.Unlock()

	*out = records
	return CodeOK
}

// ReleaseWindows returns an array obtained from ListWindows.
func (a *API) ReleaseWindows(records []WindowRecord) {
	if len(records) == 0 {
		return
	}
	a.mu.Lock()
	_, ok := a.windows[&records[0]]
	delete(a.windows, &records[0])
	a.mu.Unlock()

	if !ok {
		a.log.Warn().Int("count", len(records)).Msg("Ignoring release of unknown window records")
		return
	}
	clear(records)
}

// recordLength reports n as a DataLength, or false when the record's
// 32-bit fields cannot describe it.
func recordLength(n int64) (uint32, bool) {
	if n < 0 || n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// fillBuffer moves buf into out. A buffer too large for the record is
// released and reported as an allocation failure.
func (a *API) fillBuffer(out *CaptureBuffer, buf *capture.CaptureBuffer) int32 {
	data := buf.Data()
	length, ok := recordLength(int64(len(data)))
	if !ok || int64(buf.Stride) > math.MaxUint32 {
		a.log.Warn().Int("bytes", len(data)).Msg("Capture too large for a buffer record")
		buf.Release()
		return CodeAllocFailed
	}
	*out = CaptureBuffer{
		Data:       data,
		Width:      uint32(buf.Width),
		Height:     uint32(buf.Height),
		RowStride:  uint32(buf.Stride),
		DataLength: length,
		owner:      buf,
	}
	return CodeOK
}

// CaptureRegion captures a desktop rectangle into out. On failure out is
// reset to its zero value.
func (a *API) CaptureRegion(monitor uintptr, x, y int32, width, height uint32, out *CaptureBuffer) int32 {
	*out = CaptureBuffer{}
	buf, err := a.engine.CaptureRegion(capture.Handle(monitor), int(x), int(y), int(width), int(height))
	if err != nil {
		return codeOf(err)
	}
	return a.fillBuffer(out, buf)
}

// CaptureWindow captures a window into out. On failure out is reset to its
// zero value.
func (a *API) CaptureWindow(window uintptr, out *CaptureBuffer) int32 {
	*out = CaptureBuffer{}
	buf, err := a.engine.CaptureWindow(capture.Handle(window))
	if err != nil {
		return codeOf(err)
	}
	return a.fillBuffer(out, buf)
}

// ReleaseCaptureBuffer frees the pixels of buf and zeroes it. A second
// release, including one through a copy of the record, is ignored.
func (a *API) ReleaseCaptureBuffer(buf *CaptureBuffer) {
	if buf == nil {
		return
	}
	owner := buf.owner
	*buf = CaptureBuffer{}
	if owner == nil {
		a.log.Warn().Msg("Ignoring release of empty capture buffer")
		return
	}
	if err := owner.Release(); err != nil {
		a.log.Warn().Err(err).Msg("Ignoring repeated capture buffer release")
	}
}

// GetMonitorDPI reports the effective DPI on both axes. It never fails: an
// unknown DPI is reported as 96.
func (a *API) GetMonitorDPI(monitor uintptr, dpiX, dpiY *uint32) int32 {
	dpi := a.engine.MonitorDPI(capture.Handle(monitor))
	if dpiX != nil {
		*dpiX = dpi
	}
	if dpiY != nil {
		*dpiY = dpi
	}
	return CodeOK
}

// IsWindowMinimized is false for windows that no longer exist.
func (a *API) IsWindowMinimized(window uintptr) bool {
	v, err := a.engine.IsWindowMinimized(capture.Handle(window))
	return err == nil && v
}

// IsWindowMaximized is false for windows that no longer exist.
func (a *API) IsWindowMaximized(window uintptr) bool {
	v, err := a.engine.IsWindowMaximized(capture.Handle(window))
	return err == nil && v
}

// IsWindowFocused is false for windows that no longer exist.
func (a *API) IsWindowFocused(window uintptr) bool {
	v, err := a.engine.IsWindowFocused(capture.Handle(window))
	return err == nil && v
}

// GetFrontmostWindowID returns the foreground window handle, or 0.
func (a *API) GetFrontmostWindowID() uintptr {
	return uintptr(a.engine.FrontmostWindow())
}

// GetCurrentProcessID returns the pid used for self-exclusion.
func (a *API) GetCurrentProcessID() uint32 {
	return a.engine.CurrentProcessID()
}

// Outstanding reports how many record arrays have not been released.
func (a *API) Outstanding() (monitors, windows int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.monitors), len(a.windows)
}
