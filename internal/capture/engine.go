package capture

import (
	"fmt"
	"math"

	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/rs/zerolog"
)

const (
	// Initial record buffer sizes. Most desktops have a handful of
	// monitors and a few dozen top-level windows.
	initialMonitorCapacity = 8
	initialWindowCapacity  = 32

	// DefaultMaxBufferBytes caps a single capture allocation (1 GiB holds
	// a 16384x16384 BGRA bitmap).
	DefaultMaxBufferBytes = 1 << 30
)

// Engine runs enumeration and capture against a Platform. It holds no
// per-call state; every call acquires and releases its own OS resources.
type Engine struct {
	platform       Platform
	policy         FilterPolicy
	maxRecords     int
	maxBufferBytes int64
	log            *zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFilterPolicy replaces the default window filter policy.
func WithFilterPolicy(p FilterPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMaxRecords caps how many records one enumeration may hold.
func WithMaxRecords(n int) Option {
	return func(e *Engine) { e.maxRecords = n }
}

// WithMaxBufferBytes caps the size of a single pixel buffer.
func WithMaxBufferBytes(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBufferBytes = n
		}
	}
}

// NewEngine wraps a backend.
func NewEngine(p Platform, opts ...Option) *Engine {
	e := &Engine{
		platform:       p,
		policy:         NewFilterPolicy(nil, nil),
		maxBufferBytes: DefaultMaxBufferBytes,
		log:            logger.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the backend the engine drives.
func (e *Engine) Platform() Platform {
	return e.platform
}

// Close closes the backend.
func (e *Engine) Close() error {
	return e.platform.Close()
}

func initialCapacity(want, max int) int {
	if max > 0 && want > max {
		return max
	}
	return want
}

// pixelBytes sizes a tightly packed width x height buffer and refuses
// sizes above the configured ceiling. It runs before any surface is opened
// so an oversized request never reaches the backend.
func (e *Engine) pixelBytes(width, height int) (int64, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid pixel buffer %dx%d", width, height)
	}
	stride := int64(width) * BytesPerPixel
	if stride > e.maxBufferBytes || int64(height) > e.maxBufferBytes/stride || stride*int64(height) > math.MaxInt {
		return 0, fmt.Errorf("pixel buffer %dx%d exceeds limit of %d bytes", width, height, e.maxBufferBytes)
	}
	return stride * int64(height), nil
}

// IsWindowMinimized reports whether the window is iconic.
func (e *Engine) IsWindowMinimized(h Handle) (bool, error) {
	if !e.platform.IsWindow(h) {
		return false, newError("is_window_minimized", NotFound, nil)
	}
	return e.platform.IsMinimized(h), nil
}

// IsWindowMaximized reports whether the window is zoomed.
func (e *Engine) IsWindowMaximized(h Handle) (bool, error) {
	if !e.platform.IsWindow(h) {
		return false, newError("is_window_maximized", NotFound, nil)
	}
	return e.platform.IsMaximized(h), nil
}

// IsWindowFocused reports whether the window is the foreground window.
func (e *Engine) IsWindowFocused(h Handle) (bool, error) {
	if !e.platform.IsWindow(h) {
		return false, newError("is_window_focused", NotFound, nil)
	}
	return e.platform.ForegroundWindow() == h, nil
}

// FrontmostWindow returns the foreground window, or 0 when there is none.
func (e *Engine) FrontmostWindow() Handle {
	return e.platform.ForegroundWindow()
}

// CurrentProcessID returns the pid used for self-exclusion.
func (e *Engine) CurrentProcessID() uint32 {
	return e.platform.CurrentProcessID()
}
