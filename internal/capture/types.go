package capture

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Handle is an opaque OS identity for a monitor or window. It may stop
// resolving at any time after it was observed.
type Handle uintptr

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// ParseHandle accepts decimal or 0x-prefixed hexadecimal handles.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return Handle(v), nil
}

// Rect is a rectangle in desktop coordinates. X and Y may be negative on
// multi-monitor layouts.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RectFromImage converts an image.Rectangle to a Rect.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// FromEdges builds a Rect from left/top/right/bottom edges.
func FromEdges(left, top, right, bottom int) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// MonitorInfo is what a backend knows about a display before DPI lookup.
type MonitorInfo struct {
	Name    string
	Bounds  Rect
	Primary bool
}

// Monitor is a snapshot of one display taken at enumeration time.
type Monitor struct {
	Handle      Handle  `json:"handle"`
	Name        string  `json:"name"`
	Bounds      Rect    `json:"bounds"`
	Primary     bool    `json:"primary"`
	ScaleFactor float64 `json:"scale_factor"`
}

// Window is a snapshot of one capturable top-level window. Z is its
// stacking position among the listed windows, higher values on top.
// Monitor is only set by Engine.LocateWindows.
type Window struct {
	Handle  Handle `json:"handle"`
	PID     uint32 `json:"pid"`
	AppName string `json:"app_name"`
	Title   string `json:"title"`
	Bounds  Rect   `json:"bounds"`
	Z       int    `json:"z"`
	Monitor Handle `json:"monitor,omitempty"`
}

// CurrentMonitor returns the monitor containing the window's center, or
// false when it lies outside every monitor.
func (w Window) CurrentMonitor(monitors []Monitor) (Monitor, bool) {
	cx, cy := w.Bounds.Center()
	for _, m := range monitors {
		if m.Bounds.Contains(cx, cy) {
			return m, true
		}
	}
	return Monitor{}, false
}

// ChannelOrder names the byte order of a 4-byte pixel.
type ChannelOrder int

const (
	BGRA ChannelOrder = iota
	RGBA
)

func (o ChannelOrder) String() string {
	switch o {
	case BGRA:
		return "BGRA"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("ChannelOrder(%d)", int(o))
	}
}

// BaselineDPI is the DPI that corresponds to a scale factor of 1.0.
const BaselineDPI = 96

// ScaleFromDPI converts an effective DPI to a scale factor.
func ScaleFromDPI(dpi uint32) float64 {
	if dpi == 0 {
		return 1.0
	}
	return float64(dpi) / BaselineDPI
}

// Version is an OS major.minor version.
type Version struct {
	Major, Minor uint32
}

// AtLeast reports whether v >= major.minor.
func (v Version) AtLeast(major, minor uint32) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
