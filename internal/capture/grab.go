package capture

import (
	"fmt"
)

// CaptureRegion copies a rectangle of the desktop. The rectangle is in
// desktop coordinates and may span several displays. A zero target means the
// whole virtual desktop; any other target must still resolve to a monitor.
// Width and height are checked before anything touches the OS.
func (e *Engine) CaptureRegion(target Handle, x, y, width, height int) (*CaptureBuffer, error) {
	const op = "capture_region"

	if width <= 0 || height <= 0 {
		return nil, newError(op, CaptureFailed, fmt.Errorf("empty region %dx%d", width, height))
	}
	if target != 0 {
		if _, err := e.platform.MonitorInfo(target); err != nil {
			return nil, newError(op, NotFound, err)
		}
	}
	return e.captureScreen(op, Rect{X: x, Y: y, Width: width, Height: height})
}

// CaptureMonitor copies the full bounds of one display.
func (e *Engine) CaptureMonitor(h Handle) (*CaptureBuffer, error) {
	const op = "capture_monitor"

	info, err := e.platform.MonitorInfo(h)
	if err != nil {
		return nil, newError(op, NotFound, err)
	}
	if info.Bounds.Empty() {
		return nil, newError(op, CaptureFailed, fmt.Errorf("monitor %s has empty bounds", h))
	}
	return e.captureScreen(op, info.Bounds)
}

func (e *Engine) captureScreen(op string, r Rect) (*CaptureBuffer, error) {
	size, err := e.pixelBytes(r.Width, r.Height)
	if err != nil {
		return nil, newError(op, AllocFailed, err)
	}
	surface, err := e.platform.OpenScreen(r)
	if err != nil {
		return nil, newError(op, CaptureFailed, err)
	}
	defer e.closeSurface(surface)

	if err := surface.Copy(); err != nil {
		return nil, newError(op, CaptureFailed, err)
	}

	stride := r.Width * BytesPerPixel
	data := make([]byte, size)
	if err := surface.ReadPixels(data, stride); err != nil {
		return nil, newError(op, CaptureFailed, err)
	}

	e.log.Debug().
		Int("x", r.X).
		Int("y", r.Y).
		Int("width", r.Width).
		Int("height", r.Height).
		Msg("Captured region")
	return newCaptureBuffer(data, r.Width, r.Height, stride, e.platform.ChannelOrder()), nil
}

// CaptureWindow renders a window through the fallback chain. The window's
// rectangle is re-read first since it may have moved, shrunk or closed
// since enumeration.
func (e *Engine) CaptureWindow(target Handle) (*CaptureBuffer, error) {
	const op = "capture_window"

	if !e.platform.IsWindow(target) {
		return nil, newError(op, NotFound, fmt.Errorf("window %s no longer exists", target))
	}
	r, ok := e.platform.WindowRect(target)
	if !ok {
		return nil, newError(op, CaptureFailed, fmt.Errorf("window %s has no rectangle", target))
	}
	if r.Empty() {
		return nil, newError(op, CaptureFailed, fmt.Errorf("window %s is %dx%d", target, r.Width, r.Height))
	}
	size, err := e.pixelBytes(r.Width, r.Height)
	if err != nil {
		return nil, newError(op, AllocFailed, err)
	}

	surface, err := e.platform.OpenWindow(target, r)
	if err != nil {
		return nil, newError(op, CaptureFailed, err)
	}
	defer e.closeSurface(surface)

	name, trace, ok := RunChain(WindowChain, e.platform, surface)
	for _, step := range trace {
		e.log.Debug().
			Stringer("window", target).
			Str("strategy", step.Strategy).
			Bool("applicable", step.Applicable).
			Bool("succeeded", step.Succeeded).
			Msg("Capture strategy")
	}
	if !ok {
		return nil, newError(op, CaptureFailed, fmt.Errorf("every capture strategy failed for window %s", target))
	}

	stride := r.Width * BytesPerPixel
	data := make([]byte, size)
	if err := surface.ReadPixels(data, stride); err != nil {
		return nil, newError(op, CaptureFailed, err)
	}

	e.log.Debug().
		Stringer("window", target).
		Str("strategy", name).
		Int("width", r.Width).
		Int("height", r.Height).
		Msg("Captured window")
	return newCaptureBuffer(data, r.Width, r.Height, stride, e.platform.ChannelOrder()), nil
}

type closer interface{ Close() error }

func (e *Engine) closeSurface(c closer) {
	if err := c.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to release capture surface")
	}
}
