package capture

// DisplaySource enumerates the physical displays attached to the desktop.
type DisplaySource interface {
	// EnumMonitors calls visit once per display in OS order until visit
	// returns false.
	EnumMonitors(visit func(Handle) bool) error

	// MonitorInfo resolves the name, bounds and primary flag of a display.
	MonitorInfo(h Handle) (MonitorInfo, error)

	// MonitorDPI returns the effective horizontal DPI of a display.
	MonitorDPI(h Handle) (uint32, error)
}

// WindowSource enumerates top-level windows and answers the per-window
// probes the filter pipeline needs. Probes never fail loudly: a window that
// cannot be queried reports the zero value.
type WindowSource interface {
	EnumWindows(visit func(Handle) bool) error

	IsVisible(h Handle) bool
	IsCloaked(h Handle) bool
	ProcessID(h Handle) uint32
	IsToolWindow(h Handle) bool
	ClassName(h Handle) string

	// WindowRect is the basic frame rectangle, including any invisible
	// resize borders the compositor adds.
	WindowRect(h Handle) (Rect, bool)

	// ExtendedFrameBounds is the compositor's visible frame rectangle.
	ExtendedFrameBounds(h Handle) (Rect, bool)

	Title(h Handle) string
	ProcessName(pid uint32) (string, error)
}

// WindowState answers point queries about a single window.
type WindowState interface {
	IsWindow(h Handle) bool
	IsMinimized(h Handle) bool
	IsMaximized(h Handle) bool
	ForegroundWindow() Handle
	CurrentProcessID() uint32
}

// ScreenSurface is a drawing session over a rectangle of the desktop.
// Close must release every OS resource acquired by Open.
type ScreenSurface interface {
	// Copy snapshots the rectangle into the surface.
	Copy() error

	// ReadPixels writes the snapshot into dst top-down, one row every
	// stride bytes, 4 bytes per pixel.
	ReadPixels(dst []byte, stride int) error

	Close() error
}

// ScreenSource opens desktop surfaces.
type ScreenSource interface {
	OpenScreen(r Rect) (ScreenSurface, error)
}

// WindowSurface is a drawing session sized to a single window.
type WindowSurface interface {
	RenderTarget
	ReadPixels(dst []byte, stride int) error
	Close() error
}

// WindowCapturer opens window surfaces and reports which render
// strategies the running system can honour.
type WindowCapturer interface {
	Environment
	OpenWindow(h Handle, r Rect) (WindowSurface, error)
}

// Platform is everything the Engine needs from an OS backend.
type Platform interface {
	// Name returns a human-readable name for this backend.
	Name() string

	// ChannelOrder is the byte order of every pixel this backend produces.
	ChannelOrder() ChannelOrder

	DisplaySource
	WindowSource
	WindowState
	ScreenSource
	WindowCapturer

	// Close releases the backend's connection to the windowing system.
	Close() error
}
