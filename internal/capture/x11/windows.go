//go:build linux

package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/shirou/gopsutil/v3/process"
)

// allDesktops is the _NET_WM_DESKTOP value for sticky windows.
const allDesktops = 0xFFFFFFFF

// Window types that never represent an application's main window.
var auxiliaryTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_UTILITY":       true,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":       true,
	"_NET_WM_WINDOW_TYPE_MENU":          true,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": true,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    true,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":       true,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  true,
	"_NET_WM_WINDOW_TYPE_DOCK":          true,
	"_NET_WM_WINDOW_TYPE_DESKTOP":       true,
	"_NET_WM_WINDOW_TYPE_SPLASH":        true,
}

// EnumWindows visits managed client windows from the top of the stacking
// order down. It prefers _NET_CLIENT_LIST_STACKING, then _NET_CLIENT_LIST,
// and finally the root window's children when no EWMH window manager runs.
func (b *Backend) EnumWindows(visit func(capture.Handle) bool) error {
	if wins, err := ewmh.ClientListStackingGet(b.xu); err == nil && len(wins) > 0 {
		// Stacking order is bottom to top.
		for i := len(wins) - 1; i >= 0; i-- {
			if !visit(capture.Handle(wins[i])) {
				return nil
			}
		}
		return nil
	}

	if wins, err := ewmh.ClientListGet(b.xu); err == nil && len(wins) > 0 {
		b.log.Debug().Int("count", len(wins)).Msg("EnumWindows: using _NET_CLIENT_LIST")
		for _, w := range wins {
			if !visit(capture.Handle(w)) {
				return nil
			}
		}
		return nil
	}

	tree, err := xproto.QueryTree(b.conn, b.root).Reply()
	if err != nil {
		return fmt.Errorf("failed to query root window tree: %w", err)
	}
	b.log.Debug().Int("childCount", len(tree.Children)).Msg("EnumWindows: falling back to QueryTree")
	for i := len(tree.Children) - 1; i >= 0; i-- {
		if !visit(capture.Handle(tree.Children[i])) {
			return nil
		}
	}
	return nil
}

// IsVisible reports whether the window is mapped and all its ancestors are.
func (b *Backend) IsVisible(h capture.Handle) bool {
	attrs, err := xproto.GetWindowAttributes(b.conn, xproto.Window(h)).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// IsCloaked reports windows that are mapped but not shown to the user:
// hidden by the window manager or parked on another virtual desktop.
func (b *Backend) IsCloaked(h capture.Handle) bool {
	win := xproto.Window(h)
	if b.hasState(win, "_NET_WM_STATE_HIDDEN") {
		return true
	}

	desktop, err := ewmh.WmDesktopGet(b.xu, win)
	if err != nil || desktop == allDesktops {
		return false
	}
	current, err := ewmh.CurrentDesktopGet(b.xu)
	if err != nil {
		return false
	}
	return desktop != current
}

// ProcessID reads _NET_WM_PID. Clients that don't set it report 0.
func (b *Backend) ProcessID(h capture.Handle) uint32 {
	pid, err := ewmh.WmPidGet(b.xu, xproto.Window(h))
	if err != nil {
		return 0
	}
	return uint32(pid)
}

// IsToolWindow reports docks, panels, menus and other auxiliary windows.
func (b *Backend) IsToolWindow(h capture.Handle) bool {
	types, err := ewmh.WmWindowTypeGet(b.xu, xproto.Window(h))
	if err != nil {
		return false
	}
	for _, t := range types {
		if auxiliaryTypes[t] {
			return true
		}
	}
	return false
}

// ClassName returns the class half of WM_CLASS.
func (b *Backend) ClassName(h capture.Handle) string {
	class, err := icccm.WmClassGet(b.xu, xproto.Window(h))
	if err != nil {
		return ""
	}
	return class.Class
}

// WindowRect is the client area in root coordinates grown by the window
// manager's decorations (_NET_FRAME_EXTENTS).
func (b *Backend) WindowRect(h capture.Handle) (capture.Rect, bool) {
	win := xproto.Window(h)
	r, err := b.clientRect(win)
	if err != nil {
		return capture.Rect{}, false
	}
	if ext, err := ewmh.FrameExtentsGet(b.xu, win); err == nil {
		r = capture.FromEdges(r.X-ext.Left, r.Y-ext.Top, r.X+r.Width+ext.Right, r.Y+r.Height+ext.Bottom)
	}
	return r, true
}

// ExtendedFrameBounds is only reported for client-side decorated windows,
// whose _GTK_FRAME_EXTENTS describe an invisible shadow margin around the
// visible frame.
func (b *Backend) ExtendedFrameBounds(h capture.Handle) (capture.Rect, bool) {
	win := xproto.Window(h)
	margins, err := xprop.PropValNums(xprop.GetProperty(b.xu, win, "_GTK_FRAME_EXTENTS"))
	if err != nil || len(margins) != 4 {
		return capture.Rect{}, false
	}
	r, err := b.clientRect(win)
	if err != nil {
		return capture.Rect{}, false
	}
	left, right, top, bottom := int(margins[0]), int(margins[1]), int(margins[2]), int(margins[3])
	return capture.FromEdges(r.X+left, r.Y+top, r.X+r.Width-right, r.Y+r.Height-bottom), true
}

// Title prefers the UTF-8 _NET_WM_NAME and falls back to WM_NAME.
func (b *Backend) Title(h capture.Handle) string {
	win := xproto.Window(h)
	if name, err := ewmh.WmNameGet(b.xu, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(b.xu, win); err == nil {
		return name
	}
	return ""
}

// ProcessName returns the executable name of pid.
func (b *Backend) ProcessName(pid uint32) (string, error) {
	if pid == 0 {
		return "", fmt.Errorf("no process id")
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// IsWindow reports whether h still names a live window.
func (b *Backend) IsWindow(h capture.Handle) bool {
	if h == 0 {
		return false
	}
	_, err := xproto.GetWindowAttributes(b.conn, xproto.Window(h)).Reply()
	return err == nil
}

// IsMinimized reports _NET_WM_STATE_HIDDEN, which EWMH window managers set
// on iconified windows.
func (b *Backend) IsMinimized(h capture.Handle) bool {
	return b.hasState(xproto.Window(h), "_NET_WM_STATE_HIDDEN")
}

// IsMaximized requires both the vertical and horizontal maximized states.
func (b *Backend) IsMaximized(h capture.Handle) bool {
	states, err := ewmh.WmStateGet(b.xu, xproto.Window(h))
	if err != nil {
		return false
	}
	var vert, horz bool
	for _, s := range states {
		switch s {
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			vert = true
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			horz = true
		}
	}
	return vert && horz
}

// ForegroundWindow returns _NET_ACTIVE_WINDOW, or 0 when nothing is active.
func (b *Backend) ForegroundWindow() capture.Handle {
	win, err := ewmh.ActiveWindowGet(b.xu)
	if err != nil {
		return 0
	}
	return capture.Handle(win)
}

func (b *Backend) hasState(win xproto.Window, state string) bool {
	states, err := ewmh.WmStateGet(b.xu, win)
	if err != nil {
		return false
	}
	for _, s := range states {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// clientRect returns the window's own geometry translated to root
// coordinates. Reparenting window managers nest clients inside frames, so
// the geometry's X and Y are relative to the frame.
func (b *Backend) clientRect(win xproto.Window) (capture.Rect, error) {
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	pos, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply()
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}
	return capture.Rect{
		X:      int(pos.DstX),
		Y:      int(pos.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// frameOf walks up the tree to the ancestor whose parent is root.
func (b *Backend) frameOf(win xproto.Window) xproto.Window {
	for {
		tree, err := xproto.QueryTree(b.conn, win).Reply()
		if err != nil || tree.Parent == b.root || tree.Parent == 0 {
			return win
		}
		win = tree.Parent
	}
}
