//go:build windows

package win32

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// Enumeration callbacks are created once: Windows caps the number of
// callbacks a process may create. Each EnumWindows/EnumDisplayMonitors call
// registers its visitor under a token passed through lParam.
var (
	visitorsMu sync.Mutex
	visitors   = map[uintptr]*visitor{}
	nextToken  uintptr

	windowEnumProc  = windows.NewCallback(windowEnumCallback)
	monitorEnumProc = windows.NewCallback(monitorEnumCallback)
)

type visitor struct {
	visit   func(capture.Handle) bool
	stopped bool
}

func register(visit func(capture.Handle) bool) (uintptr, *visitor) {
	visitorsMu.Lock()
	defer visitorsMu.Unlock()
	nextToken++
	v := &visitor{visit: visit}
	visitors[nextToken] = v
	return nextToken, v
}

func unregister(token uintptr) {
	visitorsMu.Lock()
	delete(visitors, token)
	visitorsMu.Unlock()
}

func dispatch(token, handle uintptr) uintptr {
	visitorsMu.Lock()
	v := visitors[token]
	visitorsMu.Unlock()
	if v == nil {
		return 0
	}
	if !v.visit(capture.Handle(handle)) {
		v.stopped = true
		return 0
	}
	return 1
}

func windowEnumCallback(hwnd, lparam uintptr) uintptr {
	return dispatch(lparam, hwnd)
}

func monitorEnumCallback(hmonitor, hdc, rect, lparam uintptr) uintptr {
	return dispatch(lparam, hmonitor)
}

// enumerate runs an Enum* API and reports its failure unless the visitor
// itself stopped the walk.
func enumerate(op string, proc *windows.LazyProc, visit func(capture.Handle) bool, args func(token uintptr) []uintptr) error {
	token, v := register(visit)
	defer unregister(token)
	r, _, callErr := proc.Call(args(token)...)
	if r == 0 && !v.stopped {
		return fmt.Errorf("%s: %w", op, callErr)
	}
	return nil
}

type monitorInfoEx struct {
	win.MONITORINFO
	DeviceName [win.CCHDEVICENAME]uint16
}

// EnumMonitors visits every display in EnumDisplayMonitors order.
func (b *Backend) EnumMonitors(visit func(capture.Handle) bool) error {
	return enumerate("EnumDisplayMonitors", procEnumDisplayMonitors, visit, func(token uintptr) []uintptr {
		return []uintptr{0, 0, monitorEnumProc, token}
	})
}

// MonitorInfo reads the device name, bounds and primary flag.
func (b *Backend) MonitorInfo(h capture.Handle) (capture.MonitorInfo, error) {
	var info monitorInfoEx
	info.CbSize = uint32(unsafe.Sizeof(info))
	if !callBool(procGetMonitorInfo, uintptr(h), uintptr(unsafe.Pointer(&info))) {
		return capture.MonitorInfo{}, fmt.Errorf("GetMonitorInfoW failed for monitor %s", h)
	}
	return capture.MonitorInfo{
		Name:    windows.UTF16ToString(info.DeviceName[:]),
		Bounds:  rectFromWin(info.RcMonitor),
		Primary: info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
	}, nil
}

// MonitorDPI asks shcore for the effective DPI. Before Windows 8.1 shcore
// has no GetDpiForMonitor and the lookup fails.
func (b *Backend) MonitorDPI(h capture.Handle) (uint32, error) {
	if err := procGetDpiForMonitor.Find(); err != nil {
		return 0, err
	}
	var dpiX, dpiY uint32
	hr, _, _ := procGetDpiForMonitor.Call(uintptr(h), mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
	if !succeeded(hr) {
		return 0, fmt.Errorf("GetDpiForMonitor: HRESULT 0x%08x", uint32(hr))
	}
	return dpiX, nil
}

// EnumWindows visits top-level windows in Z order.
func (b *Backend) EnumWindows(visit func(capture.Handle) bool) error {
	return enumerate("EnumWindows", procEnumWindows, visit, func(token uintptr) []uintptr {
		return []uintptr{windowEnumProc, token}
	})
}

func (b *Backend) IsVisible(h capture.Handle) bool {
	return win.IsWindowVisible(hwnd(h))
}

// IsCloaked reports windows DWM keeps but does not draw, such as those on
// another virtual desktop or suspended UWP frames.
func (b *Backend) IsCloaked(h capture.Handle) bool {
	if procDwmGetWindowAttribute.Find() != nil {
		return false
	}
	var cloaked uint32
	hr, _, _ := procDwmGetWindowAttribute.Call(uintptr(h), dwmwaCloaked,
		uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked))
	return succeeded(hr) && cloaked != 0
}

func (b *Backend) ProcessID(h capture.Handle) uint32 {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(h), &pid); err != nil {
		return 0
	}
	return pid
}

func (b *Backend) IsToolWindow(h capture.Handle) bool {
	return win.GetWindowLongPtr(hwnd(h), win.GWL_EXSTYLE)&win.WS_EX_TOOLWINDOW != 0
}

func (b *Backend) ClassName(h capture.Handle) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(windows.HWND(h), &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func (b *Backend) WindowRect(h capture.Handle) (capture.Rect, bool) {
	var r win.RECT
	if !win.GetWindowRect(hwnd(h), &r) {
		return capture.Rect{}, false
	}
	return rectFromWin(r), true
}

// ExtendedFrameBounds excludes the invisible resize borders Windows 10 adds
// around GetWindowRect.
func (b *Backend) ExtendedFrameBounds(h capture.Handle) (capture.Rect, bool) {
	if procDwmGetWindowAttribute.Find() != nil {
		return capture.Rect{}, false
	}
	var r win.RECT
	hr, _, _ := procDwmGetWindowAttribute.Call(uintptr(h), dwmwaExtendedFrameBounds,
		uintptr(unsafe.Pointer(&r)), unsafe.Sizeof(r))
	if !succeeded(hr) {
		return capture.Rect{}, false
	}
	return rectFromWin(r), true
}

// Title reads the caption with GetWindowTextW. Longer captions are cut
// at 511 code units; the record layer bounds them further.
func (b *Backend) Title(h capture.Handle) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowText.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 || int(n) > len(buf) {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// ProcessName opens pid with query-only rights and returns the base name of
// its image.
func (b *Backend) ProcessName(pid uint32) (string, error) {
	if pid == 0 {
		return "", errors.New("no process id")
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

func (b *Backend) IsWindow(h capture.Handle) bool {
	return h != 0 && callBool(procIsWindow, uintptr(h))
}

func (b *Backend) IsMinimized(h capture.Handle) bool {
	return callBool(procIsIconic, uintptr(h))
}

func (b *Backend) IsMaximized(h capture.Handle) bool {
	return callBool(procIsZoomed, uintptr(h))
}

func (b *Backend) ForegroundWindow() capture.Handle {
	return capture.Handle(win.GetForegroundWindow())
}
