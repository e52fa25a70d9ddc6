package abi

import (
	"math"
	"strings"
	"testing"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/capturetest"
)

func newAPI(f *capturetest.Fake) *API {
	return New(capture.NewEngine(f))
}

func fakeDesktop() *capturetest.Fake {
	return &capturetest.Fake{
		SelfPID:    50,
		Foreground: 0x20,
		Monitors: []capturetest.Monitor{
			{Handle: 0x10, Name: `\\.\DISPLAY1`, Bounds: capture.Rect{X: -1920, Y: 0, Width: 1920, Height: 1080}, Primary: true, DPI: 120},
		},
		Windows: []capturetest.Window{
			{Handle: 0x20, Visible: true, PID: 60, Class: "Editor", Title: strings.Repeat("t", 400), AppName: "editor.exe",
				Rect: capture.Rect{X: 5, Y: 6, Width: 70, Height: 80}, Minimized: true},
			{Handle: 0x21, Visible: true, PID: 50, Class: "Mine", Title: "me", Rect: capture.Rect{Width: 10, Height: 10}},
		},
		Succeeds: map[string]bool{capturetest.FrontBuffer: true},
	}
}

func TestListAndReleaseMonitors(t *testing.T) {
	a := newAPI(fakeDesktop())

	var records []MonitorRecord
	if code := a.ListMonitors(&records); code != CodeOK {
		t.Fatalf("ListMonitors code = %d", code)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	r := records[0]
	if r.Handle != 0x10 || r.X != -1920 || r.Width != 1920 || r.Height != 1080 || !r.IsPrimary {
		t.Fatalf("record = %+v", r)
	}
	if r.ScaleFactor != 1.25 {
		t.Fatalf("scale = %v, want 1.25", r.ScaleFactor)
	}
	if got := Text(r.Name[:]); got != `\\.\DISPLAY1` {
		t.Fatalf("name = %q", got)
	}

	a.ReleaseMonitors(records)
	if records[0].Handle != 0 {
		t.Fatal("released records were not zeroed")
	}
	if m, _ := a.Outstanding(); m != 0 {
		t.Fatalf("%d monitor arrays outstanding", m)
	}
	// Second release is a no-op.
	a.ReleaseMonitors(records)
}

func TestListWindowsTruncatesText(t *testing.T) {
	a := newAPI(fakeDesktop())

	var records []WindowRecord
	if code := a.ListWindows(true, &records); code != CodeOK {
		t.Fatalf("ListWindows code = %d", code)
	}
	defer a.ReleaseWindows(records)

	if len(records) != 1 || records[0].PID == 50 {
		t.Fatalf("self exclusion failed: %+v", records)
	}
	title := Text(records[0].Title[:])
	if len(title) != TitleLen-1 {
		t.Fatalf("title length = %d, want %d", len(title), TitleLen-1)
	}
	if records[0].Title[TitleLen-1] != 0 {
		t.Fatal("title not NUL terminated")
	}
	if Text(records[0].AppName[:]) != "editor.exe" {
		t.Fatalf("app name = %q", Text(records[0].AppName[:]))
	}
}

func TestFailureLeavesOutputEmpty(t *testing.T) {
	a := newAPI(&capturetest.Fake{})

	monitors := []MonitorRecord{{Handle: 1}}
	if code := a.ListMonitors(&monitors); code != CodeNoMonitors || monitors != nil {
		t.Fatalf("ListMonitors = %d, %v", code, monitors)
	}
	windows := []WindowRecord{{Handle: 1}}
	if code := a.ListWindows(false, &windows); code != CodeNoWindows || windows != nil {
		t.Fatalf("ListWindows = %d, %v", code, windows)
	}
	buf := CaptureBuffer{Width: 9, Data: []byte{1}}
	if code := a.CaptureWindow(0x99, &buf); code != CodeNotFound || buf.Data != nil || buf.Width != 0 {
		t.Fatalf("CaptureWindow = %d, %+v", code, buf)
	}
	if code := a.CaptureRegion(0, 0, 0, 0, 10, &buf); code != CodeCaptureFailed {
		t.Fatalf("CaptureRegion zero width = %d", code)
	}
	buf = CaptureBuffer{Width: 9, Data: []byte{1}}
	if code := a.CaptureRegion(0, 0, 0, math.MaxUint32, math.MaxUint32, &buf); code != CodeAllocFailed || buf.Data != nil || buf.Width != 0 {
		t.Fatalf("CaptureRegion oversized = %d, %+v", code, buf)
	}
}

func TestCaptureAndRelease(t *testing.T) {
	a := newAPI(fakeDesktop())

	var buf CaptureBuffer
	if code := a.CaptureRegion(0x10, -1920, 0, 16, 8, &buf); code != CodeOK {
		t.Fatalf("CaptureRegion code = %d", code)
	}
	if buf.DataLength != 16*8*4 || buf.RowStride != 16*4 || uint32(len(buf.Data)) != buf.DataLength {
		t.Fatalf("buffer = %dx%d stride %d len %d", buf.Width, buf.Height, buf.RowStride, buf.DataLength)
	}

	alias := buf
	a.ReleaseCaptureBuffer(&buf)
	if buf.Data != nil || buf.DataLength != 0 {
		t.Fatal("buffer not zeroed on release")
	}
	if !alias.owner.Released() {
		t.Fatal("owner not released")
	}
	// Releasing a copy of the same record must not panic or double free.
	a.ReleaseCaptureBuffer(&alias)
	a.ReleaseCaptureBuffer(nil)

	var win CaptureBuffer
	if code := a.CaptureWindow(0x20, &win); code != CodeOK {
		t.Fatalf("CaptureWindow code = %d", code)
	}
	if win.Width != 70 || win.Height != 80 {
		t.Fatalf("window buffer %dx%d", win.Width, win.Height)
	}
	a.ReleaseCaptureBuffer(&win)
}

func TestAuxiliaryQueries(t *testing.T) {
	a := newAPI(fakeDesktop())

	var x, y uint32
	if code := a.GetMonitorDPI(0x10, &x, &y); code != CodeOK || x != 120 || y != 120 {
		t.Fatalf("GetMonitorDPI = %d, %d, %d", code, x, y)
	}
	if code := a.GetMonitorDPI(0x77, &x, nil); code != CodeOK || x != 96 {
		t.Fatalf("GetMonitorDPI unknown = %d, %d", code, x)
	}
	if !a.IsWindowMinimized(0x20) || a.IsWindowMaximized(0x20) {
		t.Fatal("window state mismatch")
	}
	if !a.IsWindowFocused(0x20) || a.IsWindowFocused(0x21) || a.IsWindowFocused(0x99) {
		t.Fatal("focus mismatch")
	}
	if a.GetFrontmostWindowID() != 0x20 || a.GetCurrentProcessID() != 50 {
		t.Fatalf("frontmost/pid = %x/%d", a.GetFrontmostWindowID(), a.GetCurrentProcessID())
	}
}

func TestRecordLength(t *testing.T) {
	tests := []struct {
		n    int64
		want uint32
		ok   bool
	}{
		{0, 0, true},
		{64 * 48 * 4, 64 * 48 * 4, true},
		{math.MaxUint32, math.MaxUint32, true},
		{math.MaxUint32 + 1, 0, false},
		{1 << 40, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		got, ok := recordLength(tt.n)
		if got != tt.want || ok != tt.ok {
			t.Errorf("recordLength(%d) = %d, %v; want %d, %v", tt.n, got, ok, tt.want, tt.ok)
		}
	}
}
