package capture_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/capturetest"
)

func TestCaptureRegionZeroSizeTouchesNothing(t *testing.T) {
	for _, size := range [][2]int{{0, 10}, {10, 0}, {0, 0}, {-3, 5}} {
		f := twoMonitors()
		buf, err := capture.NewEngine(f).CaptureRegion(1, 0, 0, size[0], size[1])
		if buf != nil {
			t.Fatalf("%v: got a buffer", size)
		}
		if capture.CodeOf(err) != capture.CaptureFailed {
			t.Fatalf("%v: code = %v, want CAPTURE_FAILED", size, capture.CodeOf(err))
		}
		if calls := f.Calls(); len(calls) != 0 {
			t.Fatalf("%v: OS calls issued: %v", size, calls)
		}
	}
}

func TestCaptureRegion(t *testing.T) {
	f := twoMonitors()
	f.Fill = [4]byte{0x10, 0x20, 0x30, 0x00}
	e := capture.NewEngine(f)

	buf, err := e.CaptureRegion(1, 10, 20, 64, 48)
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	if buf.Width != 64 || buf.Height != 48 || buf.Stride != 64*4 {
		t.Fatalf("geometry = %dx%d stride %d", buf.Width, buf.Height, buf.Stride)
	}
	if got, want := buf.Len(), 64*48*4; got != want {
		t.Fatalf("data length = %d, want %d", got, want)
	}
	if f.OpenSurfaces() != 0 {
		t.Fatalf("%d surfaces left open", f.OpenSurfaces())
	}

	img, err := buf.RGBA()
	if err != nil {
		t.Fatalf("RGBA: %v", err)
	}
	if got := img.RGBAAt(5, 5); got.R != 0x30 || got.G != 0x20 || got.B != 0x10 || got.A != 0xff {
		t.Fatalf("pixel = %+v, want BGRA swapped to RGBA", got)
	}

	if err := buf.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if buf.Data() != nil {
		t.Fatal("data still reachable after release")
	}
	if err := buf.Release(); !errors.Is(err, capture.ErrReleased) {
		t.Fatalf("second Release err = %v, want ErrReleased", err)
	}
	if _, err := buf.RGBA(); !errors.Is(err, capture.ErrReleased) {
		t.Fatalf("RGBA after release err = %v", err)
	}
}

func TestCaptureRegionVirtualDesktop(t *testing.T) {
	f := twoMonitors()
	buf, err := capture.NewEngine(f).CaptureRegion(0, -1280, 0, 3200, 1080)
	if err != nil {
		t.Fatalf("CaptureRegion spanning displays: %v", err)
	}
	defer buf.Release()
	for _, call := range f.Calls() {
		if strings.HasPrefix(call, "MonitorInfo") {
			t.Fatalf("zero target should not resolve a monitor: %v", f.Calls())
		}
	}
}

func TestCaptureRegionFailures(t *testing.T) {
	tests := []struct {
		name   string
		target capture.Handle
		setup  func(*capturetest.Fake)
		opts   []capture.Option
		want   capture.Code
	}{
		{"stale monitor", 9, nil, nil, capture.NotFound},
		{"surface unavailable", 1, func(f *capturetest.Fake) { f.OpenScreenErr = capturetest.ErrInjected }, nil, capture.CaptureFailed},
		{"copy fails", 1, func(f *capturetest.Fake) { f.CopyErr = capturetest.ErrInjected }, nil, capture.CaptureFailed},
		{"readback fails", 1, func(f *capturetest.Fake) { f.ReadErr = capturetest.ErrInjected }, nil, capture.CaptureFailed},
		{"buffer too large", 1, nil, []capture.Option{capture.WithMaxBufferBytes(1024)}, capture.AllocFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := twoMonitors()
			if tt.setup != nil {
				tt.setup(f)
			}
			buf, err := capture.NewEngine(f, tt.opts...).CaptureRegion(tt.target, 0, 0, 100, 100)
			if buf != nil {
				t.Fatal("partial buffer returned")
			}
			if got := capture.CodeOf(err); got != tt.want {
				t.Fatalf("code = %v, want %v (%v)", got, tt.want, err)
			}
			if f.OpenSurfaces() != 0 {
				t.Fatalf("%d surfaces left open", f.OpenSurfaces())
			}
		})
	}
}

func TestCaptureMonitor(t *testing.T) {
	f := twoMonitors()
	buf, err := capture.NewEngine(f).CaptureMonitor(2)
	if err != nil {
		t.Fatalf("CaptureMonitor: %v", err)
	}
	defer buf.Release()
	if buf.Width != 1280 || buf.Height != 1024 {
		t.Fatalf("size = %dx%d, want 1280x1024", buf.Width, buf.Height)
	}
	if calls := f.Calls(); !contains(calls, "OpenScreen:-1280,0,1280,1024") {
		t.Fatalf("monitor bounds not used: %v", calls)
	}
}

func contains(calls []string, want string) bool {
	for _, c := range calls {
		if c == want {
			return true
		}
	}
	return false
}

func renders(calls []string) []string {
	var out []string
	for _, c := range calls {
		if strings.HasPrefix(c, "Render:") {
			out = append(out, strings.TrimPrefix(c, "Render:"))
		}
	}
	return out
}

func oneWindow() *capturetest.Fake {
	return &capturetest.Fake{Windows: []capturetest.Window{
		{Handle: 7, Visible: true, Class: "Notepad", Rect: capture.Rect{X: 10, Y: 10, Width: 320, Height: 200}},
	}}
}

func TestCaptureWindowChainOrder(t *testing.T) {
	tests := []struct {
		name        string
		fullContent bool
		composition bool
		succeeds    []string
		wantRenders []string
	}{
		{
			name:        "full content first when supported",
			fullContent: true,
			succeeds:    []string{capturetest.FullContent},
			wantRenders: []string{capturetest.FullContent},
		},
		{
			name:        "default render before alternate under composition",
			composition: true,
			succeeds:    []string{capturetest.Default, capturetest.Alternate},
			wantRenders: []string{capturetest.Default},
		},
		{
			name:        "default render skipped without composition",
			succeeds:    []string{capturetest.Default, capturetest.Alternate},
			wantRenders: []string{capturetest.Alternate},
		},
		{
			name:        "front buffer is the last resort",
			fullContent: true,
			composition: true,
			succeeds:    []string{capturetest.FrontBuffer},
			wantRenders: []string{capturetest.FullContent, capturetest.Default, capturetest.Alternate, capturetest.FrontBuffer},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := oneWindow()
			f.FullContent = tt.fullContent
			f.Composition = tt.composition
			f.Succeeds = map[string]bool{}
			for _, s := range tt.succeeds {
				f.Succeeds[s] = true
			}

			buf, err := capture.NewEngine(f).CaptureWindow(7)
			if err != nil {
				t.Fatalf("CaptureWindow: %v", err)
			}
			defer buf.Release()
			if got := renders(f.Calls()); !reflect.DeepEqual(got, tt.wantRenders) {
				t.Fatalf("renders = %v, want %v", got, tt.wantRenders)
			}
			if buf.Width != 320 || buf.Height != 200 || buf.Len() != 320*200*4 {
				t.Fatalf("buffer %dx%d len %d", buf.Width, buf.Height, buf.Len())
			}
			if f.OpenSurfaces() != 0 {
				t.Fatalf("%d surfaces left open", f.OpenSurfaces())
			}
		})
	}
}

func TestCaptureWindowCompositionQueriedLazily(t *testing.T) {
	f := oneWindow()
	f.FullContent = true
	f.Succeeds = map[string]bool{capturetest.FullContent: true}

	buf, err := capture.NewEngine(f).CaptureWindow(7)
	if err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	defer buf.Release()
	if contains(f.Calls(), "CompositionEnabled") {
		t.Fatalf("composition queried after first strategy succeeded: %v", f.Calls())
	}
}

func TestCaptureWindowFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*capturetest.Fake)
		want  capture.Code
		open  bool
	}{
		{"closed window", func(f *capturetest.Fake) { f.Windows[0].Closed = true }, capture.NotFound, false},
		{"shrunk to nothing", func(f *capturetest.Fake) { f.Windows[0].Rect.Height = 0 }, capture.CaptureFailed, false},
		{"rectangle unavailable", func(f *capturetest.Fake) { f.Windows[0].NoRect = true }, capture.CaptureFailed, false},
		{"surface unavailable", func(f *capturetest.Fake) { f.OpenWindowErr = capturetest.ErrInjected }, capture.CaptureFailed, false},
		{"every strategy fails", func(f *capturetest.Fake) {}, capture.CaptureFailed, true},
		{"readback fails", func(f *capturetest.Fake) {
			f.Succeeds = map[string]bool{capturetest.FrontBuffer: true}
			f.ReadErr = capturetest.ErrInjected
		}, capture.CaptureFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := oneWindow()
			f.FullContent = true
			f.Composition = true
			tt.setup(f)

			buf, err := capture.NewEngine(f).CaptureWindow(7)
			if buf != nil {
				t.Fatal("partial buffer returned")
			}
			if got := capture.CodeOf(err); got != tt.want {
				t.Fatalf("code = %v, want %v (%v)", got, tt.want, err)
			}
			if opened := f.SurfacesOpened() > 0; opened != tt.open {
				t.Fatalf("surface opened = %v, want %v", opened, tt.open)
			}
			if f.OpenSurfaces() != 0 {
				t.Fatalf("%d surfaces left open", f.OpenSurfaces())
			}
		})
	}
}

func TestCaptureWindowAllocFailure(t *testing.T) {
	f := oneWindow()
	f.Succeeds = map[string]bool{capturetest.Alternate: true}

	buf, err := capture.NewEngine(f, capture.WithMaxBufferBytes(320*4)).CaptureWindow(7)
	if buf != nil || !errors.Is(err, capture.ErrAllocFailed) {
		t.Fatalf("CaptureWindow = %v, %v; want ALLOC_FAILED", buf, err)
	}
	if f.SurfacesOpened() != 0 {
		t.Fatalf("oversized window reached the backend: %v", f.Calls())
	}
}

func TestCaptureRegionOversizedNeverOpensSurface(t *testing.T) {
	for _, size := range [][2]int{{40000, 40000}, {1 << 30, 3 << 29}} {
		f := twoMonitors()
		buf, err := capture.NewEngine(f).CaptureRegion(0, 0, 0, size[0], size[1])
		if buf != nil {
			t.Fatalf("%v: got a buffer", size)
		}
		if capture.CodeOf(err) != capture.AllocFailed {
			t.Fatalf("%v: code = %v, want ALLOC_FAILED (%v)", size, capture.CodeOf(err), err)
		}
		for _, call := range f.Calls() {
			if strings.HasPrefix(call, "OpenScreen") {
				t.Fatalf("%v: surface opened: %v", size, f.Calls())
			}
		}
	}
}

func TestCaptureRegionAtLimit(t *testing.T) {
	f := twoMonitors()
	buf, err := capture.NewEngine(f, capture.WithMaxBufferBytes(16*8*4)).CaptureRegion(0, 0, 0, 16, 8)
	if err != nil {
		t.Fatalf("region exactly at the limit: %v", err)
	}
	buf.Release()

	if _, err := capture.NewEngine(f, capture.WithMaxBufferBytes(16*8*4)).CaptureRegion(0, 0, 0, 16, 9); capture.CodeOf(err) != capture.AllocFailed {
		t.Fatalf("one row over the limit: %v", err)
	}
}
