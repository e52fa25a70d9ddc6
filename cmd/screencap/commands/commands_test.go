package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/capturetest"
	"github.com/bryanchriswhite/screencap/internal/output"
)

func desktop() *capturetest.Fake {
	return &capturetest.Fake{
		SelfPID:    1,
		Foreground: 0x21,
		Monitors: []capturetest.Monitor{
			{Handle: 0x10, Name: "DP-1", Bounds: capture.Rect{Width: 40, Height: 20}, Primary: true, DPI: 96},
			{Handle: 0x11, Name: "HDMI-1", Bounds: capture.Rect{X: 40, Width: 30, Height: 20}, DPI: 96},
		},
		Windows: []capturetest.Window{
			{Handle: 0x21, Visible: true, PID: 2, Class: "Term", Title: "shell", AppName: "term",
				Rect: capture.Rect{Width: 100, Height: 80}},
			{Handle: 0x22, Visible: true, PID: 3, Class: "Edit", Title: "notes", AppName: "editor",
				Rect: capture.Rect{Width: 100, Height: 80}, Minimized: true},
			{Handle: 0x23, Visible: true, PID: 4, Class: "Tray", Title: "tiny", AppName: "tray",
				Rect: capture.Rect{Width: 20, Height: 20}},
		},
		Succeeds: map[string]bool{capturetest.Alternate: true},
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCaptureAllMonitors(t *testing.T) {
	f := desktop()
	engine := capture.NewEngine(f)
	dir := t.TempDir()
	var out bytes.Buffer

	n, err := captureAllMonitors(context.Background(), engine, output.NewEncoder(output.PNG, 0), dir, &out)
	if err != nil {
		t.Fatalf("captureAllMonitors: %v", err)
	}
	if n != 2 {
		t.Fatalf("captured %d monitors, want 2", n)
	}
	names := dirEntries(t, dir)
	want := []string{"monitor_1_DP-1.png", "monitor_2_HDMI-1.png"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", names, want)
	}
	if open := f.OpenSurfaces(); open != 0 {
		t.Fatalf("%d surfaces left open", open)
	}
}

func TestCaptureAllMonitorsReportsFailure(t *testing.T) {
	f := desktop()
	f.CopyErr = capturetest.ErrInjected
	dir := t.TempDir()

	n, err := captureAllMonitors(context.Background(), capture.NewEngine(f), output.NewEncoder(output.PNG, 0), dir, &bytes.Buffer{})
	if !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("err = %v, want CAPTURE_FAILED", err)
	}
	if n != 0 || len(dirEntries(t, dir)) != 0 {
		t.Fatalf("expected no output, got n=%d files=%v", n, dirEntries(t, dir))
	}
}

func TestCaptureAllWindowsSkipsMinimizedAndTiny(t *testing.T) {
	f := desktop()
	dir := t.TempDir()
	var out bytes.Buffer

	n, err := captureAllWindows(capture.NewEngine(f), output.NewEncoder(output.JPEG, 80), dir, true, &out)
	if err != nil {
		t.Fatalf("captureAllWindows: %v", err)
	}
	if n != 1 {
		t.Fatalf("captured %d windows, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "window_1_term_shell.jpg")); err != nil {
		t.Fatalf("expected window file: %v (have %v)", err, dirEntries(t, dir))
	}
	if !strings.Contains(out.String(), "[focused]") {
		t.Fatalf("focused window not marked:\n%s", out.String())
	}
}

func TestCaptureAllWindowsNoWindows(t *testing.T) {
	f := desktop()
	f.Windows = nil

	_, err := captureAllWindows(capture.NewEngine(f), output.NewEncoder(output.PNG, 0), t.TempDir(), true, &bytes.Buffer{})
	if !errors.Is(err, capture.ErrNoWindows) {
		t.Fatalf("err = %v, want NO_WINDOWS", err)
	}
}

func TestCollectState(t *testing.T) {
	engine := capture.NewEngine(desktop())

	r, err := collectState(engine, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Frontmost != 0x21 || r.CurrentProcessID != 1 || r.Window != nil {
		t.Fatalf("report = %+v", r)
	}

	h := capture.Handle(0x22)
	r, err = collectState(engine, &h)
	if err != nil {
		t.Fatal(err)
	}
	if !*r.Minimized || *r.Maximized || *r.Focused {
		t.Fatalf("report = %+v", r)
	}

	missing := capture.Handle(0x99)
	if _, err := collectState(engine, &missing); !errors.Is(err, capture.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestWriteListing(t *testing.T) {
	monitors := []capture.Monitor{{Handle: 0x10, Name: "DP-1", Primary: true, ScaleFactor: 1}}

	var table bytes.Buffer
	if err := writeListing(&table, "table", monitors, func(w io.Writer) { printMonitorsTable(w, monitors) }); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(table.String(), "DP-1") || !strings.Contains(table.String(), "Yes") {
		t.Fatalf("table output:\n%s", table.String())
	}

	var js bytes.Buffer
	if err := writeListing(&js, "json", monitors, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(js.String()), "[") {
		t.Fatalf("json output: %s", js.String())
	}

	if err := writeListing(&js, "xml", monitors, nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPrintWindowsTable(t *testing.T) {
	windows := []capture.Window{
		{Handle: 0x21, PID: 2, AppName: "term", Title: "shell", Z: 1, Monitor: 0x10, Bounds: capture.Rect{Width: 100, Height: 80}},
		{Handle: 0x22, PID: 3, AppName: "ghost", Title: "offscreen", Bounds: capture.Rect{X: -9000, Width: 10, Height: 10}},
	}
	var out bytes.Buffer
	printWindowsTable(&out, windows)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 || !strings.Contains(lines[0], "MONITOR") {
		t.Fatalf("table:\n%s", out.String())
	}
	if fields := strings.Fields(lines[2]); fields[1] != "1" || fields[len(fields)-1] != "0x10" {
		t.Fatalf("row = %q", lines[2])
	}
	if fields := strings.Fields(lines[3]); fields[len(fields)-1] != "-" {
		t.Fatalf("unplaced window row = %q", lines[3])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long title", 5, "too …"},
		{"日本語のタイトル", 4, "日本語…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
