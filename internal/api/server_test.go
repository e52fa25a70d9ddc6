package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/capture/capturetest"
	"github.com/bryanchriswhite/screencap/internal/config"
	"github.com/gorilla/websocket"
)

func fakeDesktop() *capturetest.Fake {
	return &capturetest.Fake{
		SelfPID:    7,
		Foreground: 0x30,
		Monitors: []capturetest.Monitor{
			{Handle: 0x10, Name: "DP-1", Bounds: capture.Rect{Width: 64, Height: 32}, Primary: true, DPI: 144},
		},
		Windows: []capturetest.Window{
			{Handle: 0x30, Visible: true, PID: 9, Class: "Term", Title: "shell", AppName: "term",
				Rect: capture.Rect{X: 1, Y: 2, Width: 20, Height: 10}, Maximized: true},
			{Handle: 0x31, Visible: true, PID: 7, Class: "Self", Title: "me", Rect: capture.Rect{Width: 5, Height: 5}},
		},
		Succeeds: map[string]bool{capturetest.Alternate: true},
		Fill:     [4]byte{0x10, 0x20, 0x30, 0x00},
	}
}

func newTestServer(f *capturetest.Fake) *httptest.Server {
	return httptest.NewServer(NewServer(capture.NewEngine(f), nil).Handler())
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(fakeDesktop())
	defer srv.Close()

	var body map[string]string
	getJSON(t, srv.URL+"/api/health", http.StatusOK, &body)
	if body["status"] != "healthy" || body["backend"] != "fake" {
		t.Fatalf("health = %v", body)
	}
}

func TestListEndpoints(t *testing.T) {
	srv := newTestServer(fakeDesktop())
	defer srv.Close()

	var monitors []capture.Monitor
	getJSON(t, srv.URL+"/api/monitors", http.StatusOK, &monitors)
	if len(monitors) != 1 || monitors[0].ScaleFactor != 1.5 {
		t.Fatalf("monitors = %+v", monitors)
	}

	var windows []capture.Window
	getJSON(t, srv.URL+"/api/windows", http.StatusOK, &windows)
	if len(windows) != 1 || windows[0].PID != 9 {
		t.Fatalf("default listing should exclude pid 7: %+v", windows)
	}
	if windows[0].Monitor != 0x10 || windows[0].Z != 0 {
		t.Fatalf("window placement = monitor %s z %d, want 0x10 z 0", windows[0].Monitor, windows[0].Z)
	}
	getJSON(t, srv.URL+"/api/windows?exclude_self=false", http.StatusOK, &windows)
	if len(windows) != 2 {
		t.Fatalf("got %d windows with exclude_self=false", len(windows))
	}

	var dpi map[string]float64
	getJSON(t, srv.URL+"/api/monitors/0x10/dpi", http.StatusOK, &dpi)
	if dpi["dpi_x"] != 144 {
		t.Fatalf("dpi = %v", dpi)
	}
}

func TestErrorStatuses(t *testing.T) {
	f := fakeDesktop()
	f.Windows = nil
	srv := newTestServer(f)
	defer srv.Close()

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/windows", http.StatusNotFound, "NO_WINDOWS"},
		{"/api/windows/0x99/state", http.StatusNotFound, "NOT_FOUND"},
		{"/api/monitors/0x99/capture", http.StatusNotFound, "NOT_FOUND"},
		{"/api/region/capture?width=0&height=4", http.StatusBadGateway, "CAPTURE_FAILED"},
		{"/api/region/capture?width=40000&height=40000", http.StatusInsufficientStorage, "ALLOC_FAILED"},
		{"/api/monitors/nope/dpi", http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		var body errorResponse
		getJSON(t, srv.URL+tt.path, tt.status, &body)
		if body.Code != tt.code {
			t.Fatalf("%s code = %q, want %q", tt.path, body.Code, tt.code)
		}
	}
}

func TestWindowState(t *testing.T) {
	srv := newTestServer(fakeDesktop())
	defer srv.Close()

	var state windowState
	getJSON(t, srv.URL+"/api/windows/0x30/state", http.StatusOK, &state)
	if !state.Maximized || state.Minimized || !state.Focused {
		t.Fatalf("state = %+v", state)
	}
}

func TestCaptureEncodesPNG(t *testing.T) {
	f := fakeDesktop()
	srv := newTestServer(f)
	defer srv.Close()

	for _, path := range []string{"/api/monitors/0x10/capture", "/api/windows/0x30/capture", "/api/region/capture?x=0&y=0&width=8&height=4"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
			resp.Body.Close()
			t.Fatalf("%s: status %d type %q", path, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
		img, err := png.Decode(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if img.Bounds().Empty() {
			t.Fatalf("%s: empty image", path)
		}
	}
	if n := f.OpenSurfaces(); n != 0 {
		t.Fatalf("%d surfaces left open", n)
	}
}

func TestCaptureMaxWidth(t *testing.T) {
	srv := newTestServer(fakeDesktop())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/monitors/0x10/capture?max_width=16")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("bounds = %v, want 16x8", b)
	}
}

const trustedOrigin = "http://localhost:3000"

func newTrustedServer(t *testing.T, f *capturetest.Fake) *httptest.Server {
	t.Helper()
	configMgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := configMgr.Set("server.allowed_origins", trustedOrigin+"/"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	return httptest.NewServer(NewServer(capture.NewEngine(f), configMgr).Handler())
}

func TestAllowedOriginPreflight(t *testing.T) {
	srv := newTrustedServer(t, fakeDesktop())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/monitors", nil)
	req.Header.Set("Origin", trustedOrigin)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != trustedOrigin {
		t.Fatalf("preflight status %d headers %v", resp.StatusCode, resp.Header)
	}
}

func TestNoOriginGetsNoCORSHeaders(t *testing.T) {
	srv := newTestServer(fakeDesktop())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want none", got)
	}
}

func TestForeignOriginRefused(t *testing.T) {
	f := fakeDesktop()
	srv := newTrustedServer(t, f)
	defer srv.Close()

	for _, path := range []string{"/api/monitors/0x10/capture", "/api/windows/0x30/capture", "/api/monitors"} {
		for _, method := range []string{http.MethodGet, http.MethodOptions} {
			req, _ := http.NewRequest(method, srv.URL+path, nil)
			req.Header.Set("Origin", "https://evil.example")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("%s %s status = %d, want 403", method, path, resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
				t.Fatalf("%s %s Access-Control-Allow-Origin = %q", method, path, got)
			}
		}
	}
	if n := f.SurfacesOpened(); n != 0 {
		t.Fatalf("refused requests still captured %d surfaces", n)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("websocket from a foreign origin was accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("websocket dial response = %v", resp)
	}

	header.Set("Origin", trustedOrigin)
	conn, _, err = websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("websocket from a trusted origin: %v", err)
	}
	conn.Close()
}

func TestWebSocketRPC(t *testing.T) {
	f := fakeDesktop()
	srv := newTestServer(f)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	call := func(req string) map[string]any {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp map[string]any
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		return resp
	}

	resp := call(`{"id":1,"op":"list_windows","args":{"exclude_current_process":true}}`)
	if resp["code"].(float64) != 0 || len(resp["result"].([]any)) != 1 {
		t.Fatalf("list_windows = %v", resp)
	}

	resp = call(`{"id":2,"op":"capture_region","args":{"x":0,"y":0,"width":4,"height":2}}`)
	result := resp["result"].(map[string]any)
	if result["data_length"].(float64) != 32 || result["row_stride"].(float64) != 16 {
		t.Fatalf("capture_region = %v", resp)
	}

	resp = call(`{"id":3,"op":"capture_window","args":{"window":4095}}`)
	if resp["code"].(float64) != 5 || resp["error"] != "NOT_FOUND" {
		t.Fatalf("capture_window on missing handle = %v", resp)
	}

	resp = call(`{"op":"get_current_process_id"}`)
	if resp["result"].(float64) != 7 {
		t.Fatalf("get_current_process_id = %v", resp)
	}

	resp = call(`{"op":"bogus"}`)
	if resp["code"].(float64) != -1 {
		t.Fatalf("bogus op = %v", resp)
	}
}
