package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/config"
	"github.com/bryanchriswhite/screencap/internal/output"
	"github.com/gorilla/mux"
)

func (s *Server) config() *config.Config {
	if s.configMgr == nil {
		return config.Defaults()
	}
	return s.configMgr.Get()
}

func handleVar(r *http.Request) (capture.Handle, error) {
	return capture.ParseHandle(mux.Vars(r)["handle"])
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, v)
	}
	return b, nil
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.engine.ListMonitors()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, monitors)
}

func (s *Server) handleMonitorDPI(w http.ResponseWriter, r *http.Request) {
	h, err := handleVar(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if _, err := s.engine.Monitor(h); err != nil {
		s.writeError(w, err)
		return
	}
	dpi := s.engine.MonitorDPI(h)
	writeJSON(w, http.StatusOK, map[string]any{
		"dpi_x":        dpi,
		"dpi_y":        dpi,
		"scale_factor": capture.ScaleFromDPI(dpi),
	})
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	exclude, err := queryBool(r, "exclude_self", s.config().ExcludeSelf)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	windows, err := s.engine.ListWindows(exclude)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.engine.LocateWindows(windows)
	writeJSON(w, http.StatusOK, windows)
}

type windowState struct {
	Handle    capture.Handle `json:"handle"`
	Minimized bool           `json:"minimized"`
	Maximized bool           `json:"maximized"`
	Focused   bool           `json:"focused"`
}

func (s *Server) handleWindowState(w http.ResponseWriter, r *http.Request) {
	h, err := handleVar(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	state := windowState{Handle: h}
	if state.Minimized, err = s.engine.IsWindowMinimized(h); err != nil {
		s.writeError(w, err)
		return
	}
	if state.Maximized, err = s.engine.IsWindowMaximized(h); err != nil {
		s.writeError(w, err)
		return
	}
	if state.Focused, err = s.engine.IsWindowFocused(h); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleFrontmost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"handle":             s.engine.FrontmostWindow(),
		"current_process_id": s.engine.CurrentProcessID(),
	})
}

func (s *Server) handleCaptureMonitor(w http.ResponseWriter, r *http.Request) {
	h, err := handleVar(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.serveCapture(w, r, func() (*capture.CaptureBuffer, error) {
		return s.engine.CaptureMonitor(h)
	})
}

func (s *Server) handleCaptureRegion(w http.ResponseWriter, r *http.Request) {
	var target capture.Handle
	if v := r.URL.Query().Get("monitor"); v != "" {
		h, err := capture.ParseHandle(v)
		if err != nil {
			s.badRequest(w, err)
			return
		}
		target = h
	}
	var x, y, width, height int
	for _, p := range []struct {
		name string
		dst  *int
	}{{"x", &x}, {"y", &y}, {"width", &width}, {"height", &height}} {
		v, err := queryInt(r, p.name, 0)
		if err != nil {
			s.badRequest(w, err)
			return
		}
		*p.dst = v
	}
	s.serveCapture(w, r, func() (*capture.CaptureBuffer, error) {
		return s.engine.CaptureRegion(target, x, y, width, height)
	})
}

func (s *Server) handleCaptureWindow(w http.ResponseWriter, r *http.Request) {
	h, err := handleVar(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.serveCapture(w, r, func() (*capture.CaptureBuffer, error) {
		return s.engine.CaptureWindow(h)
	})
}

// serveCapture runs grab, encodes the result in the requested format and
// releases the pixel buffer before writing the response.
func (s *Server) serveCapture(w http.ResponseWriter, r *http.Request, grab func() (*capture.CaptureBuffer, error)) {
	cfg := s.config()
	format, err := output.ParseFormat(cfg.ImageFormat)
	if v := r.URL.Query().Get("format"); v != "" {
		format, err = output.ParseFormat(v)
	}
	if err != nil {
		s.badRequest(w, err)
		return
	}
	maxWidth, err := queryInt(r, "max_width", 0)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	buf, err := grab()
	if err != nil {
		s.writeError(w, err)
		return
	}
	img, err := buf.RGBA()
	buf.Release()
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body bytes.Buffer
	if err := output.NewEncoder(format, cfg.JPEGQuality).Encode(&body, output.Fit(img, maxWidth)); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode capture")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "ENCODE_FAILED"})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.Write(body.Bytes())
}
