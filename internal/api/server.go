package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/screencap/internal/abi"
	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/config"
	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Version is reported by /api/health.
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	engine    *capture.Engine
	abi       *abi.API
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	origins   map[string]struct{}
	log       *zerolog.Logger
}

// NewServer creates a new API server. configMgr supplies the default image
// format, whether window listings exclude this process and which browser
// origins may call the API.
func NewServer(engine *capture.Engine, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		engine:    engine,
		abi:       abi.New(engine),
		configMgr: configMgr,
		origins:   make(map[string]struct{}),
		log:       logger.WithComponent("api"),
	}
	if configMgr != nil {
		for _, o := range configMgr.Get().Server.AllowedOrigins {
			s.origins[o] = struct{}{}
		}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Monitors
	api.HandleFunc("/monitors", s.handleListMonitors).Methods("GET")
	api.HandleFunc("/monitors/{handle}/dpi", s.handleMonitorDPI).Methods("GET")
	api.HandleFunc("/monitors/{handle}/capture", s.handleCaptureMonitor).Methods("GET")
	api.HandleFunc("/region/capture", s.handleCaptureRegion).Methods("GET")

	// Windows
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")
	api.HandleFunc("/windows/{handle}/state", s.handleWindowState).Methods("GET")
	api.HandleFunc("/windows/{handle}/capture", s.handleCaptureWindow).Methods("GET")
	api.HandleFunc("/frontmost", s.handleFrontmost).Methods("GET")

	// Record-level RPC over a websocket
	api.HandleFunc("/ws", s.handleRPC)

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on host:port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", "http://"+addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// originAllowed accepts requests without an Origin header, which browsers
// always send cross-origin, and requests from a configured origin. The API
// hands out screen contents, so an arbitrary page must not read it even
// when the server only listens on loopback.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

// enableCORS refuses foreign origins and echoes allowed ones
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if !s.originAllowed(r) {
			s.log.Warn().Str("origin", r.Header.Get("Origin")).Str("path", r.URL.Path).Msg("Refusing cross-origin request")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "origin not allowed", Code: "FORBIDDEN"})
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a capture error code to an HTTP status.
func statusFor(code capture.Code) int {
	switch code {
	case capture.OK:
		return http.StatusOK
	case capture.NotFound, capture.NoMonitors, capture.NoWindows:
		return http.StatusNotFound
	case capture.AllocFailed:
		return http.StatusInsufficientStorage
	case capture.CaptureFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := capture.CodeOf(err)
	s.log.Debug().Err(err).Stringer("code", code).Msg("request failed")
	writeJSON(w, statusFor(code), errorResponse{Error: err.Error(), Code: code.String()})
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
		"backend": s.engine.Platform().Name(),
	})
}
