package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bryanchriswhite/screencap/internal/abi"
	"github.com/bryanchriswhite/screencap/internal/capture"
)

// rpcRequest is one call on the websocket. Args depend on Op.
type rpcRequest struct {
	ID   int             `json:"id,omitempty"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

type rpcResponse struct {
	ID     int    `json:"id,omitempty"`
	Op     string `json:"op"`
	Code   int32  `json:"code"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

type rpcArgs struct {
	Monitor               capture.Handle `json:"monitor"`
	Window                capture.Handle `json:"window"`
	X                     int32          `json:"x"`
	Y                     int32          `json:"y"`
	Width                 uint32         `json:"width"`
	Height                uint32         `json:"height"`
	ExcludeCurrentProcess bool           `json:"exclude_current_process"`
}

type monitorResult struct {
	Handle      uintptr `json:"handle"`
	Name        string  `json:"name"`
	X           int32   `json:"x"`
	Y           int32   `json:"y"`
	Width       uint32  `json:"width"`
	Height      uint32  `json:"height"`
	IsPrimary   bool    `json:"is_primary"`
	ScaleFactor float32 `json:"scale_factor"`
}

type windowResult struct {
	Handle  uintptr `json:"handle"`
	PID     uint32  `json:"pid"`
	AppName string  `json:"app_name"`
	Title   string  `json:"title"`
	X       int32   `json:"x"`
	Y       int32   `json:"y"`
	Width   uint32  `json:"width"`
	Height  uint32  `json:"height"`
}

type bufferResult struct {
	Width      uint32 `json:"width"`
	Height     uint32 `json:"height"`
	RowStride  uint32 `json:"row_stride"`
	DataLength uint32 `json:"data_length"`
	Order      string `json:"channel_order"`
	Data       []byte `json:"data"`
}

// handleRPC upgrades to a websocket and answers record-level calls until
// the client disconnects. Every record array and pixel buffer obtained for
// a call is released before the reply is written.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	for {
		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			s.log.Debug().Err(err).Msg("WebSocket closed")
			return
		}
		resp := s.dispatch(req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

func (s *Server) dispatch(req rpcRequest) rpcResponse {
	resp := rpcResponse{ID: req.ID, Op: req.Op}

	var args rpcArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			resp.Code = -1
			resp.Error = fmt.Sprintf("invalid args: %v", err)
			return resp
		}
	}

	switch req.Op {
	case "list_monitors":
		var records []abi.MonitorRecord
		if resp.Code = s.abi.ListMonitors(&records); resp.Code == abi.CodeOK {
			out := make([]monitorResult, len(records))
			for i, m := range records {
				out[i] = monitorResult{
					Handle: m.Handle, Name: abi.Text(m.Name[:]),
					X: m.X, Y: m.Y, Width: m.Width, Height: m.Height,
					IsPrimary: m.IsPrimary, ScaleFactor: m.ScaleFactor,
				}
			}
			s.abi.ReleaseMonitors(records)
			resp.Result = out
		}

	case "list_windows":
		var records []abi.WindowRecord
		if resp.Code = s.abi.ListWindows(args.ExcludeCurrentProcess, &records); resp.Code == abi.CodeOK {
			out := make([]windowResult, len(records))
			for i, w := range records {
				out[i] = windowResult{
					Handle: w.Handle, PID: w.PID,
					AppName: abi.Text(w.AppName[:]), Title: abi.Text(w.Title[:]),
					X: w.X, Y: w.Y, Width: w.Width, Height: w.Height,
				}
			}
			s.abi.ReleaseWindows(records)
			resp.Result = out
		}

	case "capture_region":
		var buf abi.CaptureBuffer
		resp.Code = s.abi.CaptureRegion(uintptr(args.Monitor), args.X, args.Y, args.Width, args.Height, &buf)
		resp.Result = s.takeBuffer(resp.Code, &buf)

	case "capture_window":
		var buf abi.CaptureBuffer
		resp.Code = s.abi.CaptureWindow(uintptr(args.Window), &buf)
		resp.Result = s.takeBuffer(resp.Code, &buf)

	case "get_monitor_dpi":
		var x, y uint32
		if resp.Code = s.abi.GetMonitorDPI(uintptr(args.Monitor), &x, &y); resp.Code == abi.CodeOK {
			resp.Result = map[string]uint32{"dpi_x": x, "dpi_y": y}
		}

	case "is_window_minimized":
		resp.Result = s.abi.IsWindowMinimized(uintptr(args.Window))
	case "is_window_maximized":
		resp.Result = s.abi.IsWindowMaximized(uintptr(args.Window))
	case "is_window_focused":
		resp.Result = s.abi.IsWindowFocused(uintptr(args.Window))
	case "get_frontmost_window_id":
		resp.Result = s.abi.GetFrontmostWindowID()
	case "get_current_process_id":
		resp.Result = s.abi.GetCurrentProcessID()

	default:
		resp.Code = -1
		resp.Error = fmt.Sprintf("unknown op %q", req.Op)
		return resp
	}

	if resp.Code != abi.CodeOK {
		resp.Error = capture.Code(resp.Code).String()
		resp.Result = nil
	}
	return resp
}

// takeBuffer copies a filled buffer into a reply and releases it.
func (s *Server) takeBuffer(code int32, buf *abi.CaptureBuffer) any {
	if code != abi.CodeOK {
		return nil
	}
	res := bufferResult{
		Width:      buf.Width,
		Height:     buf.Height,
		RowStride:  buf.RowStride,
		DataLength: buf.DataLength,
		Order:      s.engine.Platform().ChannelOrder().String(),
		Data:       append([]byte(nil), buf.Data...),
	}
	s.abi.ReleaseCaptureBuffer(buf)
	return res
}
