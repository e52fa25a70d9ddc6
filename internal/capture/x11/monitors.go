//go:build linux

package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/screencap/internal/capture"
)

// EnumMonitors visits every active CRTC. Without RandR the root window
// stands in for a single monitor.
func (b *Backend) EnumMonitors(visit func(capture.Handle) bool) error {
	if !b.randrEnabled {
		visit(capture.Handle(b.root))
		return nil
	}

	resources, err := randr.GetScreenResourcesCurrent(b.conn, b.root).Reply()
	if err != nil {
		return fmt.Errorf("failed to get screen resources: %w", err)
	}

	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(b.conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		if !visit(capture.Handle(crtc)) {
			break
		}
	}
	return nil
}

// MonitorInfo resolves a CRTC to its geometry and first output's name.
func (b *Backend) MonitorInfo(h capture.Handle) (capture.MonitorInfo, error) {
	if capture.Handle(b.root) == h {
		return capture.MonitorInfo{Name: "root", Bounds: b.rootRect(), Primary: true}, nil
	}
	if !b.randrEnabled {
		return capture.MonitorInfo{}, fmt.Errorf("monitor %s: randr unavailable", h)
	}

	crtc, output, ts, err := b.crtcOutput(h)
	if err != nil {
		return capture.MonitorInfo{}, err
	}

	info := capture.MonitorInfo{
		Name: fmt.Sprintf("CRTC-%d", uint32(h)),
		Bounds: capture.Rect{
			X:      int(crtc.X),
			Y:      int(crtc.Y),
			Width:  int(crtc.Width),
			Height: int(crtc.Height),
		},
	}
	if out, err := randr.GetOutputInfo(b.conn, output, ts).Reply(); err == nil {
		info.Name = string(out.Name)
	}
	if primary, err := randr.GetOutputPrimary(b.conn, b.root).Reply(); err == nil {
		for _, o := range crtc.Outputs {
			if o == primary.Output {
				info.Primary = true
				break
			}
		}
	}
	return info, nil
}

// MonitorDPI derives DPI from the output's physical width. Outputs that
// report no physical size (projectors, VNC, many VMs) yield an error.
func (b *Backend) MonitorDPI(h capture.Handle) (uint32, error) {
	if !b.randrEnabled || capture.Handle(b.root) == h {
		mm := int(b.screen.WidthInMillimeters)
		if mm == 0 {
			return 0, errors.New("screen reports no physical size")
		}
		return dpiFor(int(b.screen.WidthInPixels), mm), nil
	}

	crtc, output, ts, err := b.crtcOutput(h)
	if err != nil {
		return 0, err
	}
	out, err := randr.GetOutputInfo(b.conn, output, ts).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get output info: %w", err)
	}
	if out.MmWidth == 0 {
		return 0, fmt.Errorf("output %s reports no physical size", string(out.Name))
	}

	// Rotated CRTCs swap width and height relative to the panel.
	px := int(crtc.Width)
	if crtc.Rotation&(randr.RotationRotate90|randr.RotationRotate270) != 0 {
		px = int(crtc.Height)
	}
	return dpiFor(px, int(out.MmWidth)), nil
}

func dpiFor(px, mm int) uint32 {
	return uint32((float64(px)*25.4)/float64(mm) + 0.5)
}

func (b *Backend) crtcOutput(h capture.Handle) (*randr.GetCrtcInfoReply, randr.Output, xproto.Timestamp, error) {
	resources, err := randr.GetScreenResourcesCurrent(b.conn, b.root).Reply()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get screen resources: %w", err)
	}
	ts := resources.ConfigTimestamp
	crtc, err := randr.GetCrtcInfo(b.conn, randr.Crtc(h), ts).Reply()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("monitor %s: %w", h, err)
	}
	if len(crtc.Outputs) == 0 || crtc.Width == 0 || crtc.Height == 0 {
		return nil, 0, 0, fmt.Errorf("monitor %s is disabled", h)
	}
	return crtc, crtc.Outputs[0], ts, nil
}
