//go:build linux

package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/screencap/internal/capture"
)

const allPlanes = 0xffffffff

// pixels holds the last readback for a capture rectangle. Only the part of
// want that a drawable covered is kept; ReadPixels leaves the rest black.
type pixels struct {
	want   capture.Rect
	in     capture.Rect
	data   []byte
	filled bool
}

func newPixels(r capture.Rect) *pixels {
	return &pixels{want: r}
}

func (p *pixels) ReadPixels(dst []byte, stride int) error {
	if !p.filled {
		return errors.New("surface holds no pixels")
	}
	row := int64(p.want.Width) * capture.BytesPerPixel
	if int64(stride) < row || int64(len(dst)) < int64(stride)*int64(p.want.Height-1)+row {
		return fmt.Errorf("destination too small for %dx%d", p.want.Width, p.want.Height)
	}
	for y := 0; y < p.want.Height; y++ {
		clear(dst[y*stride : y*stride+int(row)])
	}
	pasteRows(dst, stride, (p.in.X-p.want.X)*capture.BytesPerPixel, p.in.Y-p.want.Y, p.data, p.in.Width, p.in.Height)
	return nil
}

func (p *pixels) reset() {
	p.in = capture.Rect{}
	p.data = nil
	p.filled = false
}

func (p *pixels) free() {
	p.reset()
}

// pasteRows copies a w*h block of packed 4-byte pixels into dst, whose rows
// are stride bytes apart, starting dy rows down and dx bytes in.
func pasteRows(dst []byte, stride, dx, dy int, src []byte, w, h int) {
	row := w * capture.BytesPerPixel
	for y := 0; y < h; y++ {
		off := (dy+y)*stride + dx
		s := y * row
		if s+row > len(src) || off+row > len(dst) {
			return
		}
		copy(dst[off:off+row], src[s:s+row])
	}
}

// overlap returns the part of want that the drawable placed at at covers.
func overlap(want, at capture.Rect) (capture.Rect, bool) {
	r := capture.RectFromImage(want.Image().Intersect(at.Image()))
	return r, !r.Empty()
}

// readInto fetches the part of p.want covered by drawable d, whose top-left
// corner sits at root position at. The reply is at most the drawable's
// size, so nothing here scales with the requested rectangle.
func (b *Backend) readInto(p *pixels, d xproto.Drawable, at capture.Rect) error {
	in, ok := overlap(p.want, at)
	if !ok {
		return errors.New("drawable does not overlap the capture rectangle")
	}
	reply, err := xproto.GetImage(
		b.conn,
		xproto.ImageFormatZPixmap,
		d,
		int16(in.X-at.X), int16(in.Y-at.Y),
		uint16(in.Width), uint16(in.Height),
		allPlanes,
	).Reply()
	if err != nil {
		return fmt.Errorf("failed to get image: %w", err)
	}
	if reply.Depth != 24 && reply.Depth != 32 {
		return fmt.Errorf("unsupported depth %d", reply.Depth)
	}
	if len(reply.Data) < in.Width*in.Height*capture.BytesPerPixel {
		return fmt.Errorf("short image reply: %d bytes for %dx%d", len(reply.Data), in.Width, in.Height)
	}
	p.in = in
	p.data = reply.Data
	p.filled = true
	return nil
}

// screenSurface snapshots a rectangle of the root window.
type screenSurface struct {
	*pixels
	b *Backend
}

// OpenScreen prepares a snapshot of r. Parts of r beyond the root window
// stay black.
func (b *Backend) OpenScreen(r capture.Rect) (capture.ScreenSurface, error) {
	if r.Empty() {
		return nil, errors.New("empty capture rectangle")
	}
	return &screenSurface{pixels: newPixels(r), b: b}, nil
}

func (s *screenSurface) Copy() error {
	s.reset()
	return s.b.readInto(s.pixels, xproto.Drawable(s.b.root), s.b.rootRect())
}

func (s *screenSurface) Close() error {
	s.free()
	return nil
}

// windowSurface renders one client window. Rendering targets the
// window manager's frame so decorations are included.
type windowSurface struct {
	*pixels
	b     *Backend
	frame xproto.Window
	at    capture.Rect
}

// OpenWindow resolves the frame of h and its root geometry.
func (b *Backend) OpenWindow(h capture.Handle, r capture.Rect) (capture.WindowSurface, error) {
	if r.Empty() {
		return nil, errors.New("empty window rectangle")
	}
	frame := b.frameOf(xproto.Window(h))
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(frame)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get frame geometry: %w", err)
	}
	at := capture.Rect{
		X:      int(geom.X) + int(geom.BorderWidth),
		Y:      int(geom.Y) + int(geom.BorderWidth),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}
	return &windowSurface{pixels: newPixels(r), b: b, frame: frame, at: at}, nil
}

// RenderFullContent names the frame's existing off-screen pixmap. This only
// works while a compositing manager keeps the window redirected.
func (s *windowSurface) RenderFullContent() bool {
	return s.fromPixmap(false)
}

// RenderDefault reads the frame directly. Overlapping windows show through
// unless a compositor backs the frame.
func (s *windowSurface) RenderDefault() bool {
	s.reset()
	if err := s.b.readInto(s.pixels, xproto.Drawable(s.frame), s.at); err != nil {
		s.b.log.Debug().Err(err).Uint32("frame", uint32(s.frame)).Msg("direct frame read failed")
		return false
	}
	return true
}

// RenderAlternate redirects the frame through Composite for the duration
// of the read.
func (s *windowSurface) RenderAlternate() bool {
	if !s.b.SupportsFullContent() {
		return false
	}
	return s.fromPixmap(true)
}

// CopyFrontBuffer reads whatever the screen currently shows at the
// window's position.
func (s *windowSurface) CopyFrontBuffer() bool {
	s.reset()
	if err := s.b.readInto(s.pixels, xproto.Drawable(s.b.root), s.b.rootRect()); err != nil {
		s.b.log.Debug().Err(err).Msg("front buffer read failed")
		return false
	}
	return true
}

func (s *windowSurface) Close() error {
	s.free()
	return nil
}

func (s *windowSurface) fromPixmap(redirect bool) bool {
	s.reset()
	b := s.b
	log := b.log.With().Uint32("frame", uint32(s.frame)).Bool("redirect", redirect).Logger()

	if redirect {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := composite.RedirectWindowChecked(b.conn, s.frame, composite.RedirectAutomatic).Check(); err != nil {
			log.Debug().Err(err).Msg("Failed to redirect window via Composite")
			return false
		}
		defer composite.UnredirectWindow(b.conn, s.frame, composite.RedirectAutomatic)
	}

	pixmap, err := xproto.NewPixmapId(b.conn)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to allocate pixmap id")
		return false
	}
	if err := composite.NameWindowPixmapChecked(b.conn, s.frame, pixmap).Check(); err != nil {
		log.Debug().Err(err).Msg("Failed to name window pixmap")
		return false
	}
	defer xproto.FreePixmap(b.conn, pixmap)

	if err := b.readInto(s.pixels, xproto.Drawable(pixmap), s.at); err != nil {
		log.Debug().Err(err).Msg("Failed to read window pixmap")
		return false
	}
	return true
}
