//go:build !windows && !linux

package portable

import (
	"bytes"
	"image"
	"testing"

	"github.com/bryanchriswhite/screencap/internal/capture"
)

func TestReadPixelsHonoursStride(t *testing.T) {
	s := &screenSurface{r: capture.Rect{Width: 2, Height: 2}}
	if err := s.ReadPixels(make([]byte, 16), 8); err == nil {
		t.Fatal("read before Copy succeeded")
	}

	s.img = image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range s.img.Pix {
		s.img.Pix[i] = byte(i + 1)
	}
	dst := make([]byte, 24)
	if err := s.ReadPixels(dst, 12); err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if !bytes.Equal(dst[:8], s.img.Pix[:8]) || !bytes.Equal(dst[12:20], s.img.Pix[8:]) {
		t.Fatalf("dst = %v", dst)
	}
	if dst[8] != 0 {
		t.Fatal("padding overwritten")
	}
}

func TestWindowQueriesAreEmpty(t *testing.T) {
	b := &Backend{}
	var n int
	b.EnumWindows(func(capture.Handle) bool { n++; return true })
	if n != 0 || b.IsWindow(1) {
		t.Fatal("portable backend reported windows")
	}
	if _, err := b.OpenWindow(1, capture.Rect{Width: 1, Height: 1}); err == nil {
		t.Fatal("OpenWindow succeeded")
	}
}
