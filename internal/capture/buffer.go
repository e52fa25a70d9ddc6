package capture

import (
	"fmt"
	"image"
	"sync"
)

// BytesPerPixel is fixed for every capture.
const BytesPerPixel = 4

// CaptureBuffer holds one top-down bitmap. The caller owns it exclusively
// and must Release it exactly once; buffers are never pooled or reused.
type CaptureBuffer struct {
	Width  int
	Height int
	// Stride is the distance in bytes between the starts of two rows.
	Stride int
	Order  ChannelOrder

	mu       sync.Mutex
	data     []byte
	released bool
}

func newCaptureBuffer(data []byte, width, height, stride int, order ChannelOrder) *CaptureBuffer {
	return &CaptureBuffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Order:  order,
		data:   data,
	}
}

// Data returns the pixel bytes, or nil once the buffer has been released.
func (b *CaptureBuffer) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len is the byte length of the pixel data, zero after release.
func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Released reports whether Release has been called.
func (b *CaptureBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Release drops the pixel data. A second call returns ErrReleased and
// leaves the buffer untouched.
func (b *CaptureBuffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrReleased
	}
	b.released = true
	b.data = nil
	return nil
}

// RGBA copies the bitmap into a new *image.RGBA, swapping channels when the
// source is BGRA and dropping any row padding. Alpha is forced opaque since
// GDI and X11 leave the fourth byte undefined.
func (b *CaptureBuffer) RGBA() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil, ErrReleased
	}
	if need := (b.Height-1)*b.Stride + b.Width*BytesPerPixel; b.Height > 0 && len(b.data) < need {
		return nil, fmt.Errorf("capture buffer holds %d bytes, need %d", len(b.data), need)
	}

	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	rowBytes := b.Width * BytesPerPixel
	for y := 0; y < b.Height; y++ {
		src := b.data[y*b.Stride : y*b.Stride+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		if b.Order == RGBA {
			copy(dst, src)
		} else {
			for i := 0; i < rowBytes; i += BytesPerPixel {
				dst[i] = src[i+2]
				dst[i+1] = src[i+1]
				dst[i+2] = src[i]
			}
		}
		for i := 3; i < rowBytes; i += BytesPerPixel {
			dst[i] = 0xff
		}
	}
	return img, nil
}
