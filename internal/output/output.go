package output

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Format is an image encoding for captured frames.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// ParseFormat accepts png, jpeg/jpg and bmp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s (use png, jpeg or bmp)", s)
	}
}

// Ext returns the file extension, including the dot.
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return ".jpg"
	case BMP:
		return ".bmp"
	default:
		return ".png"
	}
}

// ContentType returns the MIME type for HTTP responses.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

// Encoder writes images in one format.
type Encoder struct {
	Format  Format
	Quality int
}

// NewEncoder returns an encoder; quality only affects JPEG.
func NewEncoder(format Format, quality int) Encoder {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return Encoder{Format: format, Quality: quality}
}

// Encode writes img to w.
func (e Encoder) Encode(w io.Writer, img image.Image) error {
	var err error
	switch e.Format {
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality})
	case BMP:
		err = bmp.Encode(w, img)
	case PNG:
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format: %s", e.Format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.Format, err)
	}
	return nil
}
