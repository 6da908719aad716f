// Package imaging decodes uploaded photographs and normalizes them to a
// single color representation before text recognition.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"bptracker/internal/apperr"
)

// Decoded is a normalized image ready for OCR.
type Decoded struct {
	// Format is the source encoding reported by the decoder ("jpeg", "png", ...).
	Format string

	// Image is the picture converted to RGBA.
	Image *image.RGBA
}

// Decode parses data as any registered image format and converts it to RGBA.
func Decode(data []byte) (*Decoded, error) {
	const op = "Decode"

	if len(data) == 0 {
		return nil, apperr.New(apperr.KindDecode, op, nil, "empty image")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.New(apperr.KindDecode, op, err, "")
	}

	return &Decoded{Format: format, Image: ToRGBA(img)}, nil
}

// ToRGBA converts img to *image.RGBA with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// PNG encodes the normalized image. OCR engines accept it regardless of the
// upload's original format.
func (d *Decoded) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, d.Image); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
