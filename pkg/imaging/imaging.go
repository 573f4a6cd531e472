// Package imaging normalizes uploaded cover images to a fixed size and aspect.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

// ContentType is the MIME type of every normalized image.
const ContentType = "image/jpeg"

// ErrInvalidImage indicates the input could not be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// Options controls the output geometry and encoding quality.
type Options struct {
	Width   uint
	Height  uint
	Quality int
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Normalize decodes r, center-crops it to the Width:Height aspect, scales it
// to exactly Width x Height, and re-encodes it as JPEG.
func Normalize(r io.Reader, opts Options) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if opts.Width == 0 || opts.Height == 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", opts.Width, opts.Height)
	}

	cropped := cropToAspect(src, opts.Width, opts.Height)
	scaled := resize.Resize(opts.Width, opts.Height, cropped, resize.Lanczos3)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}

func cropToAspect(img image.Image, width, height uint) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	// compare w/h against width/height without floating point
	target := image.Rect(0, 0, w, h)
	switch lhs, rhs := w*int(height), h*int(width); {
	case lhs > rhs:
		cw := h * int(width) / int(height)
		x0 := (w - cw) / 2
		target = image.Rect(x0, 0, x0+cw, h)
	case lhs < rhs:
		ch := w * int(height) / int(width)
		y0 := (h - ch) / 2
		target = image.Rect(0, y0, w, y0+ch)
	default:
		return img
	}

	si, ok := img.(subImager)
	if !ok {
		return img
	}
	return si.SubImage(target.Add(b.Min))
}
