package imaging_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/pkg/imaging"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeOutputSize(t *testing.T) {
	opts := imaging.Options{Width: 60, Height: 90, Quality: 80}

	tests := []struct {
		name string
		w, h int
	}{
		{"wide source", 300, 100},
		{"tall source", 100, 400},
		{"matching aspect", 120, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := imaging.Normalize(bytes.NewReader(encodePNG(t, tt.w, tt.h)), opts)
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, 60, img.Bounds().Dx())
			assert.Equal(t, 90, img.Bounds().Dy())
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := imaging.Normalize(strings.NewReader("not an image"), imaging.Options{Width: 10, Height: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrInvalidImage))
}

func TestNormalizeRejectsZeroSize(t *testing.T) {
	_, err := imaging.Normalize(bytes.NewReader(encodePNG(t, 10, 10)), imaging.Options{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, imaging.ErrInvalidImage))
}
