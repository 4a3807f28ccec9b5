package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessTranscodesToJPEG(t *testing.T) {
	p := NewImageProcessor()

	out, err := p.Process(pngBytes(t, 400, 300), "photo.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "jpg", out.Format)
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, 400, out.Width)
	assert.Equal(t, 300, out.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Bounds().Dx())
}

func TestProcessResizesLargeImages(t *testing.T) {
	p := NewImageProcessor()

	out, err := p.Process(pngBytes(t, 2400, 1200), "wide.png", "image/png")
	require.NoError(t, err)

	// Longest edge capped, aspect ratio preserved.
	assert.Equal(t, 1200, out.Width)
	assert.Equal(t, 600, out.Height)
}

func TestProcessDoesNotUpscale(t *testing.T) {
	p := NewImageProcessor()

	out, err := p.Process(pngBytes(t, 320, 240), "small.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, 320, out.Width)
	assert.Equal(t, 240, out.Height)
}

func TestProcessRejectsBadExtension(t *testing.T) {
	p := NewImageProcessor()

	_, err := p.Process(pngBytes(t, 10, 10), "document.pdf", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestProcessRejectsBadMimeType(t *testing.T) {
	p := NewImageProcessor()

	_, err := p.Process(pngBytes(t, 10, 10), "photo.png", "application/octet-stream")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestProcessRejectsOversizedPayload(t *testing.T) {
	p := NewImageProcessor()
	p.MaxBytes = 64

	_, err := p.Process(pngBytes(t, 100, 100), "photo.png", "image/png")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestProcessRejectsCorruptData(t *testing.T) {
	p := NewImageProcessor()

	_, err := p.Process([]byte("not an image"), "photo.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}
