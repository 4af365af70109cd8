package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"mvp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeJPEG_ConvertsPNG(t *testing.T) {
	t.Parallel()
	out, err := NormalizeJPEG(pngBytes(t, 40, 30))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestNormalizeJPEG_BoundsLongestEdge(t *testing.T) {
	t.Parallel()
	out, err := NormalizeJPEG(pngBytes(t, 4096, 1024))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxEdge, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestNormalizeJPEG_AcceptsJPEG(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))

	out, err := NormalizeJPEG(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, out[:2])
}

func TestNormalizeJPEG_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "text", in: []byte("definitely not an image")},
		{name: "truncated png", in: pngBytes(t, 10, 10)[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizeJPEG(tt.in)
			assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)
		})
	}
}
