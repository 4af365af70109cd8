// Package media prepares picked images for upload.
package media

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"mvp/internal/models"
)

const (
	// MaxEdge bounds the longest side of an uploaded image.
	MaxEdge = 2048
	// JPEGQuality is the encoder quality of uploaded images.
	JPEGQuality = 80
	// MaxInputBytes rejects oversized picks before decoding.
	MaxInputBytes = 20 << 20
)

// NormalizeJPEG decodes a JPEG, PNG or WebP image, scales it to fit MaxEdge
// and re-encodes it as JPEG.
func NormalizeJPEG(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, models.NewValidationError("No image selected")
	}
	if len(raw) > MaxInputBytes {
		return nil, models.NewValidationError("Image too large")
	}
	if !isAllowedImageMIME(http.DetectContentType(raw)) {
		return nil, models.NewValidationError("image conversion failed")
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, models.NewValidationError("image conversion failed")
	}

	out, err := EncodeJPEG(resizeToFit(decoded, MaxEdge, MaxEdge), JPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// EncodeJPEG encodes img at the given quality. Transparent areas are
// flattened onto white.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(src image.Image) image.Image {
	if _, ok := src.(*image.YCbCr); ok {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}
