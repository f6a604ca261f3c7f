// Package imageutil provides the decode/encode/resize helpers shared by the
// screenshot pipeline and the hybrid locator's multi-scale matching stage.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// IsImageFile reports whether path has a recognized image extension.
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// DetectMimeType returns the MIME type for an image file based on extension,
// or "" if unrecognized.
func DetectMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// Decode decodes PNG or JPEG bytes into an image.Image, dispatching on the
// declared format ("png" or "jpeg"/"jpg").
func Decode(data []byte, format string) (image.Image, error) {
	switch strings.ToLower(format) {
	case "png":
		return png.Decode(bytes.NewReader(data))
	case "jpeg", "jpg":
		return jpeg.Decode(bytes.NewReader(data))
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}

// EncodeBase64 base64-encodes raw image bytes for embedding in a
// vision-capable chat message.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DownscaleHalf halves both dimensions using bilinear interpolation and
// re-encodes as JPEG at the given quality. Mirrors the screenshot
// compression step in the capture pipeline: a full-resolution screenshot is
// larger than a locator or a remote model call needs.
func DownscaleHalf(src image.Image, quality int) ([]byte, int, int, error) {
	bounds := src.Bounds()
	newW, newH := bounds.Dx()/2, bounds.Dy()/2
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), newW, newH, nil
}

// ScaleToFactor resizes src by an arbitrary factor (e.g. 0.8, 1.25) for the
// locator's multi-scale matching stage, which slides a reference template
// across several candidate scales to tolerate DPI/resolution drift between
// the asset capture and the live device.
func ScaleToFactor(src image.Image, factor float64) image.Image {
	bounds := src.Bounds()
	newW := uint(float64(bounds.Dx()) * factor)
	newH := uint(float64(bounds.Dy()) * factor)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return resize.Resize(newW, newH, src, resize.Bilinear)
}

// EncodePNG re-encodes an image.Image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
