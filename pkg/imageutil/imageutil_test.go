package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDetectMimeType(t *testing.T) {
	cases := map[string]string{
		"screen.png":  "image/png",
		"shot.JPG":    "image/jpeg",
		"icon.webp":   "image/webp",
		"unknown.bmp": "",
	}
	for path, want := range cases {
		if got := DetectMimeType(path); got != want {
			t.Fatalf("DetectMimeType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDownscaleHalfHalvesDimensions(t *testing.T) {
	src := solidImage(200, 100, color.RGBA{R: 255, A: 255})
	data, w, h, err := DownscaleHalf(src, 70)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 100 || h != 50 {
		t.Fatalf("expected 100x50, got %dx%d", w, h)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty jpeg bytes")
	}
}

func TestScaleToFactorResizesProportionally(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{G: 255, A: 255})
	scaled := ScaleToFactor(src, 1.5)
	bounds := scaled.Bounds()
	if bounds.Dx() != 150 || bounds.Dy() != 150 {
		t.Fatalf("expected 150x150, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestDecodeRoundTripsPNG(t *testing.T) {
	src := solidImage(10, 10, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(buf.Bytes(), "png")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 10 || decoded.Bounds().Dy() != 10 {
		t.Fatalf("unexpected decoded bounds: %v", decoded.Bounds())
	}
}
