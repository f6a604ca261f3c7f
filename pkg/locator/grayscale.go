package locator

import "image"

// grayImage is a dense row-major float64 luminance buffer, the shared
// representation every matching stage in this package operates on.
type grayImage struct {
	w, h int
	px   []float64
}

func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grayImage{w: w, h: h, px: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// Rec. 601 luma weights, applied to 16-bit channel values.
			lum := 0.299*float64(r) + 0.587*float64(gg) + 0.114*float64(bb)
			g.px[y*w+x] = lum
		}
	}
	return g
}

func (g *grayImage) at(x, y int) float64 {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return 0
	}
	return g.px[y*g.w+x]
}
