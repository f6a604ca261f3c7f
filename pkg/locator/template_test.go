package locator

import (
	"image"
	"image/color"
	"testing"
)

func solidGray(w, h int, v float64) *grayImage {
	g := &grayImage{w: w, h: h, px: make([]float64, w*h)}
	for i := range g.px {
		g.px[i] = v
	}
	return g
}

func imageWithBrightSquare(size, sqX, sqY, sqSize int) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: 20})
		}
	}
	for y := sqY; y < sqY+sqSize; y++ {
		for x := sqX; x < sqX+sqSize; x++ {
			img.SetGray(x, y, color.Gray{Y: 220})
		}
	}
	return img
}

func TestMatchTemplateFindsExactLocation(t *testing.T) {
	scene := toGray(imageWithBrightSquare(100, 40, 30, 10))
	tmpl := toGray(imageWithBrightSquare(14, 2, 2, 10))

	res := matchTemplate(scene, tmpl)
	if res.score < 0.9 {
		t.Fatalf("expected high confidence match, got score=%v", res.score)
	}
	if res.centerX < 40 || res.centerX > 50 || res.centerY < 30 || res.centerY > 40 {
		t.Fatalf("expected center near (45,35), got (%d,%d)", res.centerX, res.centerY)
	}
}

func TestMatchTemplateRejectsOversizedTemplate(t *testing.T) {
	scene := solidGray(10, 10, 100)
	tmpl := solidGray(20, 20, 100)
	res := matchTemplate(scene, tmpl)
	if res.score != -1 {
		t.Fatalf("expected sentinel no-match score, got %v", res.score)
	}
}

func TestNCCPerfectMatchScoresNearOne(t *testing.T) {
	scene := solidGray(5, 5, 50)
	scene.px[12] = 200 // inject a distinguishing feature at center
	tmpl := solidGray(5, 5, 50)
	tmpl.px[12] = 200

	mean, norm := meanAndNorm(tmpl)
	score := ncc(scene, tmpl, 0, 0, mean, norm)
	if score < 0.99 {
		t.Fatalf("expected near-perfect self-match score, got %v", score)
	}
}
