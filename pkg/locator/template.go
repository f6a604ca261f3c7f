package locator

import "math"

// templateMatchResult is the best-scoring window found when sliding tmpl
// across scene.
type templateMatchResult struct {
	centerX, centerY int
	score            float64
}

// matchTemplate slides tmpl over scene and scores each window with
// normalized cross-correlation, returning the best-scoring center point.
// Scanning steps by 2 pixels once the template is larger than a thumbnail,
// trading a little precision for the pipeline staying responsive on a full
// screenshot-sized scene.
func matchTemplate(scene, tmpl *grayImage) templateMatchResult {
	best := templateMatchResult{score: -1}
	if tmpl.w == 0 || tmpl.h == 0 || tmpl.w > scene.w || tmpl.h > scene.h {
		return best
	}

	tmplMean, tmplNorm := meanAndNorm(tmpl)
	if tmplNorm == 0 {
		return best
	}

	stride := 1
	if tmpl.w*tmpl.h > 400 {
		stride = 2
	}

	for y := 0; y+tmpl.h <= scene.h; y += stride {
		for x := 0; x+tmpl.w <= scene.w; x += stride {
			score := ncc(scene, tmpl, x, y, tmplMean, tmplNorm)
			if score > best.score {
				best = templateMatchResult{centerX: x + tmpl.w/2, centerY: y + tmpl.h/2, score: score}
			}
		}
	}
	return best
}

func meanAndNorm(tmpl *grayImage) (mean, norm float64) {
	n := float64(tmpl.w * tmpl.h)
	var sum float64
	for _, v := range tmpl.px {
		sum += v
	}
	mean = sum / n

	var sq float64
	for _, v := range tmpl.px {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq)
}

// ncc computes the normalized cross-correlation between tmpl and the
// scene window with top-left corner (ox, oy).
func ncc(scene, tmpl *grayImage, ox, oy int, tmplMean, tmplNorm float64) float64 {
	var sum float64
	for y := 0; y < tmpl.h; y++ {
		for x := 0; x < tmpl.w; x++ {
			sum += scene.at(ox+x, oy+y)
		}
	}
	winMean := sum / float64(tmpl.w*tmpl.h)

	var numerator, winSq float64
	for y := 0; y < tmpl.h; y++ {
		for x := 0; x < tmpl.w; x++ {
			sd := scene.at(ox+x, oy+y) - winMean
			td := tmpl.at(x, y) - tmplMean
			numerator += sd * td
			winSq += sd * sd
		}
	}
	winNorm := math.Sqrt(winSq)
	denom := tmplNorm * winNorm
	if denom == 0 {
		return 0
	}
	return numerator / denom
}
