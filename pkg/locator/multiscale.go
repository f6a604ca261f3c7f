package locator

import (
	"image"

	"github.com/ccdanpian/vision-agent/pkg/imageutil"
)

// matchMultiscale resamples tmpl across a set of scale factors and keeps the
// best-scoring match, tolerating DPI or resolution drift between the
// reference capture and the live device that a fixed-size template can miss.
func matchMultiscale(scene *grayImage, tmplImg image.Image, min, max, step float64) templateMatchResult {
	if step <= 0 {
		step = 0.1
	}
	best := templateMatchResult{score: -1}
	for factor := min; factor <= max+1e-9; factor += step {
		scaled := imageutil.ScaleToFactor(tmplImg, factor)
		tmplGray := toGray(scaled)
		res := matchTemplate(scene, tmplGray)
		if res.score > best.score {
			best = res
		}
	}
	return best
}
