package locator

import "math"

// keypoint is a corner location with its surrounding patch descriptor, used
// by the feature-point stage as a cheap stand-in for a rotation/scale
// invariant descriptor (ORB/SIFT-class). It buys resilience to small
// rotations and partial occlusion that template matching cannot tolerate,
// at the cost of precision template matching already provides.
type keypoint struct {
	x, y  int
	patch []float64
}

const patchRadius = 4

// detectKeypoints finds local corners via a Harris-style response and keeps
// the strongest non-overlapping ones.
func detectKeypoints(g *grayImage, maxPoints int) []keypoint {
	type scored struct {
		x, y  int
		score float64
	}
	var candidates []scored

	for y := patchRadius; y < g.h-patchRadius; y += 2 {
		for x := patchRadius; x < g.w-patchRadius; x += 2 {
			score := harrisResponse(g, x, y)
			if score > 0 {
				candidates = append(candidates, scored{x, y, score})
			}
		}
	}

	// A simple quadratic sort over every candidate is enough; the input set
	// is already small after the stride-2 scan above.
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[i].score {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	minDist := patchRadius * 2
	var kept []keypoint
	for _, c := range candidates {
		if len(kept) >= maxPoints {
			break
		}
		tooClose := false
		for _, k := range kept {
			dx, dy := k.x-c.x, k.y-c.y
			if dx*dx+dy*dy < minDist*minDist {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		kept = append(kept, keypoint{x: c.x, y: c.y, patch: extractPatch(g, c.x, c.y)})
	}
	return kept
}

func extractPatch(g *grayImage, cx, cy int) []float64 {
	size := patchRadius*2 + 1
	patch := make([]float64, 0, size*size)
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		for dx := -patchRadius; dx <= patchRadius; dx++ {
			patch = append(patch, g.at(cx+dx, cy+dy))
		}
	}
	return patch
}

func harrisResponse(g *grayImage, x, y int) float64 {
	var ixx, iyy, ixy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			ix := g.at(x+dx+1, y+dy) - g.at(x+dx-1, y+dy)
			iy := g.at(x+dx, y+dy+1) - g.at(x+dx, y+dy-1)
			ixx += ix * ix
			iyy += iy * iy
			ixy += ix * iy
		}
	}
	const k = 0.04
	det := ixx*iyy - ixy*ixy
	trace := ixx + iyy
	return det - k*trace*trace
}

func patchSSD(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// matchFeatures matches template keypoints into the scene by nearest patch,
// then counts how many matches agree on a single dominant translation
// (the RANSAC-lite consensus step). The count is the stage's confidence
// signal and is compared here against minInliers, which the caller passes
// as FeatureMinInliers.
func matchFeatures(scene, tmpl *grayImage, minInliers int) (LocateResult, bool) {
	sceneKp := detectKeypoints(scene, 200)
	tmplKp := detectKeypoints(tmpl, 60)
	if len(tmplKp) == 0 || len(sceneKp) == 0 {
		return LocateResult{}, false
	}

	type translation struct {
		dx, dy int
	}
	votes := map[translation]int{}
	matchPairs := map[translation][]keypoint{}

	const ssdThreshold = 6000.0
	for _, tk := range tmplKp {
		bestIdx := -1
		bestScore := math.MaxFloat64
		for i, sk := range sceneKp {
			d := patchSSD(tk.patch, sk.patch)
			if d < bestScore {
				bestScore = d
				bestIdx = i
			}
		}
		if bestIdx == -1 || bestScore > ssdThreshold {
			continue
		}
		sk := sceneKp[bestIdx]
		tr := translation{dx: sk.x - tk.x, dy: sk.y - tk.y}
		// Bucket nearby translations together so near-identical offsets
		// (off by a pixel or two of detector jitter) vote as one.
		bucket := translation{dx: (tr.dx / 4) * 4, dy: (tr.dy / 4) * 4}
		votes[bucket]++
		matchPairs[bucket] = append(matchPairs[bucket], sk)
	}

	bestBucket := translation{}
	bestCount := 0
	for tr, count := range votes {
		if count > bestCount {
			bestCount = count
			bestBucket = tr
		}
	}

	if bestCount < minInliers {
		return LocateResult{}, false
	}

	members := matchPairs[bestBucket]
	var sumX, sumY int
	for _, m := range members {
		sumX += m.x
		sumY += m.y
	}
	centerX := sumX / len(members)
	centerY := sumY / len(members)
	confidence := float64(bestCount) / float64(len(tmplKp))

	return LocateResult{Success: true, X: centerX, Y: centerY, Confidence: confidence, Stage: StageFeature}, true
}
