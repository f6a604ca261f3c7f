package locator

import "testing"

func TestHarrisResponseHigherAtCornerThanFlatRegion(t *testing.T) {
	flat := solidGray(20, 20, 100)
	flatScore := harrisResponse(flat, 10, 10)

	corner := solidGray(20, 20, 30)
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			corner.px[y*20+x] = 220
		}
	}
	cornerScore := harrisResponse(corner, 10, 10)

	if cornerScore <= flatScore {
		t.Fatalf("expected corner response (%v) to exceed flat response (%v)", cornerScore, flatScore)
	}
}

func TestPatchSSDZeroForIdenticalPatches(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	if patchSSD(a, a) != 0 {
		t.Fatalf("expected zero SSD for identical patches")
	}
}

func TestMatchFeaturesReturnsFalseOnFeaturelessImages(t *testing.T) {
	scene := solidGray(30, 30, 128)
	tmpl := solidGray(12, 12, 128)
	_, ok := matchFeatures(scene, tmpl, 4)
	if ok {
		t.Fatalf("expected no match on flat featureless images")
	}
}
