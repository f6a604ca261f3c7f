package executor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/locator"
)

// buildTarget resolves a workflow target string (a reference name or a
// "dynamic:" description) into a locator.Target, loading every on-disk
// candidate variant's bytes for reference targets.
func (e *Executor) buildTarget(store assetStore, rawTarget string) locator.Target {
	ref := locator.ParseTargetRef(rawTarget)
	if ref.IsDynamic() {
		return locator.Target{Ref: ref}
	}

	variants := store.GetImageVariants(ref.ReferenceName())
	candidates := make([]locator.Candidate, 0, len(variants))
	for _, path := range variants {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		candidates = append(candidates, locator.Candidate{Bytes: data, Format: extFormat(path)})
	}
	return locator.Target{Ref: ref, Candidates: candidates}
}

func extFormat(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
