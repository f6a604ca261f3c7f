// Package locator implements the hybrid UI-element location pipeline: a
// strict-order, short-circuiting sequence of template, multi-scale,
// feature-point, small-model and remote-model matching stages, fanned out
// concurrently across independent targets.
package locator

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/imageutil"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
)

// Candidate is one reference image variant to try against the screenshot,
// along with its encoded format ("png" or "jpeg").
type Candidate struct {
	Bytes  []byte
	Format string
}

// Target bundles what to locate: a reference (with its candidate image
// variants) or a dynamic free-text description, which skips straight to the
// model-backed stages.
type Target struct {
	Ref        TargetRef
	Candidates []Candidate
}

// Locator runs the five-stage pipeline. RemoteProvider may be nil if the
// remote-model stage is disabled or unconfigured; stage 5 is then skipped.
type Locator struct {
	cfg            *config.Config
	remoteProvider providers.LLMProvider
}

func New(cfg *config.Config, remoteProvider providers.LLMProvider) *Locator {
	return &Locator{cfg: cfg, remoteProvider: remoteProvider}
}

// screenshotInput is the decoded form of the caller-supplied screenshot,
// computed once per Locate call and shared read-only across target
// goroutines.
type screenshotInput struct {
	raw    []byte
	format string
	gray   *grayImage
	img    image.Image
	width  int
	height int
}

// Locate runs the pipeline for every target in targets concurrently,
// returning one LocateResult per target name. A single target's internal
// error never fails the batch; it falls through its remaining stages and,
// at worst, yields a not-found result.
func (l *Locator) Locate(ctx context.Context, screenshot []byte, screenshotFormat string, targets map[string]Target) (map[string]LocateResult, error) {
	img, err := imageutil.Decode(screenshot, screenshotFormat)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.LocateFailed, "decoding screenshot", err)
	}
	sin := &screenshotInput{
		raw:    screenshot,
		format: screenshotFormat,
		gray:   toGray(img),
		img:    img,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}

	results := make(map[string]LocateResult, len(targets))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, target := range targets {
		name, target := name, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := l.locateOne(ctx, sin, target)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results, nil
}

// LocateSingle is a convenience wrapper for the common one-target call.
func (l *Locator) LocateSingle(ctx context.Context, screenshot []byte, screenshotFormat string, target Target) (LocateResult, error) {
	results, err := l.Locate(ctx, screenshot, screenshotFormat, map[string]Target{"_single": target})
	if err != nil {
		return LocateResult{}, err
	}
	return results["_single"], nil
}

func (l *Locator) strategy() Strategy {
	switch Strategy(l.cfg.Locator.Strategy) {
	case StrategyOpenCVOnly, StrategyAIOnly:
		return Strategy(l.cfg.Locator.Strategy)
	default:
		return StrategyOpenCVFirst
	}
}

func (l *Locator) locateOne(ctx context.Context, sin *screenshotInput, target Target) LocateResult {
	strat := l.strategy()
	hint := target.Ref.String()

	runOpenCV := strat != StrategyAIOnly && !target.Ref.IsDynamic()
	runAI := strat != StrategyOpenCVOnly

	if runOpenCV {
		if res, ok := l.runOpenCVStages(sin, target); ok {
			return res
		}
	}

	if !runAI {
		return notFound(StageFeature)
	}

	if l.cfg.Locator.SmallModelEnabled {
		if res, ok := l.runSmallModelStage(ctx, sin, target, hint); ok {
			return res
		}
	}

	if l.cfg.Locator.RemoteModelEnabled && l.remoteProvider != nil {
		res, err := l.runRemoteStage(ctx, sin, target, hint)
		if err != nil {
			logger.Warn(fmt.Sprintf("locator: remote-model stage failed for %q: %v", hint, err))
			return notFound(StageRemoteModel)
		}
		return res
	}

	return notFound(StageRemoteModel)
}

func (l *Locator) runOpenCVStages(sin *screenshotInput, target Target) (LocateResult, bool) {
	var bestTemplate templateMatchResult
	var bestTemplateImg image.Image

	for _, cand := range target.Candidates {
		img, err := imageutil.Decode(cand.Bytes, cand.Format)
		if err != nil {
			continue
		}
		res := matchTemplate(sin.gray, toGray(img))
		if res.score > bestTemplate.score {
			bestTemplate = res
			bestTemplateImg = img
		}
	}

	if bestTemplateImg == nil {
		return LocateResult{}, false
	}

	if bestTemplate.score >= l.cfg.Locator.TemplateThreshold {
		return LocateResult{
			Success:    true,
			X:          bestTemplate.centerX,
			Y:          bestTemplate.centerY,
			Confidence: bestTemplate.score,
			Stage:      StageTemplate,
		}, true
	}

	msRes := matchMultiscale(sin.gray, bestTemplateImg,
		l.cfg.Locator.MultiscaleMin, l.cfg.Locator.MultiscaleMax, l.cfg.Locator.MultiscaleStep)
	if msRes.score >= l.cfg.Locator.MultiscaleThreshold {
		return LocateResult{
			Success:    true,
			X:          msRes.centerX,
			Y:          msRes.centerY,
			Confidence: msRes.score,
			Stage:      StageMultiscale,
		}, true
	}

	tmplGray := toGray(bestTemplateImg)
	if res, ok := matchFeatures(sin.gray, tmplGray, l.cfg.Locator.FeatureMinInliers); ok {
		return res, true
	}

	return LocateResult{}, false
}

// runSmallModelStage is the optional on-device/local vision-model hook
// (stage 4). No small-model client is wired in this module — there is no
// local inference runtime anywhere in the corpus to ground one on — so this
// stage is gated behind LocatorConfig.SmallModelEnabled and, when enabled
// without a configured client, simply falls through to the remote stage.
func (l *Locator) runSmallModelStage(ctx context.Context, sin *screenshotInput, target Target, hint string) (LocateResult, bool) {
	return LocateResult{}, false
}

func (l *Locator) runRemoteStage(ctx context.Context, sin *screenshotInput, target Target, hint string) (LocateResult, error) {
	var candBytes [][]byte
	candFormat := "png"
	for _, c := range target.Candidates {
		candBytes = append(candBytes, c.Bytes)
		candFormat = c.Format
	}

	model := l.cfg.Locator.RemoteModel
	if model == "" {
		model = l.cfg.LLM.Model
	}

	return locateRemote(ctx, l.remoteProvider, model, sin.raw, sin.format, candBytes, candFormat, hint, sin.width, sin.height)
}
