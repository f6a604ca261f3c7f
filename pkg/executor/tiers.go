package executor

import (
	"strings"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// browserLikeApps get the longer capture-readiness delay per §4.7's wait
// policy; matched against the package name substring.
var browserLikeApps = []string{"chrome", "browser", "webview"}

// classifyTier assigns one of the four execution-strategy tiers to a step,
// deciding how much capture/verification work surrounds it.
func classifyTier(step workflow.NavStep) tier {
	switch step.Action {
	case workflow.ActionNavToHome, workflow.ActionWait, workflow.ActionPressKey, workflow.ActionKeyevent:
		return tierFireAndForget
	case workflow.ActionSwipe:
		return tierQuickVerify
	case workflow.ActionTap, workflow.ActionLongPress, workflow.ActionInputText, workflow.ActionInputURL, workflow.ActionFindOrSearch:
		if isDynamicTarget(step.Target) {
			return tierFullAI
		}
		return tierLocateExecute
	default:
		return tierLocateExecute
	}
}

func isDynamicTarget(target string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(target)), "dynamic:")
}

// verifyTierFor assigns the verification rigor for a step, per §4.7.
func verifyTierFor(step workflow.NavStep) verifyTier {
	switch step.Action {
	case workflow.ActionWait, workflow.ActionPressKey, workflow.ActionKeyevent, workflow.ActionNavToHome:
		return verifySkip
	case workflow.ActionInputURL:
		return verifyLenient
	case workflow.ActionTap, workflow.ActionLongPress, workflow.ActionSwipe, workflow.ActionInputText:
		if step.ExpectScreen != "" {
			return verifyPrecise
		}
		return verifyStandard
	default:
		return verifyStandard
	}
}

// waitForAction returns the post-action delay for one action kind, applying
// the per-app base delay plus an action-specific adjustment. Taps, and
// transitions in browser-like apps, use fixed delays (300ms and 1s) that
// ignore the base.
func waitForAction(cfg *config.Config, appName string, actionKind string) time.Duration {
	base := time.Duration(cfg.Screenshot.DefaultWaitMS) * time.Millisecond
	if ms, ok := cfg.Screenshot.PerAppWaitMS[appName]; ok {
		base = time.Duration(ms) * time.Millisecond
	}

	switch actionKind {
	case "launch", "url", "call":
		return base + 700*time.Millisecond
	case "tap":
		return 300 * time.Millisecond
	case "transition":
		if isBrowserLike(appName) {
			return time.Second
		}
		return base
	default:
		return base
	}
}

func isBrowserLike(appName string) bool {
	lower := strings.ToLower(appName)
	for _, b := range browserLikeApps {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}
