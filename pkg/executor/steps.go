package executor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// runStepWithRetry executes one resolved step up to N_step times (default
// 3), running recovery when all attempts are exhausted.
func (e *Executor) runStepWithRetry(ctx context.Context, packageName string, step workflow.NavStep, index int) (StepResult, execState) {
	maxAttempts := e.cfg.Workflow.MaxStepRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	sr := StepResult{Index: index, Action: string(step.Action), Target: step.Target}
	tierOf := classifyTier(step)
	verify := verifyTierFor(step)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sr.Attempts = attempt
		ok, stage, err := e.executeStepOnce(ctx, step)
		sr.Stage = stage

		// Fire-and-forget steps and steps whose verification tier is skip
		// never pay for a verification screenshot; every other step that
		// sets expectScreen re-detects the screen to confirm it.
		if ok && step.ExpectScreen != "" && tierOf != tierFireAndForget && verify != verifySkip {
			screen, serr := e.detectScreen(ctx)
			if serr != nil || screen != step.ExpectScreen {
				ok = false
				err = orcherr.New(orcherr.StepFailed, fmt.Sprintf("expected screen %q, got %q", step.ExpectScreen, screen))
			}
		}

		if ok {
			sr.Success = true
			return sr, stateRun
		}

		if err != nil {
			sr.Error = err.Error()
		}
		time.Sleep(operationDelay)
	}

	// Exhausted local retries: attempt to recover to home, per §4.7 recovery
	// step 2. A successful recovery hands the step back to the caller as a
	// replan candidate; a failed recovery aborts the run outright.
	if ok, _ := e.navigateToHome(ctx, packageName); ok {
		return sr, stateReplan
	}
	return sr, stateAbort
}

// executeStepOnce runs the action semantics for a single step attempt,
// returning success, the locate stage used (if any), and an error.
func (e *Executor) executeStepOnce(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	switch step.Action {
	case workflow.ActionTap:
		return e.actionTapOrLongPress(ctx, step, false)
	case workflow.ActionLongPress:
		return e.actionTapOrLongPress(ctx, step, true)
	case workflow.ActionSwipe:
		return e.actionSwipe(ctx, step)
	case workflow.ActionInputText:
		return e.actionInputText(ctx, step)
	case workflow.ActionInputURL:
		return e.actionInputURL(ctx, step)
	case workflow.ActionPressKey, workflow.ActionKeyevent:
		err := e.surface.PressKey(ctx, step.Target)
		return err == nil, "", err
	case workflow.ActionWait:
		e.actionWait(step)
		return true, "", nil
	case workflow.ActionCheck:
		return e.actionCheck(ctx, step)
	case workflow.ActionFindOrSearch:
		return e.actionFindOrSearch(ctx, step)
	case workflow.ActionConditional:
		return e.actionConditional(ctx, step)
	case workflow.ActionScreenshot:
		return e.actionScreenshot(ctx, step)
	case workflow.ActionNavToHome:
		ok, err := e.navigateToHome(ctx, "")
		return ok, "", err
	case workflow.ActionSubWorkflow:
		return false, "", orcherr.New(orcherr.StepFailed, "sub_workflow must be resolved by the caller, not executeStepOnce")
	default:
		return false, "", orcherr.New(orcherr.StepFailed, fmt.Sprintf("unknown action %q", step.Action))
	}
}

func (e *Executor) actionTapOrLongPress(ctx context.Context, step workflow.NavStep, long bool) (bool, locator.Stage, error) {
	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		return false, "", err
	}
	target := e.buildTarget(e.screens.Assets, step.Target)
	results, err := e.locator.Locate(ctx, shot.Bytes, shot.Format, map[string]locator.Target{"t": target})
	if err != nil {
		return false, "", err
	}
	r := results["t"]
	if !r.Success {
		return false, r.Stage, orcherr.New(orcherr.LocateFailed, fmt.Sprintf("could not locate target %q", step.Target))
	}

	x, y := r.X, r.Y+shot.CropOffsetY
	if long {
		durationMS := 800
		if v, ok := step.Params["duration_ms"]; ok {
			durationMS = toInt(v, durationMS)
		}
		err = e.surface.LongPress(ctx, x, y, durationMS)
	} else {
		err = e.surface.Tap(ctx, x, y)
		time.Sleep(waitForAction(e.cfg, e.appName, "tap"))
	}
	return err == nil, r.Stage, err
}

func (e *Executor) actionSwipe(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	size, err := e.surface.ScreenSize(ctx)
	if err != nil {
		return false, "", err
	}
	direction, _ := step.Params["direction"].(string)
	durationMS := 300
	if v, ok := step.Params["duration_ms"]; ok {
		durationMS = toInt(v, durationMS)
	}

	x1, y1, x2, y2 := swipeCoords(size.Width, size.Height, direction)
	err = e.surface.Swipe(ctx, x1, y1, x2, y2, durationMS)
	return err == nil, "", err
}

func swipeCoords(width, height int, direction string) (x1, y1, x2, y2 int) {
	cx, cy := width/2, height/2
	switch direction {
	case "up":
		return cx, int(float64(height) * 0.75), cx, int(float64(height) * 0.25)
	case "down":
		return cx, int(float64(height) * 0.25), cx, int(float64(height) * 0.75)
	case "left":
		return int(float64(width) * 0.8), cy, int(float64(width) * 0.2), cy
	case "right":
		return int(float64(width) * 0.2), cy, int(float64(width) * 0.8), cy
	default:
		return cx, int(float64(height) * 0.75), cx, int(float64(height) * 0.25)
	}
}

// issueText dispatches to the plain ASCII input path or the broadcast/base64
// wide-character path, per §4.7's rule: wide-character mode is chosen when
// any code point in text is ≥ U+0080. Callers never talk to
// InputText/InputWideText directly so the dispatch rule lives in one place.
func (e *Executor) issueText(ctx context.Context, text string) error {
	if device.NeedsWideCharMode(text) {
		return e.surface.InputWideText(ctx, text)
	}
	return e.surface.InputText(ctx, text)
}

func (e *Executor) actionInputText(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	var stage locator.Stage
	if step.Target != "" {
		ok, s, err := e.actionTapOrLongPress(ctx, step, false)
		stage = s
		if !ok {
			return false, stage, err
		}
	}
	text, _ := step.Params["text"].(string)
	err := e.issueText(ctx, text)
	return err == nil, stage, err
}

func (e *Executor) actionInputURL(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	var stage locator.Stage
	if step.Target != "" {
		ok, s, err := e.actionTapOrLongPress(ctx, step, false)
		stage = s
		if !ok {
			return false, stage, err
		}
	}
	url, _ := step.Params["url"].(string)
	if url == "" {
		url, _ = step.Params["text"].(string)
	}
	err := e.surface.InputURL(ctx, normalizeURL(url))
	if err == nil {
		time.Sleep(waitForAction(e.cfg, e.appName, "url"))
	}
	return err == nil, stage, err
}

func normalizeURL(u string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if len(u) >= len(scheme) && u[:len(scheme)] == scheme {
			return u
		}
	}
	if u == "" {
		return u
	}
	return "https://" + u
}

func (e *Executor) actionWait(step workflow.NavStep) {
	duration := 1000
	if v, ok := step.Params["duration"]; ok {
		duration = toInt(v, duration)
	} else if step.MaxWaitMs > 0 {
		duration = step.MaxWaitMs
	}
	time.Sleep(time.Duration(duration) * time.Millisecond)
}

func (e *Executor) actionCheck(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	screen, err := e.detectScreen(ctx)
	if err != nil {
		return false, "", err
	}
	return screen == step.ExpectScreen, "", nil
}

// actionFindOrSearch tries to locate the target directly; if absent, it
// enters the app's search surface (a reference named "search_icon" by
// convention) and inputs the target text, per §4.7. It does not pick
// a search result: on the search path it only opens the search surface and
// enters the target text.
func (e *Executor) actionFindOrSearch(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		return false, "", err
	}
	target := e.buildTarget(e.screens.Assets, step.Target)
	results, err := e.locator.Locate(ctx, shot.Bytes, shot.Format, map[string]locator.Target{"t": target})
	if err == nil && results["t"].Success {
		r := results["t"]
		tapErr := e.surface.Tap(ctx, r.X, r.Y+shot.CropOffsetY)
		return tapErr == nil, r.Stage, tapErr
	}

	searchTarget := e.buildTarget(e.screens.Assets, "search_icon")
	searchResults, serr := e.locator.Locate(ctx, shot.Bytes, shot.Format, map[string]locator.Target{"s": searchTarget})
	if serr != nil || !searchResults["s"].Success {
		return false, "", orcherr.New(orcherr.LocateFailed, "target absent and search surface not found")
	}
	sr := searchResults["s"]
	if err := e.surface.Tap(ctx, sr.X, sr.Y+shot.CropOffsetY); err != nil {
		return false, sr.Stage, err
	}
	time.Sleep(waitForAction(e.cfg, e.appName, "tap"))
	if err := e.issueText(ctx, step.Target); err != nil {
		return false, sr.Stage, err
	}
	return true, sr.Stage, nil
}

func (e *Executor) actionConditional(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	key, _ := step.Params["predicate"].(string)
	val, _ := step.Params[key].(bool)
	branchName := "false"
	if val {
		branchName = "true"
	}
	branch, ok := step.Branches[branchName]
	if !ok {
		return true, "", nil
	}
	for _, nested := range branch {
		ok, _, err := e.executeStepOnce(ctx, nested)
		if !ok {
			return false, "", err
		}
	}
	return true, "", nil
}

func (e *Executor) actionScreenshot(ctx context.Context, step workflow.NavStep) (bool, locator.Stage, error) {
	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		return false, "", err
	}
	path, _ := step.Params["path"].(string)
	if path == "" {
		return true, "", nil
	}
	if err := saveScreenshot(path, shot); err != nil {
		return false, "", err
	}
	return true, "", nil
}

func toInt(v interface{}, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return fallback
}

// saveScreenshot is split out so it can be swapped in tests without writing
// to disk.
var saveScreenshot = func(path string, shot *device.Screenshot) error {
	return writeFile(path, shot.Bytes)
}
