package executor

import (
	"context"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

const operationDelay = 300 * time.Millisecond

// preset is §4.7's entry invariant: launch the app if it isn't already
// foreground, then ensure it's at home.
func (e *Executor) preset(ctx context.Context, packageName string) error {
	fg, err := e.surface.ForegroundPackage(ctx)
	if err != nil || fg != packageName {
		if err := e.surface.LaunchApp(ctx, packageName); err != nil {
			return orcherr.Wrap(orcherr.DeviceCommandFailed, "launching app", err)
		}
		time.Sleep(waitForAction(e.cfg, e.appName, "launch"))
	}

	if _, err := e.ensureHome(ctx, packageName); err != nil {
		return err
	}
	return nil
}

// ensureHome is the canonical "navigate to home" macro: up to N_home
// attempts, each locating the home/cancel/back indicators in parallel (via
// one batched Locate call) and tapping whichever is found, device back key
// as the last resort.
func (e *Executor) ensureHome(ctx context.Context, packageName string) (bool, error) {
	attempts := e.cfg.Workflow.HomeMaxAttempts
	if attempts <= 0 {
		attempts = 5
	}

	for i := 0; i < attempts; i++ {
		screen, err := e.detectScreen(ctx)
		if err == nil && screen == workflow.HomeState {
			return true, nil
		}

		shot, err := e.surface.Screenshot(ctx)
		if err != nil {
			return false, orcherr.Wrap(orcherr.UnableToReachHome, "capturing screenshot during ensure-home", err)
		}

		targets := map[string]locator.Target{
			"home":   e.buildTarget(e.screens.Assets, "dynamic:the device or app's home/main screen indicator"),
			"cancel": e.buildTarget(e.screens.Assets, "dynamic:a cancel button"),
			"back":   e.buildTarget(e.screens.Assets, "dynamic:a back button"),
		}
		// Prefer visual reference indicators declared for home, when any.
		if indicator, ok := e.screens.Screens.States[workflow.HomeState]; ok && indicator.Primary != "" {
			targets["home"] = e.buildTarget(e.screens.Assets, indicator.Primary)
		}

		results, err := e.locator.Locate(ctx, shot.Bytes, shot.Format, targets)
		if err != nil {
			if err := e.surface.PressKey(ctx, "BACK"); err != nil {
				return false, orcherr.Wrap(orcherr.UnableToReachHome, "pressing back during ensure-home", err)
			}
			time.Sleep(operationDelay)
			continue
		}

		if r := results["home"]; r.Success {
			if err := e.tapResult(ctx, shot, r); err != nil {
				return false, err
			}
			return true, nil
		}
		if r := results["cancel"]; r.Success {
			if err := e.tapResult(ctx, shot, r); err != nil {
				return false, err
			}
		} else if r := results["back"]; r.Success {
			if err := e.tapResult(ctx, shot, r); err != nil {
				return false, err
			}
		} else if err := e.surface.PressKey(ctx, "BACK"); err != nil {
			return false, orcherr.Wrap(orcherr.UnableToReachHome, "pressing back during ensure-home", err)
		}
		time.Sleep(operationDelay)
	}

	return false, orcherr.New(orcherr.UnableToReachHome, "could not reach home after max attempts")
}

// navigateToHome is the recovery-path entry to the same macro, kept as a
// distinct name so call sites read like the spec's own recovery steps.
func (e *Executor) navigateToHome(ctx context.Context, packageName string) (bool, error) {
	return e.ensureHome(ctx, packageName)
}

// tapResult issues a tap at a located result's coordinates, translating the
// locator's coordinates (relative to the cropped screenshot it was given)
// back to full-display device pixels using the screenshot's crop offset.
func (e *Executor) tapResult(ctx context.Context, shot *device.Screenshot, r locator.LocateResult) error {
	x, y := r.X, r.Y+shot.CropOffsetY
	return e.surface.Tap(ctx, x, y)
}
