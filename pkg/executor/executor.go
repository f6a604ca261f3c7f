package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// assetStore is the subset of *assets.Store the executor needs, declared
// locally so tests can substitute a fake without pulling the real
// filesystem-backed store into every test case.
type assetStore interface {
	GetImage(name string) (string, bool)
	GetImageVariants(name string) []string
}

// uiLocator is the subset of *locator.Locator the executor depends on.
type uiLocator interface {
	Locate(ctx context.Context, screenshot []byte, format string, targets map[string]locator.Target) (map[string]locator.LocateResult, error)
}

// ScreenResolver looks up an app's declared screen-state indicators and
// resolves a workflow's named target against the asset store.
type ScreenResolver struct {
	Screens workflow.Screens
	Assets  assetStore
}

// Executor runs workflows against one bound device surface. It is built once
// per handler invocation (or reused across calls, since it carries no
// per-run mutable state of its own).
type Executor struct {
	cfg       *config.Config
	surface   device.Surface
	locator   uiLocator
	screens   ScreenResolver
	provider  providers.LLMProvider
	appName   string
	workflows map[string]workflow.Workflow
}

// New builds an Executor bound to one device surface, locator, and screen
// enumeration. provider may be nil, in which case replanning (§4.7 recovery
// step 3) is skipped and a failed step path aborts directly. workflows is
// the handler's full named-workflow set, consulted when a step's action is
// sub_workflow.
func New(cfg *config.Config, surface device.Surface, loc uiLocator, screens ScreenResolver, provider providers.LLMProvider, appName string, workflows map[string]workflow.Workflow) *Executor {
	return &Executor{
		cfg:       cfg,
		surface:   surface,
		locator:   loc,
		screens:   screens,
		provider:  provider,
		appName:   appName,
		workflows: workflows,
	}
}

// ExecuteWorkflow is C7's entry point. It always runs preset, then the main
// step loop, then reset — reset runs on every return path, success or
// failure, per the mandatory try/finally discipline in §4.7.
func (e *Executor) ExecuteWorkflow(ctx context.Context, packageName string, wf workflow.Workflow, params map[string]string) (result TaskResult) {
	start := time.Now()
	result.Status = StatusRunning

	defer func() {
		result.DurationMS = time.Since(start).Milliseconds()
		if _, err := e.ensureHome(ctx, packageName); err != nil {
			logger.WarnCtx(ctx, "executor", "reset ensure-home failed", map[string]interface{}{
				"workflow": wf.Name,
				"error":    err.Error(),
			})
		}
	}()

	if err := e.preset(ctx, packageName); err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	steps := append([]workflow.NavStep(nil), wf.Steps...)
	replans := 0

	currentScreen, err := e.detectScreen(ctx)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}
	if !containsScreen(wf.ValidStartScreens, currentScreen) {
		if _, err := e.navigateToHome(ctx, packageName); err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			return result
		}
	}

	i := 0
	for i < len(steps) {
		step := steps[i]
		resolved, err := workflow.ResolveStep(step, params)
		if err != nil {
			sr := StepResult{Index: i, Action: string(step.Action), Success: false, Error: err.Error()}
			result.Steps = append(result.Steps, sr)
			result.Status = StatusFailed
			result.Error = err.Error()
			return result
		}

		if resolved.Action == workflow.ActionSubWorkflow {
			sr, state := e.runSubWorkflow(ctx, packageName, resolved, params, i)
			result.Steps = append(result.Steps, sr)
			if state != stateRun {
				result.Status = StatusFailed
				result.Error = orcherr.New(orcherr.StepFailed, fmt.Sprintf("sub_workflow step %d failed", i)).Error()
				return result
			}
			i++
			continue
		}

		sr, state := e.runStepWithRetry(ctx, packageName, resolved, i)
		result.Steps = append(result.Steps, sr)

		switch state {
		case stateRun:
			i++
		case stateReplan:
			if e.provider == nil || replans >= e.cfg.Workflow.AIFallbackAttempts {
				result.Status = StatusFailed
				result.Error = orcherr.New(orcherr.StepFailed, fmt.Sprintf("step %d failed, replanning unavailable", i)).Error()
				return result
			}
			replanned, err := e.replan(ctx, wf, params, result.Steps, i)
			if err != nil {
				result.Status = StatusFailed
				result.Error = err.Error()
				return result
			}
			replans++
			result.ReplanCount = replans
			steps = append(append([]workflow.NavStep(nil), steps[:i]...), replanned...)
		default:
			result.Status = StatusFailed
			result.Error = orcherr.New(orcherr.StepFailed, fmt.Sprintf("step %d (%s) failed after retries", i, step.Action)).Error()
			return result
		}
	}

	result.Status = StatusSuccess
	return result
}

func containsScreen(screens []string, s string) bool {
	for _, v := range screens {
		if v == s {
			return true
		}
	}
	return false
}
