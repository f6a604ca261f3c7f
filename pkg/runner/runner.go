// Package runner implements the task runner (C8): the top-level algorithm
// that takes one utterance from the shell surface and drives it through
// classification, routing, handler dispatch, and execution to a final
// status. It owns the single device binding for the duration of one task.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccdanpian/vision-agent/pkg/classifier"
	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/registry"
)

// fixedPrefix is the fast-form grammar's leading marker, matched
// case-insensitively with either colon width (full-width folded by
// classifier.NormalizeUtterance before this check runs).
const fixedPrefix = "ss:"

// Handler is one app-specific reference handler (C9). The runner never
// inspects a workflow or parameter directly; it only dispatches.
type Handler interface {
	Name() string
	// HandledTypes lists the ParsedTask.Type values this handler maps to a
	// workflow directly (used to build the type->handler fast-routing
	// table, step 2 of §4.8, without a separate config file).
	HandledTypes() []classifier.TaskType
	ExecuteTaskWithWorkflow(ctx context.Context, task string, parsed *classifier.ParsedTask) HandlerResult
}

// HandlerResult is what a Handler returns: either a validation failure
// (missing required params) or a delegated executor run.
type HandlerResult struct {
	Success       bool
	MissingParams []string
	WorkflowName  string
	Status        string
	Err           error
}

// Status values mirror the outer-facing outcome vocabulary; they are
// intentionally distinct from executor.TaskStatus, which is an internal C7
// concept the runner does not leak.
const (
	StatusSuccess              = "success"
	StatusFailed               = "failed"
	StatusInvalidInput         = "invalid_input"
	StatusClassificationFailed = "classification_failed"
	StatusMissingParams        = "missing_params"
)

// Outcome is the runner's final, user-facing result for one task.
type Outcome struct {
	Status        string
	Message       string
	HandlerName   string
	WorkflowName  string
	MissingParams []string
	ExitCode      int
	// RestartModeSelection signals the outer shell to re-prompt for a mode
	// (fixed-form vs. natural language) rather than silently falling
	// through to keyword routing, per §4.8 step 4.
	RestartModeSelection bool
	// TaskID correlates this outcome with the log lines emitted while it
	// ran; every RunTask call gets a fresh one.
	TaskID string
}

// Runner wires the classifier, module registry, and the set of registered
// handlers together behind one entry point, RunTask.
type Runner struct {
	cfg        *config.Config
	surface    device.Surface
	provider   providers.LLMProvider
	reg        *registry.Registry
	handlers   map[string]Handler
	typeRoutes map[classifier.TaskType]string
}

// New builds a Runner. handlers must include an entry named "system" to
// serve as C4's below-threshold fallback.
func New(cfg *config.Config, surface device.Surface, provider providers.LLMProvider, reg *registry.Registry, handlers []Handler) *Runner {
	byName := make(map[string]Handler, len(handlers))
	typeRoutes := make(map[classifier.TaskType]string)
	for _, h := range handlers {
		byName[h.Name()] = h
		for _, t := range h.HandledTypes() {
			typeRoutes[t] = h.Name()
		}
	}
	return &Runner{cfg: cfg, surface: surface, provider: provider, reg: reg, handlers: byName, typeRoutes: typeRoutes}
}

// RunTask executes §4.8's top-level algorithm for one utterance. A fresh
// task ID is stamped onto ctx so every log line this call produces, down
// through the executor and locator, can be tied back to one Outcome.
func (r *Runner) RunTask(ctx context.Context, utterance string) Outcome {
	taskID := uuid.NewString()
	ctx = logger.WithTaskID(ctx, taskID)
	logger.InfoCtx(ctx, "runner", "task started", map[string]interface{}{"utterance": utterance})

	outcome := r.runTask(ctx, utterance)
	outcome.TaskID = taskID
	logger.InfoCtx(ctx, "runner", "task finished", map[string]interface{}{"status": outcome.Status})
	return outcome
}

func (r *Runner) runTask(ctx context.Context, utterance string) Outcome {
	appName := r.foregroundAppName(ctx)
	r.paceInitialScreenshot(ctx, appName)

	normalized := classifier.NormalizeUtterance(utterance)
	lower := strings.ToLower(normalized)

	if strings.HasPrefix(lower, fixedPrefix) {
		return r.runFixedForm(ctx, normalized, utterance)
	}
	return r.runNaturalLanguage(ctx, utterance)
}

// runFixedForm handles the `ss:` prefixed path: steps 2-4 of §4.8.
func (r *Runner) runFixedForm(ctx context.Context, normalized, original string) Outcome {
	stripped := normalized[len(fixedPrefix):]

	if parsed, ok := classifier.ParseFastForm(normalized); ok {
		if handlerName, routed := r.typeRoutes[parsed.Type]; routed {
			return r.dispatch(ctx, handlerName, original, &parsed)
		}
		// Fast form parsed but no handler claims this type: fall through
		// to the model path on the stripped utterance rather than give up,
		// since the type may still resolve through a richer parse.
	}

	res := classifier.Classify(ctx, r.provider, r.cfg.LLM.Model, stripped)
	if res.Parsed.Type != "" {
		if handlerName, routed := r.typeRoutes[res.Parsed.Type]; routed {
			return r.dispatch(ctx, handlerName, original, &res.Parsed)
		}
	}
	if res.Class == classifier.ClassInvalid {
		return Outcome{Status: StatusInvalidInput, Message: "the task could not be understood", ExitCode: 1}
	}

	// Neither a routable parsed type nor a clean invalid verdict: the
	// model path produced nothing usable. Per §4.8 step 4, do not fall
	// through to keyword routing — misrouting a fixed-form task is worse
	// than asking the shell to re-prompt mode selection.
	logger.Warn("runner: classification produced no routable result for fixed-form task")
	return Outcome{
		Status:               StatusClassificationFailed,
		Message:              orcherr.New(orcherr.ClassificationFailed, "could not classify fixed-form task").Error(),
		ExitCode:             1,
		RestartModeSelection: true,
	}
}

// runNaturalLanguage handles the no-prefix path: step 6-7 of §4.8.
func (r *Runner) runNaturalLanguage(ctx context.Context, utterance string) Outcome {
	mod, routed := r.reg.Route(utterance)
	if !routed {
		logger.Info(fmt.Sprintf("runner: no handler scored above threshold, falling back to %q", mod.Name))
	}
	return r.dispatch(ctx, mod.Name, utterance, nil)
}

func (r *Runner) dispatch(ctx context.Context, handlerName, task string, parsed *classifier.ParsedTask) Outcome {
	h, ok := r.handlers[handlerName]
	if !ok {
		h, ok = r.handlers["system"]
		if !ok {
			return Outcome{Status: StatusFailed, Message: fmt.Sprintf("no handler registered for %q and no system fallback", handlerName), ExitCode: 2}
		}
	}

	result := h.ExecuteTaskWithWorkflow(ctx, task, parsed)
	if !result.Success {
		if len(result.MissingParams) > 0 {
			return Outcome{
				Status:        StatusMissingParams,
				Message:       fmt.Sprintf("missing required params: %s", strings.Join(result.MissingParams, ", ")),
				HandlerName:   h.Name(),
				WorkflowName:  result.WorkflowName,
				MissingParams: result.MissingParams,
				ExitCode:      1,
			}
		}
		exitCode := 1
		if orcherr.Is(result.Err, orcherr.DeviceUnavailable) {
			exitCode = 2
		}
		msg := ""
		if result.Err != nil {
			msg = result.Err.Error()
		}
		return Outcome{Status: StatusFailed, Message: msg, HandlerName: h.Name(), WorkflowName: result.WorkflowName, ExitCode: exitCode}
	}

	return Outcome{Status: StatusSuccess, Message: "task completed", HandlerName: h.Name(), WorkflowName: result.WorkflowName, ExitCode: 0}
}

func (r *Runner) foregroundAppName(ctx context.Context) string {
	pkg, err := r.surface.ForegroundPackage(ctx)
	if err != nil {
		return ""
	}
	return pkg
}

// paceInitialScreenshot waits the app's configured capture delay before the
// first screenshot a handler/executor will take, per §4.8's screenshot
// pacing note (default 0.3s, 1.0s for browser-class apps).
func (r *Runner) paceInitialScreenshot(ctx context.Context, appName string) {
	wait := r.cfg.Screenshot.DefaultWaitMS
	if ms, ok := r.cfg.Screenshot.PerAppWaitMS[appName]; ok {
		wait = ms
	} else if isBrowserPackage(appName) {
		wait = 1000
	}
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(wait) * time.Millisecond):
	}
}

func isBrowserPackage(pkg string) bool {
	lower := strings.ToLower(pkg)
	for _, marker := range []string{"chrome", "browser", "webview"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
