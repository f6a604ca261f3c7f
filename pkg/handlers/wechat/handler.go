// Package wechat implements the reference handler (C9): one concrete
// handler wiring the asset store, workflow model, and executor together for
// a messaging/social app, with the type->workflow and parsed->params
// mapping tables §4.9 describes. It is the template other app handlers
// follow.
package wechat

import (
	"context"
	"fmt"

	"github.com/ccdanpian/vision-agent/pkg/classifier"
	"github.com/ccdanpian/vision-agent/pkg/executor"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/runner"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

const (
	WorkflowSendMessage = "send_message"
	WorkflowPostMoments = "post_moments"

	packageName = "com.tencent.mm"
)

// typeToWorkflow maps a classifier ParsedTask.Type to the workflow that
// satisfies it, per §4.9 step 1.
var typeToWorkflow = map[classifier.TaskType]string{
	classifier.TaskSendMsg:            WorkflowSendMessage,
	classifier.TaskPostMomentOnlyText: WorkflowPostMoments,
}

// Handler is the wechat reference handler.
type Handler struct {
	exec      *executor.Executor
	workflows map[string]workflow.Workflow
	planner   providers.LLMProvider
	model     string
}

// New builds the wechat handler bound to an already-constructed executor
// and the app's loaded workflow set.
func New(exec *executor.Executor, workflows map[string]workflow.Workflow, planner providers.LLMProvider, model string) *Handler {
	return &Handler{exec: exec, workflows: workflows, planner: planner, model: model}
}

func (h *Handler) Name() string { return "wechat" }

// HandledTypes reports the parsed-task types this handler claims directly,
// used by the runner to build its type->handler fast-routing table.
func (h *Handler) HandledTypes() []classifier.TaskType {
	types := make([]classifier.TaskType, 0, len(typeToWorkflow))
	for t := range typeToWorkflow {
		types = append(types, t)
	}
	return types
}

// ExecuteTaskWithWorkflow implements §4.9's algorithm: resolve a workflow
// name and params from either a parsed record, a local re-classification, a
// remote planner, or a regex pattern table, validate required params, then
// delegate to the executor.
func (h *Handler) ExecuteTaskWithWorkflow(ctx context.Context, task string, parsed *classifier.ParsedTask) runner.HandlerResult {
	workflowName, params, err := h.resolve(ctx, task, parsed)
	if err != nil {
		return runner.HandlerResult{Success: false, Err: err}
	}

	wf, ok := h.workflows[workflowName]
	if !ok {
		return runner.HandlerResult{Success: false, WorkflowName: workflowName, Err: orcherr.New(orcherr.PlannerFailed, fmt.Sprintf("unknown workflow %q", workflowName))}
	}

	if missing := missingParams(wf, params); len(missing) > 0 {
		return runner.HandlerResult{Success: false, WorkflowName: workflowName, MissingParams: missing}
	}

	result := h.exec.ExecuteWorkflow(ctx, packageName, wf, params)
	if result.Status != executor.StatusSuccess {
		var cause error
		if result.Error != "" {
			cause = orcherr.New(orcherr.StepFailed, result.Error)
		}
		return runner.HandlerResult{Success: false, WorkflowName: workflowName, Err: cause}
	}
	return runner.HandlerResult{Success: true, WorkflowName: workflowName}
}

// resolve implements §4.9 step 1-2: direct mapping from a parsed record when
// available, otherwise local classification, remote planning for complex
// tasks, and regex fallback for simple-but-unparsed tasks.
func (h *Handler) resolve(ctx context.Context, task string, parsed *classifier.ParsedTask) (string, map[string]string, error) {
	if parsed != nil && parsed.Type != classifier.TaskInvalid && parsed.Type != "" {
		if wfName, ok := typeToWorkflow[parsed.Type]; ok {
			return wfName, paramsFor(parsed), nil
		}
	}

	res := classifier.Classify(ctx, h.planner, h.model, task)
	switch {
	case res.Class == classifier.ClassInvalid:
		return "", nil, orcherr.New(orcherr.InvalidInput, "task could not be understood")

	case res.Parsed.Type != "" && res.Parsed.Type != classifier.TaskInvalid:
		if wfName, ok := typeToWorkflow[res.Parsed.Type]; ok {
			return wfName, paramsFor(&res.Parsed), nil
		}
		fallthrough

	case res.Class == classifier.ClassComplex:
		return h.plan(ctx, task)

	default:
		// Simple but unparsed: the classifier degraded without a usable
		// record. Try this handler's own regex pattern table before
		// giving up entirely.
		if wfName, params, ok := matchPatterns(task); ok {
			return wfName, params, nil
		}
		return "", nil, orcherr.New(orcherr.ClassificationFailed, "could not resolve a workflow for this task")
	}
}

// paramsFor builds the workflow parameters for a directly-mapped parsed
// record, per §4.9 step 1.
func paramsFor(parsed *classifier.ParsedTask) map[string]string {
	switch parsed.Type {
	case classifier.TaskSendMsg:
		return map[string]string{"contact": parsed.Recipient, "message": parsed.Content}
	case classifier.TaskPostMomentOnlyText:
		return map[string]string{"content": parsed.Content, "postAction": "long_press"}
	default:
		return map[string]string{}
	}
}

// missingParams checks a resolved params set against a workflow's declared
// required params, returning the names that are absent or empty.
func missingParams(wf workflow.Workflow, params map[string]string) []string {
	var missing []string
	for _, name := range wf.RequiredParams {
		if v, ok := params[name]; !ok || v == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
