package executor

import (
	"context"
	"fmt"

	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// runSubWorkflow re-enters ExecuteWorkflow for a nested workflow named by
// step.Target, with its params merged on top of the parent's.
func (e *Executor) runSubWorkflow(ctx context.Context, packageName string, step workflow.NavStep, parentParams map[string]string, index int) (StepResult, execState) {
	sr := StepResult{Index: index, Action: string(step.Action), Target: step.Target}

	child, ok := e.workflows[step.Target]
	if !ok {
		sr.Error = orcherr.New(orcherr.StepFailed, fmt.Sprintf("sub_workflow %q not found", step.Target)).Error()
		return sr, stateAbort
	}

	merged := workflow.MergeParams(parentParams, step.Params)
	childResult := e.ExecuteWorkflow(ctx, packageName, child, merged)
	sr.Success = childResult.Status == StatusSuccess
	if !sr.Success {
		sr.Error = childResult.Error
		return sr, stateAbort
	}
	return sr, stateRun
}
