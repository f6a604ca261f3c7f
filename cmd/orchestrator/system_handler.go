package main

import (
	"context"

	"github.com/ccdanpian/vision-agent/pkg/classifier"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/runner"
)

// systemHandler is the default handler C4 routes to when no app scores
// above threshold and no type-based route applies. It claims no types and
// never resolves a workflow; it exists so the runner always has a handler
// to dispatch a below-threshold utterance to.
type systemHandler struct{}

func (systemHandler) Name() string                        { return "system" }
func (systemHandler) HandledTypes() []classifier.TaskType { return nil }

func (systemHandler) ExecuteTaskWithWorkflow(ctx context.Context, task string, parsed *classifier.ParsedTask) runner.HandlerResult {
	return runner.HandlerResult{
		Success: false,
		Err:     orcherr.New(orcherr.InvalidInput, "no app handler recognized this task; try naming the app or using the ss: fixed form"),
	}
}
