package wechat

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// plannerResponse is the JSON shape a remote planner must return, per
// §4.9 step 2.
type plannerResponse struct {
	WorkflowName string            `json:"workflow_name"`
	Params       map[string]string `json:"params"`
}

// plan asks the remote planner to choose among this handler's declared
// workflows for a complex task and produce params, per §4.9 step 2.
func (h *Handler) plan(ctx context.Context, task string) (string, map[string]string, error) {
	if h.planner == nil {
		return "", nil, orcherr.New(orcherr.PlannerFailed, "no planner configured for complex task")
	}

	messages := []providers.Message{
		{Role: "system", Content: plannerSystemPrompt(h.workflows)},
		{Role: "user", Content: task},
	}
	resp, err := h.planner.Chat(ctx, messages, nil, h.model, nil)
	if err != nil {
		return "", nil, orcherr.Wrap(orcherr.PlannerFailed, "planner call failed", err)
	}

	content := stripFence(resp.Content)
	var parsed plannerResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", nil, orcherr.Wrap(orcherr.PlannerFailed, "planner returned unparseable JSON", err)
	}
	if parsed.WorkflowName == "" {
		return "", nil, orcherr.New(orcherr.PlannerFailed, "planner did not name a workflow")
	}
	if parsed.Params == nil {
		parsed.Params = map[string]string{}
	}
	return parsed.WorkflowName, parsed.Params, nil
}

// plannerSystemPrompt lists the handler's declared workflows and their
// required/optional params so the planner can choose among them instead of
// inventing a workflow name.
func plannerSystemPrompt(workflows map[string]workflow.Workflow) string {
	names := make([]string, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("You choose exactly one workflow to satisfy the user's task and produce its parameters.\n")
	b.WriteString("Output only JSON: {\"workflow_name\": \"...\", \"params\": {...}}.\n")
	b.WriteString("Available workflows:\n")
	for _, name := range names {
		wf := workflows[name]
		b.WriteString("- " + name)
		if len(wf.RequiredParams) > 0 {
			b.WriteString(" (required: " + strings.Join(wf.RequiredParams, ", ") + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
