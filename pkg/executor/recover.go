package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/imageutil"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

const replanSystemPrompt = `You are recovering a failed mobile UI automation step.
Given the original task, the current screenshot, the failed step, and the step trace so far,
output only JSON: {"steps": [{"action": "...", "target": "...", "params": {...}, "description": "...", "expect_screen": "..."}]}
listing the replacement steps to run instead of the failed step and everything after it.
Valid actions: tap, long_press, swipe, input_text, input_url, press_key, wait, check, find_or_search, conditional, screenshot, nav_to_home, sub_workflow, keyevent.`

type replanStep struct {
	Action       string                 `json:"action"`
	Target       string                 `json:"target,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
	Description  string                 `json:"description,omitempty"`
	ExpectScreen string                 `json:"expect_screen,omitempty"`
}

type replanResponse struct {
	Steps []replanStep `json:"steps"`
}

// replan asks the configured provider for a replacement step list after a
// step has exhausted local retries and home recovery, per §4.7 recovery
// step 3. It is bounded by N_replan at the call site (executor.go).
func (e *Executor) replan(ctx context.Context, wf workflow.Workflow, params map[string]string, trace []StepResult, failedIndex int) ([]workflow.NavStep, error) {
	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.PlannerFailed, "capturing screenshot for replan", err)
	}

	var traceLines []string
	for _, sr := range trace {
		status := "ok"
		if !sr.Success {
			status = "failed: " + sr.Error
		}
		traceLines = append(traceLines, fmt.Sprintf("%d. %s(%s) -> %s", sr.Index, sr.Action, sr.Target, status))
	}

	prompt := fmt.Sprintf(
		"Workflow: %s\nOriginal params: %v\nFailed step index: %d\nStep trace:\n%s",
		wf.Name, params, failedIndex, strings.Join(traceLines, "\n"),
	)

	messages := []providers.Message{
		{Role: "system", Content: replanSystemPrompt},
		{Role: "user", Content: prompt, Images: []providers.ImageData{
			{MIMEType: "image/" + shot.Format, Base64: imageutil.EncodeBase64(shot.Bytes)},
		}},
	}

	model := e.cfg.LLM.Model
	resp, err := e.provider.Chat(ctx, messages, nil, model, nil)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.PlannerFailed, "replan chat call", err)
	}

	content := stripCodeFence(resp.Content)
	var parsed replanResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, orcherr.Wrap(orcherr.PlannerFailed, "parsing replan response", err)
	}
	if len(parsed.Steps) == 0 {
		return nil, orcherr.New(orcherr.PlannerFailed, "replan returned no steps")
	}

	steps := make([]workflow.NavStep, 0, len(parsed.Steps))
	for _, s := range parsed.Steps {
		steps = append(steps, workflow.NavStep{
			Action:       workflow.Action(s.Action),
			Target:       s.Target,
			Params:       s.Params,
			Description:  s.Description,
			ExpectScreen: s.ExpectScreen,
		})
	}
	return steps, nil
}

func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(t, "```")
		t = strings.TrimSpace(t)
	}
	return t
}
