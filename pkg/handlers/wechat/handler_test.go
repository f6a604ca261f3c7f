package wechat

import (
	"context"
	"strings"
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/classifier"
	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/executor"
	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

type fakeSurface struct{ device.Surface }

func (fakeSurface) ForegroundPackage(ctx context.Context) (string, error) { return packageName, nil }
func (fakeSurface) Screenshot(ctx context.Context) (*device.Screenshot, error) {
	return &device.Screenshot{Bytes: []byte("x"), Format: "png"}, nil
}
func (fakeSurface) LaunchApp(ctx context.Context, pkg string) error  { return nil }
func (fakeSurface) Tap(ctx context.Context, x, y int) error          { return nil }
func (fakeSurface) PressKey(ctx context.Context, key string) error   { return nil }
func (fakeSurface) InputText(ctx context.Context, text string) error { return nil }

type fakeLocator struct{}

func (fakeLocator) Locate(ctx context.Context, shot []byte, format string, targets map[string]locator.Target) (map[string]locator.LocateResult, error) {
	out := map[string]locator.LocateResult{}
	for k := range targets {
		out[k] = locator.LocateResult{Success: true, X: 1, Y: 1}
	}
	return out, nil
}

type fakeAssets struct{}

func (fakeAssets) GetImage(name string) (string, bool)   { return "", false }
func (fakeAssets) GetImageVariants(name string) []string { return nil }

// fakePlanner answers the classifier's own model-path prompt and the
// handler's remote-planner prompt differently, distinguishing them by the
// system message content, since both travel through the same LLMProvider
// seam in production.
type fakePlanner struct{ content string }

func (p *fakePlanner) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec, model string, opts map[string]interface{}) (*providers.ChatResponse, error) {
	if len(messages) > 0 && strings.Contains(messages[0].Content, "fields: type") {
		return &providers.ChatResponse{Content: `{"type":"others","recipient":"","content":""}`}, nil
	}
	return &providers.ChatResponse{Content: p.content}, nil
}

func newTestHandler(planner providers.LLMProvider) *Handler {
	cfg := config.DefaultConfig()
	cfg.Workflow.HomeMaxAttempts = 1
	cfg.Workflow.MaxStepRetries = 1
	screens := workflow.Screens{States: map[string]workflow.ScreenIndicator{workflow.HomeState: {Primary: "home_indicator"}}}
	workflows := map[string]workflow.Workflow{
		WorkflowSendMessage: {
			Name:              WorkflowSendMessage,
			ValidStartScreens: []string{workflow.HomeState},
			RequiredParams:    []string{"contact", "message"},
			Steps: []workflow.NavStep{
				{Action: workflow.ActionWait, Params: map[string]interface{}{"duration": 1}},
			},
		},
		WorkflowPostMoments: {
			Name:              WorkflowPostMoments,
			ValidStartScreens: []string{workflow.HomeState},
			RequiredParams:    []string{"content"},
			Steps: []workflow.NavStep{
				{Action: workflow.ActionWait, Params: map[string]interface{}{"duration": 1}},
			},
		},
	}
	ex := executor.New(cfg, fakeSurface{}, fakeLocator{}, executor.ScreenResolver{Screens: screens, Assets: fakeAssets{}}, nil, "wechat", workflows)
	return New(ex, workflows, planner, "test-model")
}

func TestExecuteTaskWithWorkflowUsesDirectTypeMapping(t *testing.T) {
	h := newTestHandler(nil)
	parsed := &classifier.ParsedTask{Type: classifier.TaskSendMsg, Recipient: "张三", Content: "你好"}
	result := h.ExecuteTaskWithWorkflow(context.Background(), "ss:张三:你好", parsed)
	if !result.Success || result.WorkflowName != WorkflowSendMessage {
		t.Fatalf("expected successful send_message dispatch, got %+v", result)
	}
}

func TestExecuteTaskWithWorkflowReportsMissingParams(t *testing.T) {
	h := newTestHandler(nil)
	parsed := &classifier.ParsedTask{Type: classifier.TaskSendMsg, Content: "你好"}
	result := h.ExecuteTaskWithWorkflow(context.Background(), "ss:missing", parsed)
	if result.Success {
		t.Fatalf("expected failure due to missing contact param")
	}
	if len(result.MissingParams) != 1 || result.MissingParams[0] != "contact" {
		t.Fatalf("expected missing contact param, got %+v", result.MissingParams)
	}
}

func TestExecuteTaskWithWorkflowFallsBackToRegexPattern(t *testing.T) {
	h := newTestHandler(nil)
	result := h.ExecuteTaskWithWorkflow(context.Background(), "给张三发消息你好", nil)
	if !result.Success || result.WorkflowName != WorkflowSendMessage {
		t.Fatalf("expected regex fallback to resolve send_message, got %+v", result)
	}
}

func TestExecuteTaskWithWorkflowUsesRemotePlannerForComplexTask(t *testing.T) {
	planner := &fakePlanner{content: `{"workflow_name":"post_moments","params":{"content":"nice weather"}}`}
	h := newTestHandler(planner)
	result := h.ExecuteTaskWithWorkflow(context.Background(), "help me think of something nice to share with everyone today", nil)
	if !result.Success || result.WorkflowName != WorkflowPostMoments {
		t.Fatalf("expected planner-driven dispatch to post_moments, got %+v", result)
	}
}
