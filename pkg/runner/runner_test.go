package runner

import (
	"context"
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/classifier"
	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
	"github.com/ccdanpian/vision-agent/pkg/registry"
)

type stubSurface struct {
	device.Surface
	foreground string
}

func (s *stubSurface) ForegroundPackage(ctx context.Context) (string, error) {
	return s.foreground, nil
}

type recordingHandler struct {
	name       string
	types      []classifier.TaskType
	lastTask   string
	lastParsed *classifier.ParsedTask
	result     HandlerResult
}

func (h *recordingHandler) Name() string                        { return h.name }
func (h *recordingHandler) HandledTypes() []classifier.TaskType { return h.types }
func (h *recordingHandler) ExecuteTaskWithWorkflow(ctx context.Context, task string, parsed *classifier.ParsedTask) HandlerResult {
	h.lastTask = task
	h.lastParsed = parsed
	return h.result
}

func testCfg() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Screenshot.DefaultWaitMS = 0
	return cfg
}

func TestRunTaskFixedFormRoutesByParsedType(t *testing.T) {
	wechat := &recordingHandler{
		name:   "wechat",
		types:  []classifier.TaskType{classifier.TaskSendMsg},
		result: HandlerResult{Success: true, WorkflowName: "send_message"},
	}
	sys := &recordingHandler{name: "system", result: HandlerResult{Success: true}}
	reg := registry.NewRegistry(nil)
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{wechat, sys})

	outcome := r.RunTask(context.Background(), "ss:张三:你好")
	if outcome.Status != StatusSuccess || outcome.HandlerName != "wechat" {
		t.Fatalf("expected successful wechat dispatch, got %+v", outcome)
	}
	if wechat.lastParsed == nil || wechat.lastParsed.Recipient != "张三" {
		t.Fatalf("expected parsed record forwarded to handler, got %+v", wechat.lastParsed)
	}
}

func TestRunTaskFixedFormInvalidReturnsGuidance(t *testing.T) {
	sys := &recordingHandler{name: "system"}
	reg := registry.NewRegistry(nil)
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{sys})

	outcome := r.RunTask(context.Background(), "ss::")
	if outcome.Status != StatusInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", outcome)
	}
	if outcome.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", outcome.ExitCode)
	}
}

func TestRunTaskNaturalLanguageFallsBackToSystemBelowThreshold(t *testing.T) {
	sys := &recordingHandler{name: "system", result: HandlerResult{Success: true}}
	reg := registry.NewRegistry([]registry.ModuleInfo{{Name: "system"}})
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{sys})

	outcome := r.RunTask(context.Background(), "do something unrelated entirely")
	if outcome.Status != StatusSuccess || outcome.HandlerName != "system" {
		t.Fatalf("expected fallback dispatch to system handler, got %+v", outcome)
	}
}

func TestRunTaskNaturalLanguageRoutesByKeyword(t *testing.T) {
	wechat := &recordingHandler{name: "wechat", result: HandlerResult{Success: true, WorkflowName: "send_message"}}
	sys := &recordingHandler{name: "system", result: HandlerResult{Success: true}}
	reg := registry.NewRegistry([]registry.ModuleInfo{
		{Name: "wechat", Keywords: []string{"微信", "发", "消息"}},
		{Name: "system"},
	})
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{wechat, sys})

	outcome := r.RunTask(context.Background(), "给张三发微信消息说你好")
	if outcome.Status != StatusSuccess || outcome.HandlerName != "wechat" {
		t.Fatalf("expected keyword routing to wechat, got %+v", outcome)
	}
	if wechat.lastParsed != nil {
		t.Fatalf("expected no parsed record on the natural-language path, got %+v", wechat.lastParsed)
	}
}

func TestRunTaskMissingParamsSurfaced(t *testing.T) {
	wechat := &recordingHandler{
		name:   "wechat",
		result: HandlerResult{Success: false, MissingParams: []string{"contact"}, WorkflowName: "send_message"},
	}
	reg := registry.NewRegistry([]registry.ModuleInfo{{Name: "wechat", Keywords: []string{"微信", "发", "消息"}}})
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{wechat})

	outcome := r.RunTask(context.Background(), "微信发消息")
	if outcome.Status != StatusMissingParams {
		t.Fatalf("expected missing_params status, got %+v", outcome)
	}
	if len(outcome.MissingParams) != 1 || outcome.MissingParams[0] != "contact" {
		t.Fatalf("expected missing_params to propagate, got %+v", outcome.MissingParams)
	}
}

func TestRunTaskDeviceUnavailableMapsToExitCodeTwo(t *testing.T) {
	wechat := &recordingHandler{
		name:   "wechat",
		result: HandlerResult{Success: false, Err: orcherr.New(orcherr.DeviceUnavailable, "adb not responding")},
	}
	reg := registry.NewRegistry([]registry.ModuleInfo{{Name: "wechat", Keywords: []string{"微信", "发", "消息"}}})
	r := New(testCfg(), &stubSurface{}, nil, reg, []Handler{wechat})

	outcome := r.RunTask(context.Background(), "微信发消息给张三")
	if outcome.ExitCode != 2 {
		t.Fatalf("expected exit code 2 for device_unavailable, got %d", outcome.ExitCode)
	}
}
