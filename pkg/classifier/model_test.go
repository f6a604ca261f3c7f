package classifier

import (
	"context"
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/providers"
)

type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec, model string, opts map[string]interface{}) (*providers.ChatResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &providers.ChatResponse{Content: s.content}, nil
}

func TestClassifyWithModelParsesJSON(t *testing.T) {
	p := &stubProvider{content: `{"type":"send_msg","recipient":"张三","content":"你好"}`}
	parsed, err := ClassifyWithModel(context.Background(), p, "gpt-5-mini", "给张三发消息说你好")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Type != TaskSendMsg || parsed.Recipient != "张三" {
		t.Fatalf("unexpected parsed: %+v", parsed)
	}
}

func TestClassifyWithModelStripsCodeFence(t *testing.T) {
	p := &stubProvider{content: "```json\n{\"type\":\"invalid\",\"recipient\":\"\",\"content\":\"\"}\n```"}
	parsed, err := ClassifyWithModel(context.Background(), p, "gpt-5-mini", "aaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Type != TaskInvalid {
		t.Fatalf("expected invalid, got %+v", parsed)
	}
}

func TestClassifyWithModelRejectsNonJSON(t *testing.T) {
	p := &stubProvider{content: "sure, I can help with that!"}
	_, err := ClassifyWithModel(context.Background(), p, "gpt-5-mini", "hi")
	if err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
}

func TestClassifyWithModelRejectsUnrecognizedType(t *testing.T) {
	p := &stubProvider{content: `{"type":"search_contact","recipient":"","content":""}`}
	_, err := ClassifyWithModel(context.Background(), p, "gpt-5-mini", "find bob")
	if err == nil {
		t.Fatalf("expected error for unrecognized type")
	}
}
