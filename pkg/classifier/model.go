package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/providers"
)

const modelClassifierSystemPrompt = `output only JSON. fields: type in [send_msg, post_moment_only_text, others, invalid], recipient, content`

type modelResponse struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

// ClassifyWithModel sends utterance to provider/model with the fixed system
// prompt from the model prompt contract. Any non-JSON or missing-type
// response is a classifier failure (err != nil); the caller degrades to
// ClassifyRegexClass per the model path's fallback rule.
func ClassifyWithModel(ctx context.Context, provider providers.LLMProvider, model string, utterance string) (ParsedTask, error) {
	resp, err := provider.Chat(ctx,
		[]providers.Message{
			{Role: "system", Content: modelClassifierSystemPrompt},
			{Role: "user", Content: utterance},
		},
		nil,
		model,
		map[string]interface{}{"max_tokens": 200, "temperature": 0.0},
	)
	if err != nil {
		return ParsedTask{}, fmt.Errorf("classifier model call failed: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out modelResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return ParsedTask{}, fmt.Errorf("classifier model returned non-JSON response: %w", err)
	}

	taskType := TaskType(strings.TrimSpace(out.Type))
	switch taskType {
	case TaskSendMsg, TaskPostMomentOnlyText, TaskOthers, TaskInvalid:
	default:
		return ParsedTask{}, fmt.Errorf("classifier model returned unrecognized type %q", out.Type)
	}

	return ParsedTask{
		Type:      taskType,
		Recipient: strings.TrimSpace(out.Recipient),
		Content:   strings.TrimSpace(out.Content),
	}, nil
}
