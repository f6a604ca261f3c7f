package providers

import "context"

// Message is one turn in a chat-style request. Images let the vision-model
// stages of the locator (C2 stage 5) and the classifier/replanner attach a
// screenshot alongside text.
type Message struct {
	Role    string      `json:"role"`
	Content string      `json:"content"`
	Images  []ImageData `json:"images,omitempty"`
}

// ImageData is an inline image, base64-encoded, attached to a Message.
type ImageData struct {
	MIMEType string `json:"mime_type"`
	Base64   string `json:"base64"`
}

// ToolSpec describes a callable tool a provider may invoke. The orchestrator
// itself never exposes an open-ended tool loop to a model (unlike the agent
// this package was adapted from). None of the providers in this package
// forward ToolSpecs; the remote-locator and replanner prompts ask for JSON
// in the reply text instead.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a model-requested invocation of one of the ToolSpecs offered
// in a Chat call.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// LLMProvider is the narrow interface every model backend implements. It is
// the one seam classifier, locator and executor code depend on; nothing
// downstream knows which vendor or wire format is behind it.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec, model string, opts map[string]interface{}) (*ChatResponse, error)
}
