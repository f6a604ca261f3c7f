package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RateLimitError carries the rate-limit hints a 429 response exposes, so the
// failover manager can schedule a probe instead of guessing a backoff.
type RateLimitError struct {
	StatusCode             int
	RetryAfter             string
	RateLimitRequestsReset string
	RateLimitTokensReset   string
	Headers                map[string]string
	Body                   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (status=%d retry_after=%s): %s", e.StatusCode, e.RetryAfter, e.Body)
}

// HTTPProvider talks to any OpenAI-compatible chat-completions endpoint:
// OpenAI itself, OpenRouter, Groq, DeepSeek, Moonshot, Zhipu/GLM and a
// locally hosted VLLM server all expose this wire shape.
type HTTPProvider struct {
	apiKey  string
	baseURL string
	proxy   string
	client  *http.Client
}

func NewHTTPProvider(apiKey, baseURL, proxy string) *HTTPProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		proxy:   proxy,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type openAIChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

type openAIChatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type openAIChatResponse struct {
	Choices []openAIChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *HTTPProvider) Chat(ctx context.Context, messages []Message, tools []ToolSpec, model string, opts map[string]interface{}) (*ChatResponse, error) {
	req := openAIChatRequest{Model: model}
	if v, ok := opts["max_tokens"].(int); ok {
		req.MaxTokens = v
	}
	if v, ok := opts["temperature"].(float64); ok {
		req.Temperature = v
	}

	for _, m := range messages {
		if len(m.Images) == 0 {
			req.Messages = append(req.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := []openAIContentPart{{Type: "text", Text: m.Content}}
		for _, img := range m.Images {
			dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, img.Base64)
			parts = append(parts, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL}})
		}
		req.Messages = append(req.Messages, openAIChatMessage{Role: m.Role, Content: parts})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		headers := map[string]string{}
		for k := range resp.Header {
			headers[k] = resp.Header.Get(k)
		}
		return nil, &RateLimitError{
			StatusCode:             resp.StatusCode,
			RetryAfter:             resp.Header.Get("Retry-After"),
			RateLimitRequestsReset: resp.Header.Get("X-RateLimit-Requests-Reset"),
			RateLimitTokensReset:   resp.Header.Get("X-RateLimit-Tokens-Reset"),
			Headers:                headers,
			Body:                   string(respBody),
		}
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat response had no choices")
	}

	return &ChatResponse{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage: &Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
