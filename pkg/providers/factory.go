package providers

import (
	"fmt"

	"github.com/ccdanpian/vision-agent/pkg/config"
)

// CreateProviderForModel resolves a model identifier to a concrete
// LLMProvider using the configured credentials for the inferred vendor.
// Used by the classifier's model path, the executor's replan/verify calls,
// and the locator's remote-model stage, all of which only ever hold a model
// string, not a provider handle.
func CreateProviderForModel(cfg *config.Config, model string) (LLMProvider, error) {
	vendor := InferProviderFromModel(model)

	switch vendor {
	case "anthropic":
		if cfg.Providers.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for anthropic")
		}
		return NewAnthropicProvider(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.APIBase), nil
	case "gemini":
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for gemini")
		}
		return NewGeminiProvider(cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.APIBase), nil
	case "openai":
		return NewHTTPProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Providers.OpenAI.Proxy), nil
	case "openrouter":
		base := cfg.Providers.OpenRouter.APIBase
		if base == "" {
			base = "https://openrouter.ai/api/v1"
		}
		return NewHTTPProvider(cfg.Providers.OpenRouter.APIKey, base, cfg.Providers.OpenRouter.Proxy), nil
	case "zhipu":
		base := cfg.Providers.Zhipu.APIBase
		if base == "" {
			base = "https://open.bigmodel.cn/api/paas/v4"
		}
		return NewHTTPProvider(cfg.Providers.Zhipu.APIKey, base, cfg.Providers.Zhipu.Proxy), nil
	case "groq":
		base := cfg.Providers.Groq.APIBase
		if base == "" {
			base = "https://api.groq.com/openai/v1"
		}
		return NewHTTPProvider(cfg.Providers.Groq.APIKey, base, cfg.Providers.Groq.Proxy), nil
	case "deepseek":
		base := cfg.Providers.DeepSeek.APIBase
		if base == "" {
			base = "https://api.deepseek.com/v1"
		}
		return NewHTTPProvider(cfg.Providers.DeepSeek.APIKey, base, cfg.Providers.DeepSeek.Proxy), nil
	case "moonshot":
		base := cfg.Providers.Moonshot.APIBase
		if base == "" {
			base = "https://api.moonshot.cn/v1"
		}
		return NewHTTPProvider(cfg.Providers.Moonshot.APIKey, base, cfg.Providers.Moonshot.Proxy), nil
	case "vllm":
		return NewHTTPProvider(cfg.Providers.VLLM.APIKey, cfg.Providers.VLLM.APIBase, cfg.Providers.VLLM.Proxy), nil
	default:
		key := cfg.GetAPIKey()
		if key == "" {
			return nil, fmt.Errorf("no provider could be inferred for model %q and no default API key is configured", model)
		}
		return NewHTTPProvider(key, cfg.GetAPIBase(), ""), nil
	}
}
