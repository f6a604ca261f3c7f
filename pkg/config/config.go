package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers, so a
// JSON list can mix "123" and 123. App manifests are YAML and are read into
// plain []string fields, not this type.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Device     DeviceConfig     `json:"device"`
	LLM        LLMConfig        `json:"llm"`
	Classifier ClassifierConfig `json:"classifier"`
	Failover   FailoverConfig   `json:"failover"`
	Workflow   WorkflowConfig   `json:"workflow"`
	Locator    LocatorConfig    `json:"locator"`
	Screenshot ScreenshotConfig `json:"screenshot"`
	Apps       AppsConfig       `json:"apps"`
	Providers  ProvidersConfig  `json:"providers"`
	Logging    LoggingConfig    `json:"logging"`
	mu         sync.RWMutex
}

// LocatorConfig tunes the hybrid locator's per-stage acceptance thresholds
// and which strategy tiers are allowed to run (C2).
type LocatorConfig struct {
	Strategy            string  `json:"strategy" env:"LOCATOR_STRATEGY"` // opencv_only|ai_only|opencv_first
	TemplateThreshold   float64 `json:"template_threshold" env:"LOCATOR_T_TEMPLATE"`
	MultiscaleThreshold float64 `json:"multiscale_threshold" env:"LOCATOR_T_MULTISCALE"`
	MultiscaleMin       float64 `json:"multiscale_min" env:"LOCATOR_MULTISCALE_MIN"`
	MultiscaleMax       float64 `json:"multiscale_max" env:"LOCATOR_MULTISCALE_MAX"`
	MultiscaleStep      float64 `json:"multiscale_step" env:"LOCATOR_MULTISCALE_STEP"`
	FeatureMinInliers   int     `json:"feature_min_inliers" env:"LOCATOR_FEATURE_MIN_INLIERS"`
	SmallModelEnabled   bool    `json:"small_model_enabled" env:"LOCATOR_SMALL_MODEL_ENABLED"`
	RemoteModelEnabled  bool    `json:"remote_model_enabled" env:"LOCATOR_REMOTE_MODEL_ENABLED"`
	RemoteModel         string  `json:"remote_model" env:"LOCATOR_REMOTE_MODEL"`
}

// DeviceConfig selects and parameterizes the device surface (C1).
type DeviceConfig struct {
	DebugMode         bool   `json:"debug_mode" env:"DEBUG_MODE"`
	DebugDeviceName   string `json:"debug_device_name" env:"DEBUG_DEVICE_NAME"`
	DebugScreenWidth  int    `json:"debug_screen_width" env:"DEBUG_SCREEN_WIDTH"`
	DebugScreenHeight int    `json:"debug_screen_height" env:"DEBUG_SCREEN_HEIGHT"`
	DefaultDevice     string `json:"default_device" env:"DEFAULT_DEVICE"`
	CommandTimeoutMS  int    `json:"command_timeout_ms" env:"DEVICE_COMMAND_TIMEOUT_MS"`
}

// LLMConfig is the primary model triple used by the classifier's model path,
// the locator's remote-model stage, and the executor's replan calls.
type LLMConfig struct {
	Provider       string   `json:"provider" env:"LLM_PROVIDER"`
	Model          string   `json:"model" env:"LLM_MODEL"`
	MaxTokens      int      `json:"max_tokens" env:"LLM_MAX_TOKENS"`
	Temperature    float64  `json:"temperature" env:"LLM_TEMPERATURE"`
	TimeoutSecs    int      `json:"timeout_seconds" env:"LLM_TIMEOUT"`
	FallbackModel  string   `json:"fallback_model" env:"LLM_FALLBACK_MODEL"`
	FallbackModels []string `json:"fallback_models" env:"LLM_FALLBACK_MODELS"`
}

// FailoverConfig tunes the model-failover manager that backs the
// classifier's cheaper-model path and the executor's replan/verify calls.
type FailoverConfig struct {
	Enabled                      bool `json:"enabled" env:"LLM_FAILOVER_ENABLED"`
	HoldMinutes                  int  `json:"hold_minutes" env:"LLM_FAILOVER_HOLD_MINUTES"`
	ProbeIntervalMinutes         int  `json:"probe_interval_minutes" env:"LLM_FAILOVER_PROBE_INTERVAL_MINUTES"`
	ProbeSuccessThreshold        int  `json:"probe_success_threshold" env:"LLM_FAILOVER_PROBE_SUCCESS_THRESHOLD"`
	ProbeFailureBackoffMinutes   int  `json:"probe_failure_backoff_minutes" env:"LLM_FAILOVER_PROBE_FAILURE_BACKOFF_MINUTES"`
	SwitchbackRequiresApproval   bool `json:"switchback_requires_approval" env:"LLM_FAILOVER_SWITCHBACK_REQUIRES_APPROVAL"`
	SwitchbackPromptCooldownMins int  `json:"switchback_prompt_cooldown_minutes" env:"LLM_FAILOVER_SWITCHBACK_PROMPT_COOLDOWN_MINUTES"`
}

type ClassifierConfig struct {
	Mode             string `json:"mode" env:"TASK_CLASSIFIER_MODE"` // regex|llm
	SecondaryModel   string `json:"secondary_model" env:"TASK_CLASSIFIER_MODEL"`
	SecondaryAPIBase string `json:"secondary_api_base" env:"TASK_CLASSIFIER_API_BASE"`
	SecondaryAPIKey  string `json:"secondary_api_key" env:"TASK_CLASSIFIER_API_KEY"`
}

type WorkflowConfig struct {
	MaxStepRetries      int `json:"max_step_retries" env:"WORKFLOW_MAX_STEP_RETRIES"`
	MaxBackPresses      int `json:"max_back_presses" env:"WORKFLOW_MAX_BACK_PRESSES"`
	BackPressIntervalMS int `json:"back_press_interval_ms" env:"WORKFLOW_BACK_PRESS_INTERVAL"`
	HomeMaxAttempts     int `json:"home_max_attempts" env:"WORKFLOW_HOME_MAX_ATTEMPTS"`
	AIFallbackAttempts  int `json:"ai_fallback_attempts" env:"WORKFLOW_AI_FALLBACK_ATTEMPTS"`
	RecoverNavAttempts  int `json:"recover_nav_attempts" env:"WORKFLOW_RECOVER_NAV_ATTEMPTS"`
}

type ScreenshotConfig struct {
	DefaultWaitMS int            `json:"default_wait_ms" env:"SCREENSHOT_WAIT_DEFAULT"`
	PerAppWaitMS  map[string]int `json:"per_app_wait_ms"`
}

type AppsConfig struct {
	Dir string `json:"dir" env:"APPS_DIR"`
}

// ProviderConfig holds one vendor's credentials. Per-vendor env overrides are
// applied explicitly in applyProviderEnvOverrides rather than through struct
// tags, since the same field names repeat across nine vendors.
type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base"`
	Proxy   string `json:"proxy,omitempty"`
}

type ProvidersConfig struct {
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	Gemini     ProviderConfig `json:"gemini"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Zhipu      ProviderConfig `json:"zhipu"`
	Groq       ProviderConfig `json:"groq"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Moonshot   ProviderConfig `json:"moonshot"`
	VLLM       ProviderConfig `json:"vllm"`
}

type LoggingConfig struct {
	FileEnabled     bool   `json:"file_enabled" env:"LOGGING_FILE_ENABLED"`
	FilePath        string `json:"file_path" env:"LOGGING_FILE_PATH"`
	RotationEnabled bool   `json:"rotation_enabled" env:"LOGGING_ROTATION_ENABLED"`
	MaxAgeDays      int    `json:"max_age_days" env:"LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB       int    `json:"max_size_mb" env:"LOGGING_MAX_SIZE_MB"`
}

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			DebugMode:         false,
			DebugDeviceName:   "mock-device",
			DebugScreenWidth:  1080,
			DebugScreenHeight: 2340,
			DefaultDevice:     "localhost:5555",
			CommandTimeoutMS:  10000,
		},
		LLM: LLMConfig{
			Provider:    "",
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			Temperature: 0.1,
			TimeoutSecs: 60,
		},
		Classifier: ClassifierConfig{
			Mode: "llm",
		},
		Failover: FailoverConfig{
			Enabled:                      true,
			HoldMinutes:                  15,
			ProbeIntervalMinutes:         5,
			ProbeSuccessThreshold:        2,
			ProbeFailureBackoffMinutes:   10,
			SwitchbackRequiresApproval:   false,
			SwitchbackPromptCooldownMins: 30,
		},
		Workflow: WorkflowConfig{
			MaxStepRetries:      3,
			MaxBackPresses:      5,
			BackPressIntervalMS: 500,
			HomeMaxAttempts:     5,
			AIFallbackAttempts:  3,
			RecoverNavAttempts:  3,
		},
		Locator: LocatorConfig{
			Strategy:            "opencv_first",
			TemplateThreshold:   0.75,
			MultiscaleThreshold: 0.70,
			MultiscaleMin:       0.5,
			MultiscaleMax:       1.5,
			MultiscaleStep:      0.1,
			FeatureMinInliers:   8,
			SmallModelEnabled:   false,
			RemoteModelEnabled:  true,
			RemoteModel:         "",
		},
		Screenshot: ScreenshotConfig{
			DefaultWaitMS: 300,
			PerAppWaitMS:  map[string]int{},
		},
		Apps: AppsConfig{
			Dir: "~/.vision-agent/apps",
		},
		Providers: ProvidersConfig{},
		Logging: LoggingConfig{
			FileEnabled:     true,
			FilePath:        "~/.vision-agent/orchestrator.log",
			RotationEnabled: true,
			MaxAgeDays:      7,
			MaxSizeMB:       50,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if perr := env.Parse(cfg); perr != nil {
				return nil, perr
			}
			applyProviderEnvOverrides(cfg)
			resolveProviderEnvRefs(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	applyProviderEnvOverrides(cfg)
	resolveProviderEnvRefs(cfg)

	return cfg, nil
}

func allProviders(cfg *Config) []*ProviderConfig {
	return []*ProviderConfig{
		&cfg.Providers.Anthropic,
		&cfg.Providers.OpenAI,
		&cfg.Providers.Gemini,
		&cfg.Providers.OpenRouter,
		&cfg.Providers.Zhipu,
		&cfg.Providers.Groq,
		&cfg.Providers.DeepSeek,
		&cfg.Providers.Moonshot,
		&cfg.Providers.VLLM,
	}
}

func applyProviderEnvOverrides(cfg *Config) {
	bindings := map[string]*ProviderConfig{
		"ANTHROPIC":  &cfg.Providers.Anthropic,
		"OPENAI":     &cfg.Providers.OpenAI,
		"GEMINI":     &cfg.Providers.Gemini,
		"OPENROUTER": &cfg.Providers.OpenRouter,
		"ZHIPU":      &cfg.Providers.Zhipu,
		"GROQ":       &cfg.Providers.Groq,
		"DEEPSEEK":   &cfg.Providers.DeepSeek,
		"MOONSHOT":   &cfg.Providers.Moonshot,
		"VLLM":       &cfg.Providers.VLLM,
	}
	for prefix, target := range bindings {
		if v := strings.TrimSpace(os.Getenv("PROVIDERS_" + prefix + "_API_KEY")); v != "" {
			target.APIKey = v
		}
		if v := strings.TrimSpace(os.Getenv("PROVIDERS_" + prefix + "_API_BASE")); v != "" {
			target.APIBase = v
		}
		if v := strings.TrimSpace(os.Getenv("PROVIDERS_" + prefix + "_PROXY")); v != "" {
			target.Proxy = v
		}
	}
}

func resolveProviderEnvRefs(cfg *Config) {
	for _, p := range allProviders(cfg) {
		p.APIKey = resolveEnvRef(p.APIKey)
		p.APIBase = resolveEnvRef(p.APIBase)
		p.Proxy = resolveEnvRef(p.Proxy)
	}
}

func resolveEnvRef(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return v
	}
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		key := strings.TrimSpace(s[2 : len(s)-1])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return v
	}
	if strings.HasPrefix(s, "$") && len(s) > 1 {
		key := strings.TrimSpace(s[1:])
		if key == "" {
			return v
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
	}
	return v
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetAPIKey returns the first configured provider key, in a fixed
// precedence order, for use when no explicit provider is set on a model.
func (c *Config) GetAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Providers.Anthropic.APIKey != "" {
		return c.Providers.Anthropic.APIKey
	}
	if c.Providers.OpenAI.APIKey != "" {
		return c.Providers.OpenAI.APIKey
	}
	if c.Providers.Gemini.APIKey != "" {
		return c.Providers.Gemini.APIKey
	}
	if c.Providers.OpenRouter.APIKey != "" {
		return c.Providers.OpenRouter.APIKey
	}
	if c.Providers.Zhipu.APIKey != "" {
		return c.Providers.Zhipu.APIKey
	}
	return ""
}

func (c *Config) GetAPIBase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Providers.OpenRouter.APIKey != "" {
		if c.Providers.OpenRouter.APIBase != "" {
			return c.Providers.OpenRouter.APIBase
		}
		return "https://openrouter.ai/api/v1"
	}
	if c.Providers.VLLM.APIKey != "" && c.Providers.VLLM.APIBase != "" {
		return c.Providers.VLLM.APIBase
	}
	return ""
}

func (c *Config) AppsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Apps.Dir)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
