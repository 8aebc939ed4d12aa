package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects and configures a provider.
type Config struct {
	Provider string

	// Model overrides the per-provider default when set.
	Model string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig controls backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults used by the draft command.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "anthropic/claude-haiku-4.5"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 60 * time.Second,
	}
}

// WithModel copies Model into the selected provider's section.
func (c Config) WithModel() Config {
	if c.Model == "" {
		return c
	}
	switch c.Provider {
	case ProviderAnthropic:
		c.Anthropic.Model = c.Model
	case ProviderOpenAI:
		c.OpenAI.Model = c.Model
	case ProviderGemini:
		c.Gemini.Model = c.Model
	case ProviderOpenRouter:
		c.OpenRouter.Model = c.Model
	}
	return c
}

// FillKeysFromEnv sets any missing API key from the vendor's standard
// environment variable (ANTHROPIC_API_KEY and friends).
func (c Config) FillKeysFromEnv() Config {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fill(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fill(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fill(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	return c
}

// Validate checks that the selected provider has a key.
func (c Config) Validate() error {
	missing := func(flag string) error {
		return fmt.Errorf("%s provider needs an API key (--%s or PHISHSHIFT_%s)",
			c.Provider, flag, envName(flag))
	}
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing("anthropic-api-key")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing("openai-api-key")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missing("gemini-api-key")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missing("openrouter-api-key")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	return nil
}

func envName(flag string) string {
	out := []byte(flag)
	for i, b := range out {
		switch {
		case b == '-':
			out[i] = '_'
		case b >= 'a' && b <= 'z':
			out[i] = b - 'a' + 'A'
		}
	}
	return string(out)
}
