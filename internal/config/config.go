// Package config resolves runtime settings from flags, PHISHSHIFT_*
// environment variables and an optional phishshift.yaml, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhisek/phishshift/internal/llm"
	"github.com/abhisek/phishshift/internal/selector"
	"github.com/abhisek/phishshift/internal/shift"
	"github.com/abhisek/phishshift/internal/store"
)

const (
	KeyDB                 = "db"
	KeyLogMode            = "log-mode"
	KeyLogSalt            = "log-salt"
	KeyShiftSize          = "shift-size"
	KeyVerificationBudget = "verification-budget"
	KeyRedisAddr          = "redis-addr"
	KeyLLMProvider        = "llm-provider"
	KeyLLMModel           = "llm-model"
	KeyLLMTimeout         = "llm-timeout"
	KeyAnthropicAPIKey    = "anthropic-api-key"
	KeyOpenAIAPIKey       = "openai-api-key"
	KeyOpenAIBaseURL      = "openai-base-url"
	KeyGeminiAPIKey       = "gemini-api-key"
	KeyOpenRouterAPIKey   = "openrouter-api-key"
)

// Config is the resolved runtime configuration.
type Config struct {
	DB                 string
	LogMode            string
	LogSalt            string
	ShiftSize          int
	VerificationBudget int
	RedisAddr          string
	LLM                llm.Config

	// File is the config file that was read, if any.
	File string
}

// RegisterFlags declares the persistent flags every command shares.
func RegisterFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(KeyDB, "", "SQLite database path (default $XDG_DATA_HOME/phishshift/phishshift.db)")
	f.String(KeyLogMode, "dev", "log format: dev or prod")
	f.String(KeyLogSalt, "", "salt mixed into hashed learner ids in logs")
	f.Int(KeyShiftSize, selector.DefaultSize, "scenarios per shift")
	f.Int(KeyVerificationBudget, shift.DefaultVerificationBudget, "verify actions allowed per shift (negative disables verify)")
	f.String(KeyRedisAddr, "", "redis address for cross-process session locks (empty uses in-process locks)")

	def := llm.DefaultConfig()
	f.String(KeyLLMProvider, def.Provider, "LLM provider: anthropic, openai, gemini, openrouter or mock")
	f.String(KeyLLMModel, "", "model override for the selected provider")
	f.Duration(KeyLLMTimeout, def.Timeout, "timeout for one drafting request")
	f.String(KeyAnthropicAPIKey, "", "Anthropic API key")
	f.String(KeyOpenAIAPIKey, "", "OpenAI API key")
	f.String(KeyOpenAIBaseURL, "", "OpenAI-compatible base URL")
	f.String(KeyGeminiAPIKey, "", "Gemini API key")
	f.String(KeyOpenRouterAPIKey, "", "OpenRouter API key")
}

// Viper binds cmd's flags and the environment to a fresh viper instance
// and reads phishshift.yaml from the usual places when present.
func Viper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix("PHISHSHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("phishshift")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/phishshift")
	v.AddConfigPath("/etc/phishshift")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// FromViper extracts a Config. The database path falls back to
// store.DefaultDBPath.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		DB:                 v.GetString(KeyDB),
		LogMode:            v.GetString(KeyLogMode),
		LogSalt:            v.GetString(KeyLogSalt),
		ShiftSize:          v.GetInt(KeyShiftSize),
		VerificationBudget: v.GetInt(KeyVerificationBudget),
		RedisAddr:          v.GetString(KeyRedisAddr),
		File:               v.ConfigFileUsed(),
	}
	if cfg.ShiftSize <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", KeyShiftSize, cfg.ShiftSize)
	}

	var err error
	if cfg.DB == "" {
		cfg.DB, err = store.DefaultDBPath()
	} else {
		err = store.EnsureDir(cfg.DB)
	}
	if err != nil {
		return Config{}, fmt.Errorf("resolve db path: %w", err)
	}

	l := llm.DefaultConfig()
	if p := v.GetString(KeyLLMProvider); p != "" {
		l.Provider = p
	}
	l.Model = v.GetString(KeyLLMModel)
	if d := v.GetDuration(KeyLLMTimeout); d > 0 {
		l.Timeout = d
	}
	l.Anthropic.APIKey = v.GetString(KeyAnthropicAPIKey)
	l.OpenAI.APIKey = v.GetString(KeyOpenAIAPIKey)
	l.OpenAI.BaseURL = v.GetString(KeyOpenAIBaseURL)
	l.Gemini.APIKey = v.GetString(KeyGeminiAPIKey)
	l.OpenRouter.APIKey = v.GetString(KeyOpenRouterAPIKey)
	cfg.LLM = l.FillKeysFromEnv()

	return cfg, nil
}

// Load is Viper followed by FromViper.
func Load(cmd *cobra.Command) (Config, error) {
	v, err := Viper(cmd)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

