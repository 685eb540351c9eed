package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/credential"
)

// CredentialsConfig identifies the mailbox account and API key. The
// password and API key fields are fallbacks only; environment variables
// and the system keyring take precedence (see ResolveSecrets).
type CredentialsConfig struct {
	GmailEmail       string `mapstructure:"gmail_email" yaml:"gmail_email"`
	GmailAppPassword string `mapstructure:"gmail_app_password" yaml:"gmail_app_password"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
}

// AgentSettingsConfig holds oracle and batch settings.
type AgentSettingsConfig struct {
	ModelName        string  `mapstructure:"model_name" yaml:"model_name"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens  int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	SystemPromptPath string  `mapstructure:"system_prompt_path" yaml:"system_prompt_path"`
	FetchLimit       int     `mapstructure:"fetch_limit" yaml:"fetch_limit"`
}

// RateLimitConfig controls the trailing-hour send limiter.
type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled" yaml:"enabled"`
	MaxEmailsPerHour int  `mapstructure:"max_emails_per_hour" yaml:"max_emails_per_hour"`
}

// SafetyConfig holds the confidence thresholds and guard rails applied
// to reply actions. The expected invariant MinConfidenceForAutoAction >=
// MinConfidenceForDraft is a caller responsibility: a violation makes
// the draft band unreachable and is warned about at load, not rejected.
type SafetyConfig struct {
	MinConfidenceForAutoAction float64         `mapstructure:"min_confidence_for_auto_action" yaml:"min_confidence_for_auto_action"`
	MinConfidenceForDraft      float64         `mapstructure:"min_confidence_for_draft" yaml:"min_confidence_for_draft"`
	RateLimit                  RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	AllowedDomainsForReply     []string        `mapstructure:"allowed_domains_for_reply" yaml:"allowed_domains_for_reply"`
	HumanInTheLoopLabel        string          `mapstructure:"human_in_the_loop_label" yaml:"human_in_the_loop_label"`
}

// RuleCondition is the closed set of classification fields a rule may
// match on. A nil field is a wildcard.
type RuleCondition struct {
	Intent   *string `mapstructure:"intent" yaml:"intent,omitempty"`
	Priority *string `mapstructure:"priority" yaml:"priority,omitempty"`
}

// Rule maps a condition to an ordered action list. Name is used for
// logging and tracing only.
type Rule struct {
	Name      string        `mapstructure:"name" yaml:"name"`
	Condition RuleCondition `mapstructure:"condition" yaml:"condition"`
	Actions   []Action      `mapstructure:"actions" yaml:"actions"`
}

// AppConfig is the top-level application configuration. It is loaded
// once at startup and read-only afterwards.
type AppConfig struct {
	Credentials   CredentialsConfig   `mapstructure:"credentials" yaml:"credentials"`
	AgentSettings AgentSettingsConfig `mapstructure:"agent_settings" yaml:"agent_settings"`
	Safety        SafetyConfig        `mapstructure:"safety" yaml:"safety"`
	Rules         []Rule              `mapstructure:"rules" yaml:"rules"`
	StatePath     string              `mapstructure:"state_path" yaml:"state_path"`
}

// Secrets holds the resolved credential material for a run.
type Secrets struct {
	Email        string
	AppPassword  string
	GeminiAPIKey string
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/email-agent/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "email-agent", "config.yaml")
}

// DefaultStatePath returns the default location of the agent state
// database, next to the config file.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "agent.db")
	}
	return filepath.Join(home, ".config", "email-agent", "agent.db")
}

// LoadConfig reads configuration from the given YAML file path using
// Viper, applying defaults for missing keys.
func LoadConfig(path string, logger *zap.Logger) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("agent_settings.model_name", "gemini-2.5-flash")
	v.SetDefault("agent_settings.temperature", 0.2)
	v.SetDefault("agent_settings.max_output_tokens", 1024)
	v.SetDefault("agent_settings.system_prompt_path", "prompts/system_instruction.txt")
	v.SetDefault("agent_settings.fetch_limit", 10)
	v.SetDefault("safety.min_confidence_for_auto_action", 0.85)
	v.SetDefault("safety.min_confidence_for_draft", 0.60)
	v.SetDefault("safety.rate_limit.enabled", true)
	v.SetDefault("safety.rate_limit.max_emails_per_hour", 50)
	v.SetDefault("safety.allowed_domains_for_reply", []string{"*"})
	v.SetDefault("safety.human_in_the_loop_label", "AI_REVIEW_NEEDED")
	v.SetDefault("state_path", DefaultStatePath())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validateRules(cfg.Rules); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if cfg.Safety.MinConfidenceForDraft > cfg.Safety.MinConfidenceForAutoAction {
		logger.Warn("draft threshold exceeds auto-action threshold; draft mode is unreachable",
			zap.Float64("min_confidence_for_draft", cfg.Safety.MinConfidenceForDraft),
			zap.Float64("min_confidence_for_auto_action", cfg.Safety.MinConfidenceForAutoAction),
		)
	}

	return cfg, nil
}

// validateRules rejects action types outside the closed variant set so
// a typo in the rules file fails at startup, not mid-batch.
func validateRules(rules []Rule) error {
	for _, r := range rules {
		for _, a := range r.Actions {
			switch a.Type {
			case ActionReply, ActionDraftReply, ActionLabel, ActionArchive:
			default:
				return fmt.Errorf("rule %q: unknown action type %q", r.Name, a.Type)
			}
			if a.Type == ActionLabel && a.Value == "" {
				return fmt.Errorf("rule %q: label action requires a value", r.Name)
			}
		}
	}
	return nil
}

// Environment variable and keyring key names for secrets.
const (
	envAppPassword = "GMAIL_APP_PASSWORD"
	envGeminiKey   = "GEMINI_API_KEY"

	keyringAppPassword = "gmail-app-password"
	keyringGeminiKey   = "gemini-api-key"
)

// ResolveSecrets resolves credential material with precedence
// environment > system keyring > config file. Keyring lookup failures
// are non-fatal; an empty result for either secret is.
func (c *AppConfig) ResolveSecrets() (Secrets, error) {
	s := Secrets{
		Email:        c.Credentials.GmailEmail,
		AppPassword:  resolveSecret(envAppPassword, keyringAppPassword, c.Credentials.GmailAppPassword),
		GeminiAPIKey: resolveSecret(envGeminiKey, keyringGeminiKey, c.Credentials.GeminiAPIKey),
	}

	if s.Email == "" {
		return s, fmt.Errorf("credentials.gmail_email is required")
	}
	if s.AppPassword == "" {
		return s, fmt.Errorf("missing Gmail app password: set %s or store %q in the keyring", envAppPassword, keyringAppPassword)
	}
	if s.GeminiAPIKey == "" {
		return s, fmt.Errorf("missing Gemini API key: set %s or store %q in the keyring", envGeminiKey, keyringGeminiKey)
	}

	return s, nil
}

func resolveSecret(envKey, ringKey, fileValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if v, err := credential.Get(ringKey); err == nil && v != "" {
		return v
	}
	return fileValue
}
