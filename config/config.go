// Package config loads and validates runtime settings from YAML with
// environment based API key resolution.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SystemSettings tune the actor substrate.
type SystemSettings struct {
	// MailboxCapacity bounds each actor's mailbox.
	MailboxCapacity int `yaml:"mailbox_capacity"`

	// HeartbeatInterval is the health monitor's probe interval.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// RequestTimeout bounds request/reply conversations.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LLMSettings select and tune the language model provider.
type LLMSettings struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string `yaml:"provider"`

	// Model is the provider specific model identifier.
	Model string `yaml:"model"`

	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// APIKeyEnv names the environment variable holding the API key.
	// Empty means the provider SDK's default variable.
	APIKeyEnv string `yaml:"api_key_env"`

	// RequestsPerSecond enables rate limiting when positive.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// AgentSettings bound the reasoning and orchestration loops.
type AgentSettings struct {
	MaxIterations         int `yaml:"max_iterations"`
	MaxOrchestrationSteps int `yaml:"max_orchestration_steps"`
}

// ToolSettings tune tool execution.
type ToolSettings struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Settings is the complete runtime configuration.
type Settings struct {
	System SystemSettings `yaml:"system"`
	LLM    LLMSettings    `yaml:"llm"`
	Agent  AgentSettings  `yaml:"agent"`
	Tools  ToolSettings   `yaml:"tools"`
}

// Default returns the baseline settings.
func Default() Settings {
	return Settings{
		System: SystemSettings{
			MailboxCapacity:   64,
			HeartbeatInterval: 5 * time.Second,
			RequestTimeout:    5 * time.Minute,
		},
		LLM: LLMSettings{
			Provider:    "openai",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Agent: AgentSettings{
			MaxIterations:         10,
			MaxOrchestrationSteps: 8,
		},
		Tools: ToolSettings{
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
	}
}

// Load reads settings from a YAML file, layered over the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// APIKey resolves the configured API key from the environment. Empty when
// no variable is configured or set.
func (l LLMSettings) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// Validate rejects settings that would misbehave at runtime.
func (s Settings) Validate() error {
	if s.System.MailboxCapacity <= 0 {
		return fmt.Errorf("config: mailbox_capacity must be positive")
	}
	if s.System.HeartbeatInterval <= 0 {
		return fmt.Errorf("config: heartbeat_interval must be positive")
	}
	if s.System.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive")
	}
	switch s.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("config: unknown llm provider %q", s.LLM.Provider)
	}
	if s.Agent.MaxIterations <= 0 {
		return fmt.Errorf("config: max_iterations must be positive")
	}
	if s.Agent.MaxOrchestrationSteps <= 0 {
		return fmt.Errorf("config: max_orchestration_steps must be positive")
	}
	if s.Tools.Timeout <= 0 {
		return fmt.Errorf("config: tool timeout must be positive")
	}
	if s.Tools.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must not be negative")
	}
	return nil
}
