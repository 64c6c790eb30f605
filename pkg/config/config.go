// Package config defines the configuration surface of the debate server:
// the per-session debate config received from clients, the LLM provider
// settings, and the server settings loadable from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTemperature is used when a node does not specify one.
	DefaultTemperature = 0.8

	// DefaultRounds is used when the debate config omits a round count.
	DefaultRounds = 3

	// DefaultModel is the chat model used for all debate participants.
	DefaultModel = "gpt-4o-mini"

	// DefaultQuestion is the fallback debate topic.
	DefaultQuestion = "The impact of artificial intelligence on society: Is AI ultimately beneficial or harmful?"
)

// Direction describes which way an edge carries messages.
type Direction string

const (
	DirectionAToB          Direction = "a_to_b"
	DirectionBToA          Direction = "b_to_a"
	DirectionBidirectional Direction = "bidirectional"
)

// NodeConfig describes one debate participant.
type NodeConfig struct {
	ID           string      `json:"id" yaml:"id"`
	Label        string      `json:"label" yaml:"label"`
	SystemPrompt string      `json:"systemPrompt,omitempty" yaml:"system_prompt,omitempty"`
	Temperature  Temperature `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// EdgeConfig describes a communication channel between two nodes.
type EdgeConfig struct {
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// DebateConfig is the full per-session configuration a client submits over
// the websocket before scheduling begins.
type DebateConfig struct {
	Nodes    []NodeConfig `json:"nodes"`
	Edges    []EdgeConfig `json:"edges"`
	Rounds   *int         `json:"rounds,omitempty"`
	APIKey   string       `json:"apiKey"`
	Question string       `json:"question,omitempty"`
}

// RoundCount returns the effective round count: DefaultRounds when absent,
// floored at 1 otherwise.
func (c *DebateConfig) RoundCount() int {
	if c.Rounds == nil {
		return DefaultRounds
	}
	if *c.Rounds < 1 {
		return 1
	}
	return *c.Rounds
}

// Topic returns the debate question, falling back to DefaultQuestion when
// blank.
func (c *DebateConfig) Topic() string {
	if c.Question == "" {
		return DefaultQuestion
	}
	return c.Question
}

// SetDefaults implements the config defaulting pass for DebateConfig.
func (c *DebateConfig) SetDefaults() {
	for i := range c.Edges {
		if c.Edges[i].Direction == "" {
			c.Edges[i].Direction = DirectionBidirectional
		}
	}
}

// Validate performs the transport-level checks run before scheduling starts.
// Malformed edges and unknown ids are not errors; they degrade to no-ops in
// the topology resolver.
func (c *DebateConfig) Validate() error {
	if len(c.Nodes) < 2 {
		return fmt.Errorf("at least 2 agents are required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// LLMProviderConfig holds the settings for one chat-completions client.
type LLMProviderConfig struct {
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Host        string  `yaml:"host" json:"host"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // seconds
}

// SetDefaults implements config defaulting for LLMProviderConfig.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Host == "" {
		c.Host = "https://api.openai.com/v1"
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

// Validate implements config validation for LLMProviderConfig.
func (c *LLMProviderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// ServerConfig holds the websocket server settings.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// Model used for every debate participant and the aggregator.
	Model string `yaml:"model" json:"model"`

	// LLMHost overrides the chat-completions endpoint (proxies, local servers).
	LLMHost string `yaml:"llm_host,omitempty" json:"llm_host,omitempty"`

	// MessageDelay paces event delivery to the client.
	MessageDelay Duration `yaml:"message_delay" json:"message_delay"`
}

// SetDefaults implements config defaulting for ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MessageDelay == 0 {
		c.MessageDelay = Duration(500 * time.Millisecond)
	}
}

// Validate implements config validation for ServerConfig.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.MessageDelay < 0 {
		return fmt.Errorf("message_delay must be non-negative")
	}
	return nil
}

// LoadServerConfig reads a ServerConfig from a YAML file, applying defaults
// and validation.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
