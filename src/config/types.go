package config

import (
	"encoding/json"
	"fmt"
	"time"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Config represents the complete configuration for agent007
type Config struct {
	// Version of the configuration format
	Version string `json:"version" toml:"version"`

	// API selects and addresses the chat backend
	API APIConfig `json:"api" toml:"api"`

	// Agent controls how replies are generated
	Agent AgentConfig `json:"agent" toml:"agent"`

	// Chat controls the interactive loop
	Chat ChatConfig `json:"chat" toml:"chat"`

	// Storage controls the optional transcript archive
	Storage StorageConfig `json:"storage" toml:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" toml:"logging"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// Provider is the backend protocol: "ollama" or "openai"
	Provider string `json:"provider" toml:"provider" validate:"provider" enum:"ollama,openai" description:"Backend protocol"`

	// BaseURL overrides the default endpoint of the provider
	BaseURL string `json:"base_url,omitempty" toml:"base_url" validate:"omitempty,url" description:"Backend base URL"`

	// APIKey is sent as a bearer token by the openai provider
	APIKey string `json:"api_key,omitempty" toml:"api_key"`

	// APIKeyEnvVar names an environment variable to read the API key from
	APIKeyEnvVar string `json:"api_key_env_var,omitempty" toml:"api_key_env_var"`

	// Timeout bounds each backend request. Zero means no limit.
	Timeout Duration `json:"timeout,omitempty" toml:"timeout" validate:"min=0"`

	// RetryCount is the number of attempts per request for the openai provider
	RetryCount int `json:"retry_count,omitempty" toml:"retry_count" validate:"min=0,max=10" minimum:"0" maximum:"10"`
}

// AgentConfig holds response generation settings
type AgentConfig struct {
	// Model is the backend model identifier
	Model string `json:"model" toml:"model" validate:"required" description:"Model identifier"`

	// Temperature is the sampling temperature
	Temperature float64 `json:"temperature" toml:"temperature" validate:"min=0,max=2" minimum:"0" maximum:"2"`

	// MaxTokens caps the reply length. Zero leaves it to the backend.
	MaxTokens int `json:"max_tokens,omitempty" toml:"max_tokens" validate:"min=0"`

	// SystemPrompt replaces the built-in system prompt
	SystemPrompt string `json:"system_prompt,omitempty" toml:"system_prompt"`

	// SystemPromptFile is read into SystemPrompt when set
	SystemPromptFile string `json:"system_prompt_file,omitempty" toml:"system_prompt_file"`
}

// ChatConfig holds interactive loop settings
type ChatConfig struct {
	// AssistantName prefixes every reply
	AssistantName string `json:"assistant_name" toml:"assistant_name" validate:"required"`

	// UserPrompt is shown when waiting for input
	UserPrompt string `json:"user_prompt" toml:"user_prompt" validate:"required"`

	// Render selects reply rendering: plain, wrap or markdown
	Render string `json:"render" toml:"render" validate:"render_mode" enum:"plain,wrap,markdown"`

	// Stream prints replies as they are generated
	Stream bool `json:"stream" toml:"stream"`

	// HistoryFile keeps line-editor input history between sessions
	HistoryFile string `json:"history_file,omitempty" toml:"history_file"`
}

// StorageConfig holds transcript archive settings
type StorageConfig struct {
	// Record archives every successful turn
	Record bool `json:"record" toml:"record"`

	// DatabasePath is the sqlite database file
	DatabasePath string `json:"database_path,omitempty" toml:"database_path"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" toml:"level" validate:"log_level"`

	// File receives logs during interactive chat
	File string `json:"file,omitempty" toml:"file"`
}

// ConfigPrecedence defines the order of configuration loading. Layer paths
// are given without extension; both .json and .toml are tried.
type ConfigPrecedence struct {
	SystemConfig  string
	UserConfig    string
	ProjectConfig string
	LocalConfig   string

	// ExplicitConfig is a full path passed on the command line. It must exist.
	ExplicitConfig string

	// DotEnvFile is read for environment overrides not set in the process
	DotEnvFile string

	// EnvironmentPrefix for environment variable overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceExplicit    ConfigSource = "explicit"
	SourceDotEnv      ConfigSource = "dotenv"
	SourceEnvironment ConfigSource = "environment"
)

// LoadedSource records a file that contributed to the effective config.
type LoadedSource struct {
	Source ConfigSource `json:"source"`
	Path   string       `json:"path"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
// Plain numbers are accepted as seconds.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return d.UnmarshalText([]byte(s))
}

// JSONSchema describes Duration as a string in the generated schema.
func (Duration) JSONSchema() (jsonschema.Schema, error) {
	s := jsonschema.Schema{}
	s.AddType(jsonschema.String)
	s.WithDescription("Go duration such as 30s or 2m; 0 disables the limit")
	return s, nil
}
