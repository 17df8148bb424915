package config

import "strings"

// Default values used across the application.
const (
	DefaultProvider      = "ollama"
	DefaultModel         = "gemma:2b"
	DefaultTemperature   = 0.7
	DefaultAssistantName = "007"
	DefaultUserPrompt    = "You"
	DefaultLogLevel      = "warn"

	DefaultOllamaBaseURL = "http://127.0.0.1:11434"
	DefaultOpenAIBaseURL = "http://127.0.0.1:11434/v1"

	RenderPlain    = "plain"
	RenderWrap     = "wrap"
	RenderMarkdown = "markdown"
)

// DefaultBaseURL returns the server address used for provider when none is
// configured. It is empty for unknown providers.
func DefaultBaseURL(provider string) string {
	switch strings.ToLower(provider) {
	case "ollama", "":
		return DefaultOllamaBaseURL
	case "openai":
		return DefaultOpenAIBaseURL
	}
	return ""
}

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			Provider:   DefaultProvider,
			BaseURL:    DefaultBaseURL(DefaultProvider),
			RetryCount: 1,
		},
		Agent: AgentConfig{
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
		},
		Chat: ChatConfig{
			AssistantName: DefaultAssistantName,
			UserPrompt:    DefaultUserPrompt,
			Render:        RenderPlain,
			HistoryFile:   DefaultHistoryFile(),
		},
		Storage: StorageConfig{
			DatabasePath: DefaultDatabasePath(),
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			File:  DefaultLogFile(),
		},
	}
}
