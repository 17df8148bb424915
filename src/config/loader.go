package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// configExtensions are tried in order for every layer.
var configExtensions = []string{".json", ".toml"}

// Overrides carries command line flags. Zero values leave the loaded
// configuration untouched.
type Overrides struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	LogLevel    string
	Render      string
	Stream      *bool
	Record      *bool
}

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	fs         afero.Fs
	getenv     func(string) string
	overrides  Overrides

	dotenv  map[string]string
	sources []LoadedSource
}

// NewLoader creates a new configuration loader reading the real filesystem
// and process environment.
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
		fs:         afero.NewOsFs(),
		getenv:     os.Getenv,
	}
}

// WithFs replaces the filesystem configuration files are read from.
func (l *Loader) WithFs(fsys afero.Fs) *Loader {
	l.fs = fsys
	return l
}

// WithEnv replaces the environment lookup.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// WithOverrides sets the command line overrides applied last.
func (l *Loader) WithOverrides(o Overrides) *Loader {
	l.overrides = o
	return l
}

// Sources lists the files and variables that contributed to the last Load.
func (l *Loader) Sources() []LoadedSource {
	return append([]LoadedSource(nil), l.sources...)
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	l.sources = []LoadedSource{{Source: SourceDefault}}
	config := DefaultConfig()
	// filled in per provider once every layer has been applied
	config.API.BaseURL = ""

	layers := []struct {
		base   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, layer := range layers {
		if layer.base == "" {
			continue
		}
		for _, ext := range configExtensions {
			path := layer.base + ext
			err := l.loadFile(path, config)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load %s config from %s: %w", layer.source, path, err)
			}
			l.sources = append(l.sources, LoadedSource{Source: layer.source, Path: path})
		}
	}

	if path := l.precedence.ExplicitConfig; path != "" {
		if err := l.loadFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		l.sources = append(l.sources, LoadedSource{Source: SourceExplicit, Path: path})
	}

	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	l.applyOverrides(config)

	if err := l.resolveSystemPrompt(config); err != nil {
		return nil, err
	}

	config.API.Provider = strings.ToLower(config.API.Provider)
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	config.Chat.Render = strings.ToLower(config.Chat.Render)
	if config.API.BaseURL == "" {
		config.API.BaseURL = DefaultBaseURL(config.API.Provider)
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFile decodes a single file onto config. Keys missing from the file
// keep their current values. The format follows the file extension.
func (l *Loader) loadFile(path string, config *Config) error {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return nil
}

// loadDotEnv reads the dotenv file, if any. Its values never shadow
// variables already present in the environment.
func (l *Loader) loadDotEnv() error {
	l.dotenv = nil
	path := l.precedence.DotEnvFile
	if path == "" {
		return nil
	}
	f, err := l.fs.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.dotenv = values
	l.sources = append(l.sources, LoadedSource{Source: SourceDotEnv, Path: path})
	return nil
}

func (l *Loader) lookupEnv(key string) string {
	if v := l.getenv(key); v != "" {
		return v
	}
	return l.dotenv[key]
}

// env reads prefix_name and records it as a source when set.
func (l *Loader) env(name string) string {
	key := l.precedence.EnvironmentPrefix + "_" + name
	v := l.lookupEnv(key)
	if v != "" {
		l.sources = append(l.sources, LoadedSource{Source: SourceEnvironment, Path: key})
	}
	return v
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	if provider := l.env("PROVIDER"); provider != "" {
		config.API.Provider = provider
	}
	if baseURL := l.env("BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if apiKey := l.env("API_KEY"); apiKey != "" {
		config.API.APIKey = apiKey
	}
	if model := l.env("MODEL"); model != "" {
		config.Agent.Model = model
	}
	if prompt := l.env("SYSTEM_PROMPT"); prompt != "" {
		config.Agent.SystemPrompt = prompt
	}
	if level := l.env("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := l.env("TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ValidationError{Field: "agent.temperature", Message: fmt.Sprintf("invalid temperature %q", v), Value: v}
		}
		config.Agent.Temperature = temp
	}
	if v := l.env("MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ValidationError{Field: "agent.max_tokens", Message: fmt.Sprintf("invalid max tokens %q", v), Value: v}
		}
		config.Agent.MaxTokens = n
	}
	if v := l.env("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ValidationError{Field: "api.timeout", Message: fmt.Sprintf("invalid timeout %q", v), Value: v}
		}
		config.API.Timeout = Duration{d}
	}
	if v := l.env("RECORD"); v != "" {
		record, err := strconv.ParseBool(v)
		if err != nil {
			return ValidationError{Field: "storage.record", Message: fmt.Sprintf("invalid boolean %q", v), Value: v}
		}
		config.Storage.Record = record
	}

	// keys and hosts understood by the backends themselves
	if config.API.APIKey == "" && config.API.APIKeyEnvVar != "" {
		config.API.APIKey = l.lookupEnv(config.API.APIKeyEnvVar)
	}
	if config.API.APIKey == "" && strings.EqualFold(config.API.Provider, "openai") {
		config.API.APIKey = l.lookupEnv("OPENAI_API_KEY")
	}
	if config.API.BaseURL == "" && strings.EqualFold(config.API.Provider, DefaultProvider) {
		if host := l.lookupEnv("OLLAMA_HOST"); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			config.API.BaseURL = host
		}
	}
	return nil
}

func (l *Loader) applyOverrides(config *Config) {
	o := l.overrides
	if o.Provider != "" {
		config.API.Provider = o.Provider
	}
	if o.BaseURL != "" {
		config.API.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		config.API.APIKey = o.APIKey
	}
	if o.Model != "" {
		config.Agent.Model = o.Model
	}
	if o.Temperature != nil {
		config.Agent.Temperature = *o.Temperature
	}
	if o.LogLevel != "" {
		config.Logging.Level = o.LogLevel
	}
	if o.Render != "" {
		config.Chat.Render = o.Render
	}
	if o.Stream != nil {
		config.Chat.Stream = *o.Stream
	}
	if o.Record != nil {
		config.Storage.Record = *o.Record
	}
}

func (l *Loader) resolveSystemPrompt(config *Config) error {
	path := config.Agent.SystemPromptFile
	if path == "" {
		return nil
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read system prompt file: %w", err)
	}
	config.Agent.SystemPrompt = strings.TrimSpace(string(data))
	return nil
}

// SaveFile saves configuration to a file. The format follows the extension.
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := Marshal(config, filepath.Ext(path))
	if err != nil {
		return err
	}

	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Marshal renders config as JSON or, for ".toml", TOML. The API key is
// never written out.
func Marshal(config *Config, ext string) ([]byte, error) {
	redacted := *config
	if redacted.API.APIKey != "" {
		redacted.API.APIKey = ""
	}

	if strings.EqualFold(ext, ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(redacted); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return buf.Bytes(), nil
	}

	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append(data, '\n'), nil
}
