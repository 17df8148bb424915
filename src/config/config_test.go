package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths() ConfigPrecedence {
	return ConfigPrecedence{
		SystemConfig:      "/etc/agent007/config",
		UserConfig:        "/home/u/.config/agent007/config",
		ProjectConfig:     "/work/.agent007/config",
		LocalConfig:       "/work/.agent007/config.local",
		DotEnvFile:        "/work/.env",
		EnvironmentPrefix: "AGENT007",
	}
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func newTestLoader(t *testing.T, files map[string]string, env map[string]string) *Loader {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
	return NewLoader(testPaths()).WithFs(fsys).WithEnv(envMap(env))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "ollama", config.API.Provider)
	assert.Equal(t, "gemma:2b", config.Agent.Model)
	assert.InDelta(t, 0.7, config.Agent.Temperature, 1e-9)
	assert.Equal(t, "007", config.Chat.AssistantName)
	assert.Equal(t, "You", config.Chat.UserPrompt)
	assert.Zero(t, config.API.Timeout.Duration)
	assert.False(t, config.Storage.Record)
	assert.NoError(t, NewValidator().Validate(config))
}

func TestConfigValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "temperature zero is allowed", mutate: func(c *Config) { c.Agent.Temperature = 0 }},
		{name: "invalid temperature", mutate: func(c *Config) { c.Agent.Temperature = 3.0 }, wantField: "agent.temperature"},
		{name: "negative max tokens", mutate: func(c *Config) { c.Agent.MaxTokens = -1 }, wantField: "agent.max_tokens"},
		{name: "unknown provider", mutate: func(c *Config) { c.API.Provider = "anthropic" }, wantField: "api.provider"},
		{name: "bad base url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, wantField: "api.base_url"},
		{name: "missing model", mutate: func(c *Config) { c.Agent.Model = "" }, wantField: "agent.model"},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = Duration{-time.Second} }, wantField: "api.timeout"},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantField: "logging.level"},
		{name: "unknown render mode", mutate: func(c *Config) { c.Chat.Render = "html" }, wantField: "chat.render"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := validator.Validate(c)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.True(t, strings.HasPrefix(verr.Error(), tt.wantField+": "), verr.Error())
		})
	}
}

func TestLoadWithoutFilesUsesDefaults(t *testing.T) {
	loader := newTestLoader(t, nil, nil)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), config)
	assert.Equal(t, []LoadedSource{{Source: SourceDefault}}, loader.Sources())
}

func TestLoadLayersInOrder(t *testing.T) {
	files := map[string]string{
		"/etc/agent007/config.json": `{"agent": {"model": "llama3", "temperature": 0.2}}`,
		"/home/u/.config/agent007/config.toml": `
[agent]
model = "mistral"

[api]
timeout = "45s"
`,
		"/work/.agent007/config.json":       `{"chat": {"assistant_name": "Q"}}`,
		"/work/.agent007/config.local.json": `{"agent": {"temperature": 0}}`,
	}
	loader := newTestLoader(t, files, nil)

	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.Agent.Model)
	assert.Equal(t, 0.0, config.Agent.Temperature)
	assert.Equal(t, 45*time.Second, config.API.Timeout.Duration)
	assert.Equal(t, "Q", config.Chat.AssistantName)
	// untouched keys keep their defaults
	assert.Equal(t, "ollama", config.API.Provider)
	assert.Equal(t, "You", config.Chat.UserPrompt)

	assert.Equal(t, []LoadedSource{
		{Source: SourceDefault},
		{Source: SourceSystem, Path: "/etc/agent007/config.json"},
		{Source: SourceUser, Path: "/home/u/.config/agent007/config.toml"},
		{Source: SourceProject, Path: "/work/.agent007/config.json"},
		{Source: SourceLocal, Path: "/work/.agent007/config.local.json"},
	}, loader.Sources())
}

func TestLoadRejectsBrokenFiles(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"bad json", map[string]string{"/work/.agent007/config.json": `{"agent": `}},
		{"unknown json key", map[string]string{"/work/.agent007/config.json": `{"agnet": {}}`}},
		{"bad toml", map[string]string{"/work/.agent007/config.toml": `[agent`}},
		{"bad duration", map[string]string{"/work/.agent007/config.json": `{"api": {"timeout": "soon"}}`}},
		{"invalid value", map[string]string{"/work/.agent007/config.json": `{"agent": {"temperature": 5}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader(t, tt.files, nil).Load()
			assert.Error(t, err)
		})
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	paths := testPaths()
	paths.ExplicitConfig = "/tmp/missing.json"
	loader := NewLoader(paths).WithFs(afero.NewMemMapFs()).WithEnv(envMap(nil))

	_, err := loader.Load()
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"AGENT007_MODEL":       "phi3",
		"AGENT007_TEMPERATURE": "1.1",
		"AGENT007_TIMEOUT":     "2m",
		"AGENT007_RECORD":      "true",
		"AGENT007_PROVIDER":    "OpenAI",
		"OPENAI_API_KEY":       "sk-test",
	}
	loader := newTestLoader(t, map[string]string{
		"/work/.agent007/config.json": `{"agent": {"model": "llama3"}}`,
	}, env)

	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "phi3", config.Agent.Model)
	assert.InDelta(t, 1.1, config.Agent.Temperature, 1e-9)
	assert.Equal(t, 2*time.Minute, config.API.Timeout.Duration)
	assert.True(t, config.Storage.Record)
	assert.Equal(t, "openai", config.API.Provider)
	assert.Equal(t, "sk-test", config.API.APIKey)
	assert.Contains(t, loader.Sources(), LoadedSource{Source: SourceEnvironment, Path: "AGENT007_MODEL"})
}

func TestEnvironmentOverrideRejectsBadNumbers(t *testing.T) {
	loader := newTestLoader(t, nil, map[string]string{"AGENT007_TEMPERATURE": "warm"})
	_, err := loader.Load()

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "agent.temperature", verr.Field)
}

func TestDotEnvDoesNotShadowEnvironment(t *testing.T) {
	files := map[string]string{
		"/work/.env": "AGENT007_MODEL=from-dotenv\nAGENT007_BASE_URL=http://gpu-box:11434\n",
	}
	loader := newTestLoader(t, files, map[string]string{"AGENT007_MODEL": "from-env"})

	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Agent.Model)
	assert.Equal(t, "http://gpu-box:11434", config.API.BaseURL)
	assert.Contains(t, loader.Sources(), LoadedSource{Source: SourceDotEnv, Path: "/work/.env"})
}

func TestBaseURLFollowsProvider(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		env   map[string]string
		want  string
	}{
		{name: "defaults", want: DefaultOllamaBaseURL},
		{name: "openai from env", env: map[string]string{"AGENT007_PROVIDER": "openai"}, want: DefaultOpenAIBaseURL},
		{
			name:  "openai from file",
			files: map[string]string{"/work/.agent007/config.toml": "[api]\nprovider = \"openai\"\n"},
			want:  DefaultOpenAIBaseURL,
		},
		{
			name:  "explicit url wins",
			files: map[string]string{"/work/.agent007/config.json": `{"api": {"provider": "openai", "base_url": "http://vllm:8000/v1"}}`},
			want:  "http://vllm:8000/v1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := newTestLoader(t, tt.files, tt.env).Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, config.API.BaseURL)
		})
	}
}

func TestDefaultConfigShowsBaseURL(t *testing.T) {
	assert.Equal(t, DefaultOllamaBaseURL, DefaultConfig().API.BaseURL)

	config, err := newTestLoader(t, nil, nil).Load()
	require.NoError(t, err)
	diff, err := Diff(config)
	require.NoError(t, err)
	assert.Empty(t, diff)

	data, err := Marshal(config, ".json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"base_url": "`+DefaultOllamaBaseURL+`"`)
}

func TestOllamaHostCompatibility(t *testing.T) {
	loader := newTestLoader(t, nil, map[string]string{"OLLAMA_HOST": "10.0.0.5:11434"})
	config, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:11434", config.API.BaseURL)
}

func TestCommandLineOverridesWin(t *testing.T) {
	temp := 0.0
	record := true
	loader := newTestLoader(t, nil, map[string]string{"AGENT007_MODEL": "phi3"}).
		WithOverrides(Overrides{Model: "gemma:7b", Temperature: &temp, Record: &record})

	config, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "gemma:7b", config.Agent.Model)
	assert.Equal(t, 0.0, config.Agent.Temperature)
	assert.True(t, config.Storage.Record)
}

func TestSystemPromptFile(t *testing.T) {
	files := map[string]string{
		"/work/.agent007/config.json": `{"agent": {"system_prompt_file": "/work/prompt.txt"}}`,
		"/work/prompt.txt":            "You are a pirate.\n",
	}
	config, err := newTestLoader(t, files, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "You are a pirate.", config.Agent.SystemPrompt)
}

func TestSaveFileRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	loader := NewLoader(ConfigPrecedence{UserConfig: "/cfg/config"}).WithFs(fsys).WithEnv(envMap(nil))

	for _, ext := range []string{".json", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			c := DefaultConfig()
			c.Agent.Model = "llama3"
			c.API.Timeout = Duration{30 * time.Second}
			c.API.APIKey = "secret"

			path := "/cfg/config" + ext
			require.NoError(t, loader.SaveFile(c, path))

			data, err := afero.ReadFile(fsys, path)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "secret")
			assert.Contains(t, string(data), "30s")

			loaded, err := loader.Load()
			require.NoError(t, err)
			assert.Equal(t, "llama3", loaded.Agent.Model)
			assert.Equal(t, 30*time.Second, loaded.API.Timeout.Duration)

			require.NoError(t, fsys.Remove(path))
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`12`), &d))
	assert.Equal(t, 12*time.Second, d.Duration)

	out, err := json.Marshal(Duration{5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(out))
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"api", "agent", "chat", "storage", "logging"} {
		assert.Contains(t, props, key)
	}
	assert.Contains(t, string(data), `"ollama"`)
}

func TestDiff(t *testing.T) {
	same, err := Diff(DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, same)

	c := DefaultConfig()
	c.Agent.Model = "llama3"
	diff, err := Diff(c)
	require.NoError(t, err)
	assert.Contains(t, diff, `-    "model": "gemma:2b",`)
	assert.Contains(t, diff, `+    "model": "llama3",`)
}
