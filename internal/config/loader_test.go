package config

import (
	"errors"
	"os"
	"testing"

	"github.com/Cyclone1070/reactor/internal/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jsonPath = "/home/user/.config/reactor/config.json"
	yamlPath = "/home/user/.config/reactor/config.yaml"
)

func newFS(files map[string]string) *mocks.MockFileSystem {
	fs := mocks.NewMockFileSystem()
	for path, content := range files {
		fs.CreateFile(path, []byte(content))
	}
	return fs
}

// --- HAPPY PATH TESTS ---

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	fs := newFS(nil)
	loader := NewLoaderWithFS(fs, nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	// Every candidate file is tried.
	assert.Len(t, fs.Reads, len(ConfigFiles))
}

func TestLoad_JSONOverride_MergesWithDefaults(t *testing.T) {
	configJSON := `{
		"provider": {"name": "anthropic", "model": "claude-sonnet-4-5"},
		"executor": {"max_steps": 12}
	}`
	loader := NewLoaderWithFS(newFS(map[string]string{jsonPath: configJSON}), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Provider.Model)
	assert.Equal(t, 12, cfg.Executor.MaxSteps)
	assert.True(t, cfg.Executor.CheckLastStep)
	assert.Equal(t, 1000, cfg.Conversation.MaxHistoryLength)
	assert.Equal(t, 8192, cfg.Provider.MaxOutputTokens)
}

func TestLoad_YAMLOverride_MergesWithDefaults(t *testing.T) {
	configYAML := `
provider:
  name: openai
  model: gpt-4o
conversation:
  personality: Be terse
  max_conversation_tokens: 32000
critic:
  temperature: 0.2
`
	loader := NewLoaderWithFS(newFS(map[string]string{yamlPath: configYAML}), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "Be terse", cfg.Conversation.Personality)
	assert.Equal(t, 32000, cfg.Conversation.MaxConversationTokens)
	assert.InDelta(t, 0.2, cfg.Critic.Temperature, 1e-6)
	assert.True(t, cfg.Critic.Enabled)
}

func TestLoad_YAMLTakesPrecedenceOverJSON(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{
		yamlPath: "provider:\n  model: from-yaml\n",
		jsonPath: `{"provider": {"model": "from-json"}}`,
	}), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.Provider.Model)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{
		jsonPath: `{"provider": {"model": "from-file"}, "executor": {"check_last_step": true}}`,
	}), map[string]string{
		"REACTOR_MODEL":           "from-env",
		"REACTOR_API_KEY":         "secret",
		"REACTOR_CHECK_LAST_STEP": "false",
		"REACTOR_LOG_LEVEL":       "debug",
	})

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider.Model)
	assert.Equal(t, "secret", cfg.Provider.APIKey)
	assert.False(t, cfg.Executor.CheckLastStep)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{
		"/etc/reactor.yml": "executor:\n  max_steps: 7\n",
	}), nil)

	cfg, err := loader.LoadFile("/etc/reactor.yml")

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Executor.MaxSteps)
}

// --- UNHAPPY PATH TESTS ---

func TestLoadFile_Missing_ReturnsError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(nil), nil)

	cfg, err := loader.LoadFile("/nope.json")

	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_MalformedJSON_ReturnsError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{jsonPath: `{invalid json`}), nil)

	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_MalformedYAML_ReturnsError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{yamlPath: "provider: [unclosed"}), nil)

	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PermissionDenied_ReturnsError(t *testing.T) {
	fs := newFS(nil)
	fs.SetOperationError("ReadFile", os.ErrPermission)
	loader := NewLoaderWithFS(fs, nil)

	cfg, err := loader.Load()

	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestLoad_HomeDirError_ReturnsDefaults(t *testing.T) {
	fs := newFS(nil)
	fs.HomeDirErr = errors.New("homeless")
	loader := NewLoaderWithFS(fs, nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Empty(t, fs.Reads)
}

func TestLoad_WrongJSONType_ReturnsError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{jsonPath: `["not", "an", "object"]`}), nil)

	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_BadEnvironmentValue_ReturnsError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(nil), map[string]string{"REACTOR_MAX_STEPS": "many"})

	cfg, err := loader.Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "environment overrides")
}

func TestLoad_InvalidMergedConfig_ReturnsValidationError(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{jsonPath: `{"provider": {"name": "mystery"}}`}), nil)

	cfg, err := loader.Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "provider.name")
}

// --- EDGE CASE TESTS ---

func TestLoad_ExplicitZero_OverridesDefault(t *testing.T) {
	// Present keys overwrite defaults even when zero
	loader := NewLoaderWithFS(newFS(map[string]string{
		jsonPath: `{"provider": {"max_output_tokens": 0}, "critic": {"enabled": false}}`,
	}), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Provider.MaxOutputTokens)
	assert.False(t, cfg.Critic.Enabled)
}

func TestLoad_EmptyConfigFile_ReturnsDefaults(t *testing.T) {
	loader := NewLoaderWithFS(newFS(map[string]string{jsonPath: `{}`}), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
