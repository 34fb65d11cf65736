package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllDefaults_Pass(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "mystery" }, "provider.name"},
		{"empty model", func(c *Config) { c.Provider.Model = "  " }, "provider.model"},
		{"negative output tokens", func(c *Config) { c.Provider.MaxOutputTokens = -1 }, "max_output_tokens"},
		{"negative rpm", func(c *Config) { c.Provider.RequestsPerMinute = -5 }, "requests_per_minute"},
		{"zero history", func(c *Config) { c.Conversation.MaxHistoryLength = 0 }, "max_history_length"},
		{"zero steps", func(c *Config) { c.Conversation.MaxConversationSteps = 0 }, "max_conversation_steps"},
		{"negative tokens", func(c *Config) { c.Conversation.MaxConversationTokens = -1 }, "max_conversation_tokens"},
		{"zero tool iterations", func(c *Config) { c.Conversation.MaxToolIterations = 0 }, "max_tool_iterations"},
		{"one executor step", func(c *Config) { c.Executor.MaxSteps = 1 }, "executor.max_steps"},
		{"hot critic", func(c *Config) { c.Critic.Temperature = 3 }, "critic.temperature"},
		{"zero file size", func(c *Config) { c.Tools.MaxFileSize = 0 }, "tools.max_file_size"},
		{"zero list results", func(c *Config) { c.Tools.MaxListDirectoryResults = 0 }, "max_list_directory_results"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.Name = ""
	cfg.Executor.MaxSteps = 0
	cfg.Logging.Level = "nope"

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "provider.name")
	assert.Contains(t, err.Error(), "executor.max_steps")
	assert.Contains(t, err.Error(), "logging.level")
}
