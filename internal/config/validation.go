package config

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Providers lists the backends the CLI can construct.
var Providers = []string{"gemini", "anthropic", "openai"}

// Validate checks config values for correctness.
// All violations are reported in one error.
func (c *Config) Validate() error {
	var errs []string

	// Provider
	if !slices.Contains(Providers, c.Provider.Name) {
		errs = append(errs, fmt.Sprintf("provider.name must be one of %s", strings.Join(Providers, ", ")))
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.MaxOutputTokens < 0 {
		errs = append(errs, "provider.max_output_tokens must be >= 0")
	}
	if c.Provider.RequestsPerMinute < 0 {
		errs = append(errs, "provider.requests_per_minute must be >= 0")
	}

	// Conversation
	if c.Conversation.MaxHistoryLength < 1 {
		errs = append(errs, "conversation.max_history_length must be >= 1")
	}
	if c.Conversation.MaxConversationSteps < 1 {
		errs = append(errs, "conversation.max_conversation_steps must be >= 1")
	}
	if c.Conversation.MaxConversationTokens < 0 {
		errs = append(errs, "conversation.max_conversation_tokens must be >= 0")
	}
	if c.Conversation.MaxToolIterations < 1 {
		errs = append(errs, "conversation.max_tool_iterations must be >= 1")
	}

	// Executor & critic
	if c.Executor.MaxSteps < 2 {
		errs = append(errs, "executor.max_steps must be >= 2")
	}
	if c.Critic.Temperature < 0 || c.Critic.Temperature > 2 {
		errs = append(errs, "critic.temperature must be between 0 and 2")
	}

	// Tools
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.MaxListDirectoryResults < 1 {
		errs = append(errs, "tools.max_list_directory_results must be >= 1")
	}

	// Logging
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
