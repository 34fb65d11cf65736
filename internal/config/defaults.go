package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile and
// REACTOR_* environment variables, in that order.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Provider     ProviderConfig     `json:"provider" yaml:"provider"`
	Conversation ConversationConfig `json:"conversation" yaml:"conversation"`
	Executor     ExecutorConfig     `json:"executor" yaml:"executor"`
	Critic       CriticConfig       `json:"critic" yaml:"critic"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Tools        ToolsConfig        `json:"tools" yaml:"tools"`
}

type ProviderConfig struct {
	Name    string `json:"name" yaml:"name" env:"REACTOR_PROVIDER"`         // Default: "gemini"
	Model   string `json:"model" yaml:"model" env:"REACTOR_MODEL"`          // Default: "gemini-2.5-flash"
	APIKey  string `json:"api_key" yaml:"api_key" env:"REACTOR_API_KEY"`    // Default: empty, required at startup
	BaseURL string `json:"base_url" yaml:"base_url" env:"REACTOR_BASE_URL"` // Default: provider's public endpoint

	MaxOutputTokens   int `json:"max_output_tokens" yaml:"max_output_tokens" env:"REACTOR_MAX_OUTPUT_TOKENS"`       // Default: 8192
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"REACTOR_REQUESTS_PER_MINUTE"` // Default: 0 (unlimited)
}

type ConversationConfig struct {
	MaxHistoryLength     int `json:"max_history_length" yaml:"max_history_length" env:"REACTOR_MAX_HISTORY_LENGTH"`             // Default: 1000
	MaxConversationSteps int `json:"max_conversation_steps" yaml:"max_conversation_steps" env:"REACTOR_MAX_CONVERSATION_STEPS"` // Default: 50

	// MaxConversationTokens of 0 uses the model context size when known.
	MaxConversationTokens int `json:"max_conversation_tokens" yaml:"max_conversation_tokens" env:"REACTOR_MAX_CONVERSATION_TOKENS"` // Default: 0

	Personality string `json:"personality" yaml:"personality" env:"REACTOR_PERSONALITY"`

	// Chat loop
	MaxToolIterations int `json:"max_tool_iterations" yaml:"max_tool_iterations" env:"REACTOR_MAX_TOOL_ITERATIONS"` // Default: 20
}

type ExecutorConfig struct {
	MaxSteps      int    `json:"max_steps" yaml:"max_steps" env:"REACTOR_MAX_STEPS"`                   // Default: 40
	CheckLastStep bool   `json:"check_last_step" yaml:"check_last_step" env:"REACTOR_CHECK_LAST_STEP"` // Default: true
	Context       string `json:"context" yaml:"context"`
	Examples      string `json:"examples" yaml:"examples"`
}

type CriticConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" env:"REACTOR_CRITIC_ENABLED"`             // Default: true
	Temperature float32 `json:"temperature" yaml:"temperature" env:"REACTOR_CRITIC_TEMPERATURE"` // Default: 0
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level" env:"REACTOR_LOG_LEVEL"`                   // Default: "info"
	Development bool   `json:"development" yaml:"development" env:"REACTOR_LOG_DEVELOPMENT"` // Default: false
	File        string `json:"file" yaml:"file" env:"REACTOR_LOG_FILE"`                      // Default: stderr
}

type ToolsConfig struct {
	// Workspace capability
	EnableWorkspace         bool   `json:"enable_workspace" yaml:"enable_workspace" env:"REACTOR_ENABLE_WORKSPACE"` // Default: true
	WorkspaceRoot           string `json:"workspace_root" yaml:"workspace_root" env:"REACTOR_WORKSPACE_ROOT"`       // Default: current directory
	MaxFileSize             int64  `json:"max_file_size" yaml:"max_file_size"`                                      // Default: 5 * 1024 * 1024 (5MB)
	MaxListDirectoryResults int    `json:"max_list_directory_results" yaml:"max_list_directory_results"`            // Default: 1000
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:            "gemini",
			Model:           "gemini-2.5-flash",
			MaxOutputTokens: 8192,
		},
		Conversation: ConversationConfig{
			MaxHistoryLength:     1000,
			MaxConversationSteps: 50,
			MaxToolIterations:    20,
		},
		Executor: ExecutorConfig{
			MaxSteps:      40,
			CheckLastStep: true,
		},
		Critic: CriticConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Tools: ToolsConfig{
			EnableWorkspace:         true,
			MaxFileSize:             5 * 1024 * 1024,
			MaxListDirectoryResults: 1000,
		},
	}
}
