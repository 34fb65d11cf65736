package main

import (
	"fmt"

	"github.com/Cyclone1070/reactor/internal/capability/clock"
	"github.com/Cyclone1070/reactor/internal/capability/todo"
	"github.com/Cyclone1070/reactor/internal/capability/workspace"
	"github.com/Cyclone1070/reactor/internal/config"
	"github.com/Cyclone1070/reactor/internal/conversation"
	"github.com/Cyclone1070/reactor/internal/logging"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/tool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	deps   Dependencies
	cfg    *config.Config
	logger *zap.Logger

	configPath string
	provider   string
	model      string
	workspace  string
	verbose    bool
}

func newRootCommand(deps Dependencies) *cobra.Command {
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:           "reactor",
		Short:         "Chat with a tool-using agent or let a ReAct agent carry out a command",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(deps.In)
	root.SetOut(deps.Out)
	root.SetErr(deps.Out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: ~/.config/reactor/config.yaml)")
	flags.StringVar(&a.provider, "provider", "", "Backend: gemini, anthropic or openai")
	flags.StringVarP(&a.model, "model", "m", "", "Model name")
	flags.StringVarP(&a.workspace, "workspace", "w", "", "Workspace directory (default: current)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newChatCommand(a), newRunCommand(a))
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := a.deps.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if a.provider != "" {
		cfg.Provider.Name = a.provider
	}
	if a.model != "" {
		cfg.Provider.Model = a.model
	}
	if a.workspace != "" {
		cfg.Tools.WorkspaceRoot = a.workspace
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// conversationOptions maps the conversation section onto manager options.
func (a *app) conversationOptions() []conversation.Option {
	c := a.cfg.Conversation
	opts := []conversation.Option{
		conversation.WithLimits(c.MaxHistoryLength, c.MaxConversationSteps, c.MaxConversationTokens),
	}
	if a.cfg.Provider.MaxOutputTokens > 0 {
		opts = append(opts, conversation.WithGenerateConfig(&provider.GenerateConfig{
			MaxOutputTokens: provider.Int(a.cfg.Provider.MaxOutputTokens),
		}))
	}
	return opts
}

// capabilities builds every enabled capability.
func (a *app) capabilities() ([]tool.Capability, error) {
	caps := []tool.Capability{
		clock.New(a.deps.Now),
		todo.New(todo.NewStore()),
	}
	if a.cfg.Tools.EnableWorkspace {
		ws, err := workspace.New(a.cfg.Tools)
		if err != nil {
			return nil, fmt.Errorf("failed to open workspace: %w", err)
		}
		a.logger.Debug("workspace opened", zap.String("root", ws.Root()))
		caps = append(caps, ws.Capability())
	}
	return caps, nil
}

// attach adds every capability through add, closing the rest on failure.
func attach(add func(tool.Capability) error, caps []tool.Capability) error {
	for i, c := range caps {
		if err := add(c); err != nil {
			for _, rest := range caps[i:] {
				_ = rest.Close()
			}
			return fmt.Errorf("failed to attach %s: %w", c.ID(), err)
		}
	}
	return nil
}
