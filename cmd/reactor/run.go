package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cyclone1070/reactor/internal/react"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command>",
		Short: "Let a ReAct agent carry out a command with the available tools",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func (a *app) reactOptions() []react.Option {
	opts := []react.Option{
		react.WithLogger(a.logger),
		react.WithConversation(a.conversationOptions()...),
		react.WithMaxSteps(a.cfg.Executor.MaxSteps),
		react.WithCheckLastStep(a.cfg.Executor.CheckLastStep),
		react.WithContext(a.cfg.Executor.Context),
		react.WithExamples(a.cfg.Executor.Examples),
	}
	if a.cfg.Critic.Enabled {
		opts = append(opts, react.WithCriticTemperature(a.cfg.Critic.Temperature))
	} else {
		opts = append(opts, react.WithoutCritic())
	}
	return opts
}

func (a *app) run(ctx context.Context, command string) error {
	adapter, err := a.deps.NewAdapter(ctx, a.cfg.Provider, a.logger)
	if err != nil {
		return err
	}

	s := a.newSession()
	ag, err := react.New(adapter, append(a.reactOptions(), react.WithEvents(s.events))...)
	if err != nil {
		s.close()
		return err
	}

	caps, err := a.capabilities()
	if err == nil {
		err = attach(ag.AddCapability, caps)
	}
	if err != nil {
		_ = ag.Close()
		s.close()
		return err
	}
	if err := ag.Base().Conversation().FitContextSize(ctx); err != nil {
		a.logger.Warn("could not fit token ceiling to model", zap.Error(err))
	}

	final := ag.Execute(ctx, command)
	_ = ag.Close()
	s.close()

	a.logger.Debug("execution finished", zap.String("status", string(final.Status)), zap.Int("steps", len(ag.Trail())))
	answer := final.Observation
	if answer == "" {
		answer = final.Thought
	}
	s.console.WriteMessage(answer)

	if final.Status != react.StatusCompleted {
		return fmt.Errorf("command finished with status %s", final.Status)
	}
	return nil
}
