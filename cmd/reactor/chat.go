package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Cyclone1070/reactor/internal/agent"
	"github.com/Cyclone1070/reactor/internal/conversation"
	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/provider"
	"github.com/Cyclone1070/reactor/internal/ui"
	"github.com/Cyclone1070/reactor/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "Start an interactive conversation. Type /clear to forget the history and /exit to quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.chat(cmd.Context())
		},
	}
}

// session wires a console to an event stream. close must be called once the
// agent has stopped emitting.
type session struct {
	console *ui.Console
	events  chan workflow.Event
	done    chan struct{}
}

func (a *app) newSession() *session {
	s := &session{
		console: ui.NewConsole(a.deps.In, a.deps.Out, a.deps.NewRenderer()),
		events:  make(chan workflow.Event),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.console.Watch(s.events)
	}()
	return s
}

func (s *session) close() {
	close(s.events)
	<-s.done
}

func (a *app) chat(ctx context.Context) error {
	adapter, err := a.deps.NewAdapter(ctx, a.cfg.Provider, a.logger)
	if err != nil {
		return err
	}

	s := a.newSession()
	defer s.close()

	convOpts := a.conversationOptions()
	if p := a.cfg.Conversation.Personality; p != "" {
		convOpts = append(convOpts, conversation.WithPersonality(p))
	}
	ag := agent.New(adapter,
		agent.WithLogger(a.logger),
		agent.WithEvents(s.events),
		agent.WithConversation(convOpts...),
		agent.WithMaxToolIterations(a.cfg.Conversation.MaxToolIterations),
	)
	defer ag.Close()

	caps, err := a.capabilities()
	if err != nil {
		return err
	}
	if err := attach(ag.AddCapability, caps); err != nil {
		return err
	}
	if err := ag.Conversation().FitContextSize(ctx); err != nil {
		a.logger.Warn("could not fit token ceiling to model", zap.Error(err))
	}

	s.console.WriteStatus("ready", fmt.Sprintf("%s %s ready", a.cfg.Provider.Name, a.cfg.Provider.Model))
	for {
		line, err := s.console.ReadInput(ctx, "› ")
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			ag.Conversation().ClearConversation()
			s.console.WriteStatus("done", "History cleared")
			continue
		}

		resp, err := ag.Chat(ctx, message.NewText(message.AuthorUser, line))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.console.WriteStatus("error", err.Error())
			continue
		}
		if resp.FinishReason != provider.FinishCompleted {
			s.console.WriteStatus("error", "Reply finished with "+string(resp.FinishReason))
		}
		if refusal := resp.Message.Refusal(); refusal != "" {
			s.console.WriteStatus("error", refusal)
		}
		if text := resp.Message.Text(); text != "" {
			s.console.WriteMessage(text)
		}
	}
}
