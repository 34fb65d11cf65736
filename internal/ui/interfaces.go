// Package ui is the line-oriented terminal front end of the CLI.
package ui

import (
	"context"

	"github.com/Cyclone1070/reactor/internal/workflow"
)

// UserInterface defines the contract for all user interactions.
// It follows a Read/Write pattern for clarity.
//
// Context Usage:
// ReadInput accepts context.Context for cancellation support. If the context
// is cancelled while waiting for input, it returns the context's error.
type UserInterface interface {
	// ReadInput prompts the user for general text input
	ReadInput(ctx context.Context, prompt string) (string, error)

	// WriteStatus displays ephemeral status updates (e.g., "Thinking...")
	WriteStatus(phase string, message string)

	// WriteMessage displays the agent's actual text responses
	WriteMessage(content string)

	// Watch renders workflow events until the channel is closed
	Watch(events <-chan workflow.Event)
}

// MarkdownRenderer renders markdown for the terminal.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}
