package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Cyclone1070/reactor/internal/message"
	"github.com/Cyclone1070/reactor/internal/tokenizer"
)

// Reply accumulates the pieces of a backend reply before it is turned into a
// ChatMessage.
type Reply struct {
	Texts     []string
	Reasoning []string
	Calls     []message.ToolCall
	Refusal   string
}

// Message builds the bot message. Prose that accompanies tool calls is kept as
// reasoning since a message cannot mix calls with other parts.
func (r Reply) Message() (message.ChatMessage, error) {
	reasoning := strings.Join(r.Reasoning, "\n")

	var msg message.ChatMessage
	switch {
	case len(r.Calls) > 0:
		parts := make([]message.Part, 0, len(r.Calls))
		for _, c := range r.Calls {
			parts = append(parts, c)
		}
		var err error
		msg, err = message.New(message.AuthorBot, parts...)
		if err != nil {
			return message.ChatMessage{}, err
		}
		if prose := strings.Join(r.Texts, ""); prose != "" {
			reasoning = strings.TrimSpace(strings.Join([]string{reasoning, prose}, "\n"))
		}
	default:
		msg = message.NewText(message.AuthorBot, strings.Join(r.Texts, ""))
	}

	if reasoning != "" {
		msg = msg.WithReasoning(reasoning)
	}
	if r.Refusal != "" {
		msg = msg.WithRefusal(r.Refusal)
	}
	return msg, nil
}

// CheckOutbound rejects tool calls authored by anyone but the bot.
func CheckOutbound(msg message.ChatMessage) error {
	if msg.HasToolCalls() && msg.Author() != message.AuthorBot {
		return fmt.Errorf("%w: %s message", ErrOutboundToolCall, msg.Author())
	}
	return nil
}

// CountJSON counts the tokens of v's wire encoding with model's counter.
func CountJSON(model string, v any) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode window: %w", err)
	}
	return tokenizer.For(model).Count(string(raw)), nil
}
