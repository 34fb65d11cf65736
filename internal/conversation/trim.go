package conversation

import (
	"context"
	"fmt"

	"github.com/Cyclone1070/reactor/internal/message"
	"go.uber.org/zap"
)

// limits are the ceilings applied when selecting a window. Zero disables a ceiling.
type limits struct {
	steps  int
	tokens int
}

// selectWindow picks the longest suffix of working that fits lim, with no
// orphaned tool results at its head. The personality is not part of it.
func (m *Manager) selectWindow(ctx context.Context, working []message.ChatMessage, lim limits) ([]message.ChatMessage, error) {
	candidates := dropLeadingResults(working)
	if len(candidates) == 0 {
		return nil, ErrUnsatisfiableContext
	}

	first := len(candidates)
	tokens := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		if lim.steps > 0 && len(candidates)-i > lim.steps {
			break
		}
		if lim.tokens > 0 {
			// Count the suffix as one unit so per-request overhead is not
			// summed once per message.
			n, err := m.adapter.Tokenize(ctx, candidates[i:])
			if err != nil {
				return nil, fmt.Errorf("tokenize window: %w", err)
			}
			if n > lim.tokens {
				break
			}
			tokens = n
		}
		first = i
	}
	if first == len(candidates) {
		return nil, ErrContextTooSmall
	}

	window := dropLeadingResults(candidates[first:])
	if len(window) == 0 {
		return nil, ErrContextTooSmall
	}

	m.logger.Debug("conversation window selected",
		zap.Int("available", len(working)),
		zap.Int("selected", len(window)),
		zap.Int("tokens", tokens))
	return window, nil
}

// dropLeadingResults removes the leading run of tool-result messages. A result
// at the head of a window can never have its call earlier in that window.
func dropLeadingResults(msgs []message.ChatMessage) []message.ChatMessage {
	i := 0
	for i < len(msgs) && msgs[i].HasToolCallResults() {
		i++
	}
	return msgs[i:]
}
