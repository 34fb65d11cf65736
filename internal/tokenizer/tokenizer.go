// Package tokenizer provides token counting for budget decisions.
//
// Exact BPE tokenizers are supplied per model through Register; a heuristic
// counter is always available as the fallback.
package tokenizer

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function into a Counter.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// CharsPerToken is the ratio used by the heuristic counter.
const CharsPerToken = 4

// Heuristic estimates roughly one token per four characters, rounding up.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

var (
	mu       sync.RWMutex
	counters = map[string]Counter{}
)

// Register installs the counter used for a model. Model ids are matched
// case-insensitively; a trailing "*" registers a prefix.
func Register(model string, c Counter) {
	mu.Lock()
	defer mu.Unlock()
	counters[strings.ToLower(model)] = c
}

// For returns the counter registered for model, or the heuristic fallback.
func For(model string) Counter {
	key := strings.ToLower(model)

	mu.RLock()
	defer mu.RUnlock()

	if c, ok := counters[key]; ok {
		return c
	}
	best := ""
	var found Counter
	for k, c := range counters {
		prefix, ok := strings.CutSuffix(k, "*")
		if ok && strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
			best, found = prefix, c
		}
	}
	if found != nil {
		return found
	}
	return Heuristic{}
}
