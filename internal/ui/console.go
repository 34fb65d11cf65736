package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Cyclone1070/reactor/internal/workflow"
)

// Console implements UserInterface on a reader and a writer.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	markdown MarkdownRenderer

	lines chan scanResult
	once  sync.Once
	in    io.Reader
}

type scanResult struct {
	text string
	err  error
}

// NewConsole creates a console. A nil renderer prints markdown as-is.
func NewConsole(in io.Reader, out io.Writer, markdown MarkdownRenderer) *Console {
	if markdown == nil {
		markdown = PlainRenderer{}
	}
	return &Console{out: out, markdown: markdown, in: in}
}

// ReadInput prints prompt and returns the next line without its newline.
// It returns io.EOF when the input is exhausted.
func (c *Console) ReadInput(ctx context.Context, prompt string) (string, error) {
	c.once.Do(c.startScanner)

	c.print(PromptStyle.Render(prompt))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return res.text, res.err
	}
}

// startScanner reads lines in the background so ReadInput can honour
// cancellation while the terminal blocks.
func (c *Console) startScanner() {
	c.lines = make(chan scanResult)
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			c.lines <- scanResult{text: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			c.lines <- scanResult{err: err}
		}
	}()
}

func (c *Console) WriteStatus(phase string, message string) {
	icon := ""
	switch phase {
	case "done":
		icon = "✔ "
	case "error":
		icon = "✘ "
	case "thinking", "executing":
		icon = "… "
	}
	c.println(statusStyle(phase).Render(icon + message))
}

func (c *Console) WriteMessage(content string) {
	rendered, err := c.markdown.Render(content)
	if err != nil {
		rendered = content
	}
	c.println(rendered)
}

// Watch renders workflow events until the channel is closed.
func (c *Console) Watch(events <-chan workflow.Event) {
	for ev := range events {
		c.render(ev)
	}
}

func (c *Console) render(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		c.WriteStatus("thinking", "Generating")
	case workflow.TextEvent:
		// Replies are printed by the caller once the turn completes.
	case workflow.ToolStartEvent:
		c.WriteStatus("executing", fmt.Sprintf("%s %s", e.ToolName, e.Request))
	case workflow.ToolEndEvent:
		phase := "done"
		if e.IsError {
			phase = "error"
		}
		c.WriteStatus(phase, fmt.Sprintf("%s %s", e.ToolName, truncate(e.Result, 200)))
	case workflow.StepEvent:
		c.println(renderStep(e))
	case workflow.CritiqueEvent:
		c.println(CritiqueStyle.Render("critic: " + e.Suggestion))
	case workflow.DoneEvent:
		if e.Status != "" {
			c.WriteStatus(strings.ToLower(statusPhase(e.Status)), e.Actor+" finished: "+e.Status)
		}
	}
}

func renderStep(e workflow.StepEvent) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("%s %s",
		ActorStyle.Render(fmt.Sprintf("#%d %s", e.Index, e.Actor)),
		statusStyle(e.Status).Render(e.Status)))
	if e.Thought != "" {
		lines = append(lines, ThoughtStyle.Render(e.Thought))
	}
	if e.Action != "" {
		lines = append(lines, fmt.Sprintf("→ %s %s", e.Action, e.ActionInput))
	}
	if e.Observation != "" {
		lines = append(lines, truncate(e.Observation, 500))
	}
	return StepBoxStyle.Render(strings.Join(lines, "\n"))
}

func statusPhase(status string) string {
	switch status {
	case "COMPLETED":
		return "done"
	case "ERROR":
		return "error"
	default:
		return status
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}
