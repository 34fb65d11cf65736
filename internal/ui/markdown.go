package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// GlamourRenderer renders markdown with glamour.
type GlamourRenderer struct {
	renderer *glamour.TermRenderer
}

// NewGlamourRenderer creates a renderer that picks its style from the
// terminal background. Width 0 disables wrapping.
func NewGlamourRenderer(width int) (*GlamourRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &GlamourRenderer{renderer: r}, nil
}

func (g *GlamourRenderer) Render(markdown string) (string, error) {
	out, err := g.renderer.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// PlainRenderer returns markdown unchanged, for pipes and tests.
type PlainRenderer struct{}

func (PlainRenderer) Render(markdown string) (string, error) { return markdown, nil }
