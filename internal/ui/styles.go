package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("63")
	ColorSuccess = lipgloss.Color("42")
	ColorError   = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("241")

	StatusThinkingStyle  = lipgloss.NewStyle().Foreground(ColorPrimary).Italic(true)
	StatusExecutingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	StatusDoneStyle      = lipgloss.NewStyle().Foreground(ColorSuccess)
	StatusErrorStyle     = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StatusDefaultStyle   = lipgloss.NewStyle().Foreground(ColorMuted)

	PromptStyle   = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	ActorStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	ThoughtStyle  = lipgloss.NewStyle().Italic(true)
	CritiqueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("177"))

	StepBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// statusStyle picks the style for a step status or status phase.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "thinking":
		return StatusThinkingStyle
	case "executing", "IN_PROGRESS":
		return StatusExecutingStyle
	case "done", "COMPLETED":
		return StatusDoneStyle
	case "error", "ERROR":
		return StatusErrorStyle
	default:
		return StatusDefaultStyle
	}
}
