// Package style holds oatty's terminal output colors.
package style

import "github.com/charmbracelet/lipgloss"

var (
	// OK styles success indicators (workflow/step succeeded).
	OK = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Warn styles warning indicators (step skipped, retrying).
	Warn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Error styles failure indicators.
	Error = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// Muted styles secondary detail (attempt counts, timestamps).
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// Bold styles emphasized text (workflow and plugin names).
	Bold = lipgloss.NewStyle().Bold(true)
)

// Status renders s in the color matching a known step/workflow status
// string ("succeeded", "failed", "skipped"), falling back to plain
// text for anything else.
func Status(s string) string {
	switch s {
	case "succeeded", "running", "stopped":
		return OK.Render(s)
	case "skipped", "starting", "stopping":
		return Warn.Render(s)
	case "failed", "error":
		return Error.Render(s)
	default:
		return s
	}
}
