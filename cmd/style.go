package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

var (
	styleActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleInactive = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// styledStatus colors a job's status for terminal list output.
func styledStatus(status store.Status) string {
	switch status {
	case store.StatusActive:
		return styleActive.Render(string(status))
	case store.StatusFailed:
		return styleFailed.Render(string(status))
	default:
		return styleInactive.Render(string(status))
	}
}
