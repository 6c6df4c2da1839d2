// Package tui implements the Bubble Tea generation screen: a live
// progress view driven by session state updates, followed by a markdown
// reveal of the finished story.
package tui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors that work on both light and dark terminals.
var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	colorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	phaseStyle = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	toolStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	doneStyle  = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle  = lipgloss.NewStyle().Foreground(colorMuted).Faint(true)
)
