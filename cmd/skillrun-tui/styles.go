package main

import "github.com/charmbracelet/lipgloss"

// Step status glyphs — convey meaning without relying on color alone.
const (
	glyphPending = "○"
	glyphRunning = "▸"
	glyphPassed  = "✓"
	glyphFailed  = "✗"
	glyphAwait   = "?"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1)

	logPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	stepPassedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	stepFailedStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	stepRunningStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)

	formLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	keyBarStyle  = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)
