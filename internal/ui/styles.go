package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
// - Accent (soft purple #A78BFA): record ids, tag names, highlights
// - Muted (gray): secondary info such as contexts and counts
// - No colored success/error/warning - use unicode symbols only

const accentColor = "#A78BFA"

var (
	// Accent style for ids and highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor))

	// Muted style for secondary info and hints
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// AccentBold combines accent color with bold
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color(accentColor)).Bold(true)
)

// Plain disables styling, for output that is not a terminal.
func Plain() {
	Accent = lipgloss.NewStyle()
	Muted = lipgloss.NewStyle()
	Bold = lipgloss.NewStyle()
	AccentBold = lipgloss.NewStyle()
}
