package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	darkBg2     = lipgloss.Color("#1A1E37")
	dimWhite    = lipgloss.Color("#B0B0B0")
	brightWhite = lipgloss.Color("#FFFFFF")

	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(1, 0)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Background(darkBg2).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(neonMagenta).
			Bold(true).
			MarginBottom(1)

	// Stats styles
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	// Stage list styles
	stageActiveStyle = lipgloss.NewStyle().
				Foreground(brightWhite).
				Bold(true)

	stageDoneStyle = lipgloss.NewStyle().
			Foreground(neonGreen)

	stagePendingStyle = lipgloss.NewStyle().
				Foreground(dimWhite).
				Faint(true)

	// Help style
	helpStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Italic(true)

	logTimeStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)
)
