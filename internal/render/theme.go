package render

import "github.com/charmbracelet/lipgloss"

// ────────────────────────────────────────────────────────────
// Styles — ported from the teacher's palette convention (one file,
// no ad-hoc color literals elsewhere) and remapped onto the colors
// spec §4.4.1/§4.4.2 names explicitly: cyan project ids, green
// execution coordinates, bold red failures/cancellation.
// ────────────────────────────────────────────────────────────

var (
	colorCyan    = lipgloss.Color("#76e3ea")
	colorGreen   = lipgloss.Color("#3fb950")
	colorRed     = lipgloss.Color("#f85149")
	colorYellow  = lipgloss.Color("#d29922")
	colorDim     = lipgloss.Color("#8b949e")
	colorMuted   = lipgloss.Color("#484f58")
	colorText    = lipgloss.Color("#e6edf3")
)

var (
	projectIDStyle = lipgloss.NewStyle().Foreground(colorCyan)
	executionStyle = lipgloss.NewStyle().Foreground(colorGreen)
	failureStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(colorDim)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	transferStyle  = lipgloss.NewStyle().Foreground(colorYellow)
)
