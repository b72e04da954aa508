package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	// Log level styles
	Debug lipgloss.Style
	Info  lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Fault lipgloss.Style

	// Component styles
	Timestamp lipgloss.Style
	Target    lipgloss.Style

	// Status styles
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style

	// TUI styles
	Title     lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
}{
	Debug: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),                            // Gray
	Info:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),                             // Cyan
	Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),                            // Orange
	Error: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),                 // Red bold
	Fault: lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true).Underline(true), // Magenta bold underline

	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Target:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),

	Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Value:   lipgloss.NewStyle().Bold(true),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

	Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1),
	StatusBar: lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("252")).Padding(0, 1),
	Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
}

// LevelStyle returns the appropriate style for a level name from DetectLevel
func LevelStyle(level string) lipgloss.Style {
	switch level {
	case "Debug":
		return Styles.Debug
	case "Info":
		return Styles.Info
	case "Warn":
		return Styles.Warn
	case "Error":
		return Styles.Error
	case "Fault":
		return Styles.Fault
	default:
		return lipgloss.NewStyle()
	}
}

// FollowIndicator renders the follow state shown next to the target name
func FollowIndicator(following bool) string {
	if following {
		return Styles.Success.Render("● FOLLOWING")
	}
	return Styles.Label.Render("○ paused")
}

// ErrorStyle picks how loudly to show a failure of the given kind code
func ErrorStyle(code string) lipgloss.Style {
	switch code {
	case "AUTH_FAILED", "STREAM_FAILURE", "SERVER_ERROR":
		return Styles.Danger
	default:
		return Styles.Warning
	}
}
