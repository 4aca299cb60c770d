package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = lipgloss.Color("212")
	colorMuted  = lipgloss.Color("241")
	colorText   = lipgloss.Color("252")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle      = lipgloss.NewStyle().Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	userMsgStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	assistantMsgStyle = lipgloss.NewStyle().Foreground(colorText)
	sourceLabelStyle  = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
	sourceStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)
