package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().Bold(true)
	StepStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	OkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
