package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("109")
	mutedColor   = lipgloss.Color("244")
	dangerColor  = lipgloss.Color("167")
	successColor = lipgloss.Color("65")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	sectionStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	completedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Strikethrough(true)

	checkStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)
