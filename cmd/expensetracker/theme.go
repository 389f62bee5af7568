package main

import (
	"github.com/charmbracelet/lipgloss"

	"expensetracker/internal/core"
)

// Catppuccin Mocha subset used by the report renderer.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

const (
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorOverlay1).Width(18)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorOverlay1)
	keyColStyle = lipgloss.NewStyle().Foreground(colorInfo).Width(18)
	numColStyle = lipgloss.NewStyle().Foreground(colorText).Width(12).Align(lipgloss.Right)
	cntColStyle = lipgloss.NewStyle().Foreground(colorOverlay1).Width(8).Align(lipgloss.Right)
)

func budgetStyle(level core.BudgetLevel) lipgloss.Style {
	switch level {
	case core.BudgetExceeded:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case core.BudgetWarning:
		return lipgloss.NewStyle().Foreground(colorWarning)
	default:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	}
}
