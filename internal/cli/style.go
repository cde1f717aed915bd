package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

var (
	colorRed    = lipgloss.Color("#fb4934")
	colorAmber  = lipgloss.Color("#fabd2f")
	colorGreen  = lipgloss.Color("#8ec07c")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")
)

var (
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleDone   = lipgloss.NewStyle().Foreground(colorGreen)
)

// priorityBadge renders the activity tier as a colored label.
func priorityBadge(p domain.Priority) string {
	var c lipgloss.Color
	switch p {
	case domain.PriorityCore:
		c = colorRed
	case domain.PriorityRecommended:
		c = colorAmber
	case domain.PriorityOptional:
		c = colorGreen
	default:
		c = colorDim
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render("[" + p.Label() + "]")
}

func checkbox(done bool) string {
	if done {
		return styleDone.Render("[x]")
	}
	return styleDim.Render("[ ]")
}
