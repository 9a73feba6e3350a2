package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// Theme holds the color scheme for the consultation view.
type Theme struct {
	Doctor  lipgloss.Color
	Patient lipgloss.Color
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Border  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Doctor:  lipgloss.Color("#5FAFD7"), // light blue
	Patient: lipgloss.Color("#D7AF5F"), // amber
	Status:  lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Border:  lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) roleColor(role models.Role) lipgloss.Color {
	if role == models.RolePatient {
		return t.Patient
	}
	return t.Doctor
}

func (t Theme) roleStyle(role models.Role) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.roleColor(role)).Bold(true)
}

func (t Theme) bubbleStyle(role models.Role, width int) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.roleColor(role)).
		Padding(0, 1)
	if width > 0 {
		s = s.Width(width)
	}
	return s
}

func (t Theme) translatedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Italic(true).Faint(true)
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Border)
}
