package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/moodchat/pkg/prefs"
)

type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Mood      lipgloss.Style
	Image     lipgloss.Style
	Status    lipgloss.Style
	Busy      lipgloss.Style
	Alert     lipgloss.Style
	Notice    lipgloss.Style
}

func NewStyles(theme prefs.Theme) Styles {
	fg, muted, accent, warn := lipgloss.Color("252"), lipgloss.Color("245"), lipgloss.Color("212"), lipgloss.Color("203")
	if theme == prefs.ThemeLight {
		fg, muted, accent, warn = lipgloss.Color("235"), lipgloss.Color("241"), lipgloss.Color("127"), lipgloss.Color("160")
	}
	return Styles{
		User:      lipgloss.NewStyle().Foreground(fg).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Mood:      lipgloss.NewStyle().Foreground(muted).Italic(true),
		Image:     lipgloss.NewStyle().Foreground(muted),
		Status:    lipgloss.NewStyle().Foreground(muted),
		Busy:      lipgloss.NewStyle().Foreground(accent),
		Alert:     lipgloss.NewStyle().Foreground(warn).Bold(true),
		Notice:    lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}
