// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// STYLES
// =============================================================================

// Styles holds the lipgloss styles for the panel.
type Styles struct {
	Title     lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Message   lipgloss.Style
	ErrorText lipgloss.Style
	StatusBar lipgloss.Style
	InputBox  lipgloss.Style
	Selected  lipgloss.Style
	Dim       lipgloss.Style
}

// DefaultStyles returns the panel styles for the given theme name.
func DefaultStyles(theme string) Styles {
	accent := lipgloss.Color("62")
	user := lipgloss.Color("39")
	bot := lipgloss.Color("170")
	dim := lipgloss.Color("241")
	errColor := lipgloss.Color("196")
	if theme == "light" {
		dim = lipgloss.Color("245")
	}

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(user),
		BotLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(bot),
		Message: lipgloss.NewStyle().
			PaddingLeft(2),
		ErrorText: lipgloss.NewStyle().
			Foreground(errColor),
		StatusBar: lipgloss.NewStyle().
			Foreground(dim),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Dim: lipgloss.NewStyle().
			Foreground(dim),
	}
}
