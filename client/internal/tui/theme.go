// Package tui provides shared theme and styles for the subscribe TUI.
package tui

import "github.com/charmbracelet/lipgloss"

// Brand palette.
var (
	ColorPrimary   = lipgloss.Color("#DC2626") // red-600
	ColorSecondary = lipgloss.Color("#F87171") // red-400
	ColorAccent    = lipgloss.Color("#F59E0B") // amber

	ColorSuccess = lipgloss.Color("#10B981") // emerald
	ColorError   = lipgloss.Color("#EF4444") // red
	ColorMuted   = lipgloss.Color("#6B7280") // gray-500
	ColorText    = lipgloss.Color("#E5E7EB") // gray-200
	ColorSubtle  = lipgloss.Color("#9CA3AF") // gray-400
	ColorPanel   = lipgloss.Color("#404040") // neutral-700
)

// Shared styles used across the picker views.
var (
	// Title is the main heading style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	// Subtitle for dialog headings.
	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	// Description for helper text.
	Description = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	// Selected highlights the currently focused item.
	Selected = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// Dimmed for non-focused items.
	Dimmed = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Success for positive messages.
	Success = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	// ErrorStyle for error messages (avoiding collision with builtin error).
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	// Help for keybind hints at the bottom.
	Help = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Modal frames a dialog.
	Modal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorText).
		Padding(1, 3)

	// PlanCard frames one plan in the picker.
	PlanCard = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 2).
			Width(34)

	// PlanCardFocused is PlanCard under the cursor.
	PlanCardFocused = PlanCard.
			BorderForeground(ColorPrimary)

	// Highlight marks the chosen stored card.
	Highlight = lipgloss.NewStyle().
			Background(lipgloss.Color("#7F1D1D")). // red-900
			Foreground(ColorText)

	// Button renders an action.
	Button = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(lipgloss.Color("#991B1B")). // red-800
		Padding(0, 2)

	// ButtonFocused is Button under the cursor.
	ButtonFocused = Button.
			Background(ColorPrimary).
			Bold(true)

	// CodeBox frames the one-time payment code.
	CodeBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1).
		Align(lipgloss.Center)
)

// NoticeStyle returns the banner style for a notice of the given kind.
func NoticeStyle(isError bool) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	if isError {
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(ColorError)
	}
	return base.Foreground(lipgloss.Color("#000000")).Background(ColorSuccess)
}

// ButtonStyle picks the button style for the focus state.
func ButtonStyle(focused bool) lipgloss.Style {
	if focused {
		return ButtonFocused
	}
	return Button
}
