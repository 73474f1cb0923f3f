package theme

import (
	"github.com/charmbracelet/lipgloss"

	"washbay/internal/domain"
)

// Table styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)
)

// Countdown styles
var (
	ExpiredStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	LowTimeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

var sessionColors = map[domain.SessionStatus]Color{
	domain.SessionActive:        ColorActive,
	domain.SessionAssigned:      ColorAssigned,
	domain.SessionCanceled:      ColorFinished,
	domain.SessionComplete:      ColorFinished,
	domain.SessionCreated:       ColorCreated,
	domain.SessionExpired:       ColorExpired,
	domain.SessionInQueue:       ColorQueued,
	domain.SessionPaymentFailed: ColorFailed,
}

var boxColors = map[domain.BoxStatus]Color{
	domain.BoxBusy:        ColorBusy,
	domain.BoxCleaning:    ColorCleaning,
	domain.BoxFree:        ColorFree,
	domain.BoxMaintenance: ColorMaintenance,
	domain.BoxReserved:    ColorReserved,
}

// SessionStatusStyle returns the style used to render a session status
func SessionStatusStyle(status domain.SessionStatus) lipgloss.Style {
	if c, ok := sessionColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return NormalStyle
}

// BoxStatusStyle returns the style used to render a box status
func BoxStatusStyle(status domain.BoxStatus) lipgloss.Style {
	if c, ok := boxColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return NormalStyle
}

// CountdownStyle highlights timers that are about to run out or already have
func CountdownStyle(remainingSeconds int64, expired bool) lipgloss.Style {
	switch {
	case expired:
		return ExpiredStyle
	case remainingSeconds <= 60:
		return LowTimeStyle
	default:
		return NormalStyle
	}
}
